package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"
)

type ContextKey struct{}

// Console output formats accepted by [NewConsole].
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// With returns a copy of ctx that carries log.
func With(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKey{}, log)
}

func Logger(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(ContextKey{}).(*slog.Logger); ok {
		return log
	}

	return slog.Default()
}

// ParseLevel parses one of "debug", "info", "warn" or "error".
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level

	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}

	return lvl, nil
}

// ValidFormat reports whether format is accepted by [NewConsole].
func ValidFormat(format string) bool {
	switch format {
	case FormatAuto, FormatText, FormatJSON:
		return true
	default:
		return false
	}
}

// NewConsole creates a logger that writes to w.
//
// With [FormatAuto], text output is used when w is a terminal and JSON otherwise.
func NewConsole(w io.Writer, lvl slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}

	if format == FormatAuto {
		format = FormatJSON

		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = FormatText
		}
	}

	if format == FormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}

func handle(ctx context.Context, lvl slog.Level, msg string, args ...any) {
	log := Logger(ctx)

	if !log.Enabled(ctx, lvl) {
		return
	}

	var pc [1]uintptr

	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pc[:])

	rec := slog.NewRecord(time.Now(), lvl, msg, pc[0])
	rec.Add(args...)

	_ = log.Handler().Handle(ctx, rec)
}

func Debug(ctx context.Context, msg string, args ...any) {
	handle(ctx, slog.LevelDebug, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	handle(ctx, slog.LevelInfo, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	handle(ctx, slog.LevelWarn, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	handle(ctx, slog.LevelError, msg, args...)
}
