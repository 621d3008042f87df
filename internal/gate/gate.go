// Package gate runs a command each time the watched file is written,
// provided that the first line of the file holds a valid one-time code.
//
// A Gate processes one event at a time on the goroutine that calls
// [Gate.Run]. Verification and execution block the loop, so events that
// arrive meanwhile are queued by the watcher and handled in order
// afterwards.
//
// The code is read from the file after the event has been received,
// not from the event itself. If the file is written again in between,
// the newer content is what gets verified.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/njkleiner/watchc/internal/lineread"
	"github.com/njkleiner/watchc/internal/log"
	"github.com/njkleiner/watchc/internal/runner"
	"github.com/njkleiner/watchc/internal/totp"
	"github.com/njkleiner/watchc/internal/watch"
)

type Config struct {
	Target Target

	// Secret is the shared TOTP key.
	Secret []byte

	// Command is passed to the [Executor] verbatim.
	Command string

	// Quiet suppresses printing of the captured command output.
	Quiet bool

	// NoPassword disables code verification entirely.
	NoPassword bool
}

type Watcher interface {
	Next() (watch.Event, error)
}

type Executor interface {
	Run(ctx context.Context, command string) runner.Result
}

// Listener is called after every execution.
type Listener func(ctx context.Context, res runner.Result)

type Option func(g *Gate)

// WithClock replaces [time.Now] as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// WithOutput sets where captured command output is printed.
// The default is [os.Stdout] and [os.Stderr].
func WithOutput(stdout, stderr io.Writer) Option {
	return func(g *Gate) {
		g.stdout, g.stderr = stdout, stderr
	}
}

func WithListener(fn Listener) Option {
	return func(g *Gate) {
		g.listeners = append(g.listeners, fn)
	}
}

type Gate struct {
	cfg Config

	w  Watcher
	ex Executor

	now func() time.Time

	stdout io.Writer
	stderr io.Writer

	listeners []Listener
}

func New(cfg Config, w Watcher, ex Executor, opts ...Option) *Gate {
	g := &Gate{
		cfg: cfg,

		w:  w,
		ex: ex,

		now: time.Now,

		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Run handles watcher events until the watcher is closed, in which case
// Run returns nil. Any other watcher error is returned as is; the watch
// cannot recover from it.
func (g *Gate) Run(ctx context.Context) error {
	for {
		evt, err := g.w.Next()

		switch {
		case errors.Is(err, watch.ErrClosed):
			return nil
		case err != nil:
			return fmt.Errorf("cannot wait for %s: %w", g.cfg.Target.Path, err)
		}

		g.Handle(ctx, evt)
	}
}

// Handle processes a single event and reports whether the command was executed.
func (g *Gate) Handle(ctx context.Context, evt watch.Event) bool {
	if evt.Name != g.cfg.Target.Name {
		return false // unrelated file in the same directory
	}

	if !g.cfg.NoPassword && !g.verify(ctx) {
		return false
	}

	res := g.ex.Run(ctx, g.cfg.Command)

	log.Debug(ctx, "command finished",
		slog.String("status", res.Status.String()), slog.Int("exit_code", res.ExitCode))

	if !g.cfg.Quiet {
		if err := res.Print(g.stdout, g.stderr); err != nil {
			log.Debug(ctx, "cannot print command output", slog.Any("error", err))
		}
	}

	for _, fn := range g.listeners {
		fn(ctx, res)
	}

	return true
}

// verify reports whether the first line of the target file is a currently valid code.
//
// Rejections are deliberately not surfaced to the user.
func (g *Gate) verify(ctx context.Context) bool {
	line, err := lineread.File(g.cfg.Target.Path)

	if err != nil {
		log.Debug(ctx, "skip trigger: cannot read code", slog.Any("error", err))

		return false
	}

	if !totp.Current(g.cfg.Secret, g.now()).Valid(line) {
		log.Debug(ctx, "skip trigger: code rejected")

		return false
	}

	return true
}
