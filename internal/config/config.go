package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/njkleiner/watchc/internal/lineread"
	"github.com/njkleiner/watchc/internal/log"
	"github.com/njkleiner/watchc/internal/runner"
	"github.com/njkleiner/watchc/internal/watch"
	"github.com/pelletier/go-toml/v2"
)

// DefaultPassword is the TOTP secret used when neither a password nor a
// passfile is configured.
//
// WARNING: this value is public. Anyone who knows it can compute valid
// codes and trigger the configured command. It is kept for compatibility
// only; always configure a secret of your own.
const DefaultPassword = "secret"

// ErrMissingWatchCommand is returned by [File.Validate] when the watch
// path or the command is missing.
var ErrMissingWatchCommand = errors.New("missing watch path or command")

type File struct {
	Watch   string `toml:"watch"`
	Command string `toml:"command"`

	Password string `toml:"password"`
	Passfile string `toml:"passfile"`

	Quiet      bool `toml:"quiet"`
	NoPassword bool `toml:"no-password"`

	Shell   string `toml:"shell"`
	Backend string `toml:"backend"`

	// Listen is the address of the event feed; empty disables it.
	Listen string `toml:"listen"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func (cfg *File) SetDefaults() {
	if cfg.Shell == "" {
		cfg.Shell = runner.DefaultShell
	}

	if cfg.Backend == "" {
		cfg.Backend = string(watch.Auto)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = log.FormatAuto
	}
}

func (cfg *File) Validate() error {
	if cfg.Watch == "" || cfg.Command == "" {
		return ErrMissingWatchCommand
	}

	if _, err := watch.ParseBackend(cfg.Backend); err != nil {
		return err
	}

	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}

	if !log.ValidFormat(cfg.Log.Format) {
		return fmt.Errorf("invalid log format %q", cfg.Log.Format)
	}

	return nil
}

// Secret resolves the TOTP secret and reports whether it is [DefaultPassword].
//
// The first line of the passfile takes precedence over the password.
// A passfile that cannot be read, or that is empty, is ignored with a
// warning and the password (or the default) is used instead.
func (cfg *File) Secret(ctx context.Context) ([]byte, bool) {
	secret, isDefault := []byte(DefaultPassword), true

	if cfg.Password != "" {
		secret, isDefault = []byte(cfg.Password), false
	}

	if cfg.Passfile == "" {
		return secret, isDefault
	}

	line, err := lineread.File(cfg.Passfile)

	if err != nil {
		log.Warn(ctx, "cannot read passfile; ignoring it",
			slog.String("path", cfg.Passfile), slog.Any("error", err))

		return secret, isDefault
	}

	return []byte(line), false
}

func Parse(name string) (File, error) {
	var cfg File

	f, err := os.Open(name)

	if err != nil {
		return File{}, err
	}

	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return File{}, fmt.Errorf("cannot parse %s: %w", name, err)
	}

	return cfg, nil
}
