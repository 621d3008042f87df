package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/njkleiner/watchc/internal/config"
	"github.com/njkleiner/watchc/internal/control"
	"github.com/njkleiner/watchc/internal/gate"
	"github.com/njkleiner/watchc/internal/log"
	"github.com/njkleiner/watchc/internal/runner"
	"github.com/njkleiner/watchc/internal/watch"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var version = "0.1.0"

const defaultConfigFilePath = "watchc.toml"

// reportedError marks an error that has already been printed.
type reportedError struct {
	error
}

func main() {
	cmd := newCommand(os.Stdout, os.Stderr)

	if err := cmd.Execute(); err != nil {
		var reported reportedError

		switch {
		case errors.As(err, &reported):
			// already printed
		case errors.Is(err, config.ErrMissingWatchCommand):
			fmt.Fprintln(os.Stderr, "Please provide watch & command")
		default:
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}

		os.Exit(1)
	}
}

func newCommand(stdout, stderr io.Writer) *cobra.Command {
	var (
		flags      config.File
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "watchc -w <FILE> -c <COMMAND>",
		Short: "Execute command on FILE modification",
		Long: `Execute command on FILE modification.

Each time FILE is closed after writing, its first line is checked against
the time-based one-time codes (RFC 6238, SHA1, 6 digits, 30s) of the shared
secret. COMMAND runs through the shell only when the line matches the code
of the previous, current or next time step.`,

		Version: version,

		Args: cobra.NoArgs,

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(configPath, cmd.Flags().Changed("config"), cmd.Flags(), flags)

			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			lvl, _ := log.ParseLevel(cfg.Log.Level) // checked by Validate

			console := log.NewConsole(stderr, lvl, cfg.Log.Format)

			slog.SetDefault(console)

			ctx = log.With(ctx, console)

			if err := run(ctx, cfg, stdout, stderr); err != nil {
				console.Error("exit due to fatal error", "error", err)

				return reportedError{err}
			}

			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	fs := cmd.Flags()

	fs.StringVarP(&flags.Watch, "watch", "w", "", "Watch `FILE` for modification")
	fs.StringVarP(&flags.Command, "command", "c", "", "Execute `COMMAND` on watch modification")
	fs.StringVarP(&flags.Password, "password", "p", "", "Set TOTP secret to `PASS`")
	fs.StringVarP(&flags.Passfile, "passfile", "f", "", "Set TOTP secret from first line in `FILE`")
	fs.BoolVarP(&flags.Quiet, "quiet", "q", false, "Do not print command outputs")
	fs.BoolVarP(&flags.NoPassword, "no-password", "n", false, "Don't check for TOTP in watch")
	fs.StringVar(&flags.Listen, "listen", "", "Serve the execution event feed on `ADDR`")
	fs.StringVar(&flags.Log.Level, "log-level", "", "Log `LEVEL` (debug, info, warn, error)")
	fs.StringVar(&configPath, "config", defaultConfigFilePath, "Read options from TOML `FILE`")
	fs.BoolP("version", "V", false, "Print version")
	fs.BoolP("help", "h", false, "Print help")

	return cmd
}

// load reads the config file and overlays every flag set on the command line.
//
// A missing config file is only an error when its path was given explicitly.
func load(path string, explicit bool, fs *pflag.FlagSet, flags config.File) (config.File, error) {
	cfg, err := config.Parse(path)

	if err != nil && (explicit || !os.IsNotExist(err)) {
		return config.File{}, err
	}

	overlay := map[string]func(){
		"watch":       func() { cfg.Watch = flags.Watch },
		"command":     func() { cfg.Command = flags.Command },
		"password":    func() { cfg.Password = flags.Password },
		"passfile":    func() { cfg.Passfile = flags.Passfile },
		"quiet":       func() { cfg.Quiet = flags.Quiet },
		"no-password": func() { cfg.NoPassword = flags.NoPassword },
		"listen":      func() { cfg.Listen = flags.Listen },
		"log-level":   func() { cfg.Log.Level = flags.Log.Level },
	}

	for name, set := range overlay {
		if fs.Changed(name) {
			set()
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return config.File{}, err
	}

	return cfg, nil
}

func run(ctx context.Context, cfg config.File, stdout, stderr io.Writer) error {
	target, err := gate.ParseTarget(cfg.Watch)

	if err != nil {
		return err
	}

	backend, _ := watch.ParseBackend(cfg.Backend) // checked by Validate

	w, err := watch.Start(backend, target.Dir)

	if err != nil {
		return err
	}

	defer w.Close()

	secret, isDefault := cfg.Secret(ctx)

	if isDefault && !cfg.NoPassword {
		log.Warn(ctx, "no secret configured; using the public default secret, anyone who knows it can trigger the command")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)

	opts := []gate.Option{
		gate.WithOutput(stdout, stderr),
	}

	if cfg.Listen != "" {
		srv := control.NewServer(cfg.Listen)

		opts = append(opts, gate.WithListener(func(ctx context.Context, res runner.Result) {
			srv.Submit(control.NewRunEvent(res, time.Now()))
		}))

		eg.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
	}

	g := gate.New(gate.Config{
		Target:     target,
		Secret:     secret,
		Command:    cfg.Command,
		Quiet:      cfg.Quiet,
		NoPassword: cfg.NoPassword,
	}, w, &runner.Runner{Shell: cfg.Shell}, opts...)

	eg.Go(func() error {
		<-ctx.Done()

		// unblock the gate, which is waiting for the next event
		_ = w.Close()

		return nil
	})

	eg.Go(func() error {
		defer cancel()

		return g.Run(ctx)
	})

	log.Info(ctx, "watching for writes",
		slog.String("path", target.Path), slog.String("backend", string(backend)))

	if err := eg.Wait(); err != nil {
		return err
	}

	return nil
}
