package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/njkleiner/watchc/internal/config"
	"github.com/njkleiner/watchc/internal/totp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a [bytes.Buffer] that is safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := newCommand(&stdout, &stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func TestMissingWatchCommand(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"-w", "/tmp/code"},
		{"--command", "true"},
	} {
		_, err := execute(t, args...)

		require.ErrorIs(t, err, config.ErrMissingWatchCommand, "args=%q", args)
	}
}

func TestInvalidArguments(t *testing.T) {
	for _, args := range [][]string{
		{"-x"},
		{"-w", "/tmp/code", "-c", "true", "positional"},
		{"-w"},
		{"--config", filepath.Join(t.TempDir(), "missing.toml"), "-w", "/tmp/code", "-c", "true"},
	} {
		_, err := execute(t, args...)

		require.Error(t, err, "args=%q", args)
		require.NotErrorIs(t, err, config.ErrMissingWatchCommand, "args=%q", args)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "-V")

	require.NoError(t, err)
	require.Equal(t, "watchc "+version+"\n", out)
}

func TestHelp(t *testing.T) {
	out, err := execute(t, "-h")

	require.NoError(t, err)

	for _, flag := range []string{"--watch", "--command", "--password", "--passfile", "--quiet", "--no-password"} {
		require.Contains(t, out, flag)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchc.toml")

	err := os.WriteFile(path, []byte(`
watch = "/run/deploy/code"
command = "echo file"
quiet = true
`), 0o600)

	require.NoError(t, err)

	var flags config.File

	fs := pflag.NewFlagSet("watchc", pflag.ContinueOnError)
	fs.StringVarP(&flags.Command, "command", "c", "", "")
	fs.BoolVarP(&flags.Quiet, "quiet", "q", false, "")
	fs.StringVarP(&flags.Password, "password", "p", "", "")

	require.NoError(t, fs.Parse([]string{"-c", "echo flag", "--quiet=false"}))

	cfg, err := load(path, true, fs, flags)

	require.NoError(t, err)
	require.Equal(t, "/run/deploy/code", cfg.Watch) // from file
	require.Equal(t, "echo flag", cfg.Command)      // overridden
	require.False(t, cfg.Quiet)                     // overridden
	require.Equal(t, "", cfg.Password)              // neither
	require.Equal(t, "sh", cfg.Shell)               // default
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "code")
	secret := "12345678901234567890"

	cfg := config.File{
		Watch:    target,
		Command:  "echo triggered",
		Password: secret,
	}

	cfg.SetDefaults()

	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer

	done := make(chan error, 1)

	go func() {
		done <- run(ctx, cfg, &stdout, &stderr)
	}()

	// write may run on the goroutine of require.Eventually, so it must not call t.FailNow.
	write := func(line string) {
		if err := os.WriteFile(target, []byte(line+"\n"), 0o600); err != nil {
			t.Errorf("cannot write code: %v", err)
		}
	}

	// A rejected code must not produce any output.
	write("000000x")

	// The watch is set up asynchronously, so keep writing a valid code
	// until the first execution shows up.
	require.Eventually(t, func() bool {
		write(totp.At([]byte(secret), time.Now()))

		return strings.Contains(stdout.String(), "triggered\n")
	}, 10*time.Second, 100*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	for _, line := range strings.SplitAfter(stdout.String(), "\n") {
		if line != "" {
			require.Equal(t, "triggered\n", line)
		}
	}
}

func TestRunMissingParentDirectory(t *testing.T) {
	cfg := config.File{
		Watch:   filepath.Join(t.TempDir(), "missing", "code"),
		Command: "true",
	}

	cfg.SetDefaults()

	var stdout, stderr syncBuffer

	require.Error(t, run(context.Background(), cfg, &stdout, &stderr))
}
