package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestParse(t *testing.T) {
	path := write(t, "watchc.toml", `
watch = "/run/deploy/code"
command = "systemctl restart app"
passfile = "/etc/watchc/secret"
quiet = true
backend = "fsnotify"
listen = "127.0.0.1:2023"

[log]
level = "debug"
`)

	cfg, err := Parse(path)

	if err != nil {
		t.Fatalf("cannot parse config: %v", err)
	}

	cfg.SetDefaults()

	if got, want := cfg.Watch, "/run/deploy/code"; got != want {
		t.Errorf("invalid watch: got=%q; want=%q", got, want)
	}

	if got, want := cfg.Command, "systemctl restart app"; got != want {
		t.Errorf("invalid command: got=%q; want=%q", got, want)
	}

	if !cfg.Quiet || cfg.NoPassword {
		t.Errorf("invalid flags: quiet=%v; no-password=%v", cfg.Quiet, cfg.NoPassword)
	}

	if got, want := cfg.Backend, "fsnotify"; got != want {
		t.Errorf("invalid backend: got=%q; want=%q", got, want)
	}

	if got, want := cfg.Shell, "sh"; got != want {
		t.Errorf("invalid default shell: got=%q; want=%q", got, want)
	}

	if got, want := cfg.Log.Level, "debug"; got != want {
		t.Errorf("invalid log level: got=%q; want=%q", got, want)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestParseUnknownField(t *testing.T) {
	path := write(t, "watchc.toml", `wacth = "/tmp/code"`)

	if _, err := Parse(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestParseMissing(t *testing.T) {
	if _, err := Parse(filepath.Join(t.TempDir(), "missing.toml")); !os.IsNotExist(err) {
		t.Errorf("invalid error: got=%v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(cfg *File)
		missing bool
	}{
		{"missing watch", func(cfg *File) { cfg.Watch = "" }, true},
		{"missing command", func(cfg *File) { cfg.Command = "" }, true},
		{"unknown backend", func(cfg *File) { cfg.Backend = "poll" }, false},
		{"unknown log level", func(cfg *File) { cfg.Log.Level = "loud" }, false},
		{"unknown log format", func(cfg *File) { cfg.Log.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := File{Watch: "/tmp/code", Command: "true"}
			cfg.SetDefaults()

			tt.edit(&cfg)

			err := cfg.Validate()

			if err == nil {
				t.Fatal("expected validation error")
			}

			if got := errors.Is(err, ErrMissingWatchCommand); got != tt.missing {
				t.Errorf("invalid error kind: got=%v; want missing=%v", err, tt.missing)
			}
		})
	}
}

func TestSecret(t *testing.T) {
	ctx := context.Background()

	passfile := write(t, "secret", "from-file\nignored\n")
	empty := write(t, "empty", "")

	tests := []struct {
		name        string
		cfg         File
		want        string
		wantDefault bool
	}{
		{"default", File{}, DefaultPassword, true},
		{"password", File{Password: "literal"}, "literal", false},
		{"passfile", File{Passfile: passfile}, "from-file", false},
		{"passfile wins", File{Password: "literal", Passfile: passfile}, "from-file", false},
		{"missing passfile", File{Password: "literal", Passfile: passfile + ".missing"}, "literal", false},
		{"empty passfile", File{Passfile: empty}, DefaultPassword, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isDefault := tt.cfg.Secret(ctx)

			if string(got) != tt.want {
				t.Errorf("invalid secret: got=%q; want=%q", got, tt.want)
			}

			if isDefault != tt.wantDefault {
				t.Errorf("invalid default flag: got=%v; want=%v", isDefault, tt.wantDefault)
			}
		})
	}
}
