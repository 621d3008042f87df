package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

// DefaultShell is used when [Runner.Shell] is empty.
const DefaultShell = "sh"

// FailedExitCode is the exit code reported for a command that could not be started.
const FailedExitCode = 1

type Status int

const (
	// StatusExited means that the shell was started and has terminated.
	StatusExited Status = iota

	// StatusFailedToStart means that the shell could not be spawned at all.
	StatusFailedToStart
)

func (s Status) String() string {
	switch s {
	case StatusExited:
		return "exited"
	case StatusFailedToStart:
		return "failed-to-start"
	default:
		return "unknown"
	}
}

// Result describes a single command invocation.
type Result struct {
	Status Status

	Stdout []byte
	Stderr []byte

	// ExitCode is the exit code of the process, -1 if it was killed by a signal,
	// or [FailedExitCode] if Status is [StatusFailedToStart].
	ExitCode int
}

func (r Result) Success() bool {
	return r.Status == StatusExited && r.ExitCode == 0
}

var replacement = []byte("\uFFFD")

// Print writes the captured output streams to stdout and stderr respectively.
//
// Invalid UTF-8 sequences are replaced with U+FFFD; all other bytes are copied verbatim.
func (r Result) Print(stdout, stderr io.Writer) error {
	if _, err := stdout.Write(bytes.ToValidUTF8(r.Stdout, replacement)); err != nil {
		return err
	}

	if _, err := stderr.Write(bytes.ToValidUTF8(r.Stderr, replacement)); err != nil {
		return err
	}

	return nil
}

type Runner struct {
	// Shell is the command interpreter, invoked as `Shell -c command`.
	Shell string
}

// Run executes command through the shell and waits for it to finish.
//
// Run never fails: if the shell cannot be spawned, the returned result has
// status [StatusFailedToStart], empty output and exit code [FailedExitCode].
func (r *Runner) Run(ctx context.Context, command string) Result {
	shell := r.Shell

	if shell == "" {
		shell = DefaultShell
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exit *exec.ExitError

	switch {
	case err == nil:
		return Result{
			Status: StatusExited,
			Stdout: stdout.Bytes(),
			Stderr: stderr.Bytes(),
		}
	case errors.As(err, &exit):
		return Result{
			Status:   StatusExited,
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			ExitCode: exit.ExitCode(),
		}
	default:
		return Result{
			Status:   StatusFailedToStart,
			ExitCode: FailedExitCode,
		}
	}
}
