package projectcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/shlex"
)

// outputSeparator sits between the command header and its output.
const outputSeparator = "-------------------------------------------------------"

var errEmptyCommand = errors.New("command produced empty argv")

// Output is what a finished command left behind.
type Output struct {
	// Text is stdout and stderr interleaved.
	Text     string
	ExitCode int
	Duration time.Duration
}

// Executor runs one project command in dir. A command that ran and exited
// non-zero is not an error; an error means it could not be run at all.
type Executor interface {
	Execute(ctx context.Context, dir, command string) (Output, error)
}

// ExecRunner splits commands with POSIX shell quoting rules and runs them
// directly, without a shell.
type ExecRunner struct {
	// Env replaces the process environment when non-nil.
	Env []string
}

var _ Executor = ExecRunner{}

func (r ExecRunner) Execute(ctx context.Context, dir, command string) (Output, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return Output{}, fmt.Errorf("splitting command: %w", err)
	}
	if len(argv) == 0 {
		return Output{}, errEmptyCommand
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err = cmd.Run()
	out := Output{Text: buf.String(), Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return out, nil
	case errors.As(err, &exitErr):
		out.ExitCode = exitStatus(exitErr)
		return out, nil
	default:
		return Output{}, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
}

// exitStatus returns the exit code of a finished command. A command killed
// by a signal reports 128+signal, the way shells do; -1 is kept for
// commands that never started.
func exitStatus(err *exec.ExitError) int {
	if code := err.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return 128
}

// FormatOutput lays out a command's output for display: a header naming
// the command, a separator, a blank line, then the output lines.
func FormatOutput(command, text string) []string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	out := make([]string, 0, len(lines)+3)
	out = append(out, "Command: "+command, outputSeparator, "")
	return append(out, lines...)
}
