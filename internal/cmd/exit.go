package cmd

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes of the picker commands. These match the expectations of
// shell scripts:
//
//	0 = selection made (use the result)
//	1 = cancelled by user
//	2 = fallback (no TTY, error, etc.)
const (
	exitSuccess   = 0
	exitCancelled = 1
	exitFallback  = 2
)

// exitError carries a process exit code out of a command. A nil err
// exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// errCancelled ends a picker command that closed without a selection.
var errCancelled = &exitError{code: exitCancelled}

// fallback wraps err so the process exits with exitFallback.
func fallback(err error) error {
	return &exitError{code: exitFallback, err: err}
}

// exitCode maps an error returned by Execute to a process exit code and
// reports whether it carries a message worth printing.
func exitCode(err error) (code int, printable bool) {
	if err == nil {
		return exitSuccess, false
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code, ee.err != nil
	}
	return 1, true
}

// Run executes the command line args and returns the process exit code.
func Run(args []string) int {
	rootCmd.SetArgs(args)
	err := Execute()
	code, printable := exitCode(err)
	if printable {
		fmt.Fprintf(os.Stderr, "nvpick: %v\n", err)
	}
	return code
}
