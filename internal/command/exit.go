package command

import (
	"errors"
	"fmt"
)

// ExitError carries the process exit status a failure should produce.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit wraps a formatted error with the given exit code.
func Exit(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error to a process exit status: nil is 0, an ExitError
// carries its own code and anything else is 1. Codes outside 1..255, such as
// the -1 of a child killed by a signal, become 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 && exitErr.Code < 256 {
		return exitErr.Code
	}
	return 1
}

// UsageError marks invalid command-line arguments.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "Usage: " + e.Usage
}
