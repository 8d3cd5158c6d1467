// Package command runs external system utilities from discrete argument
// tokens. Nothing is ever passed through a shell interpreter.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"mvdan.cc/sh/v3/syntax"
)

// Spec describes one invocation of an external program.
type Spec struct {
	Name string
	Args []string

	Dir string
	Env []string

	Stdin io.Reader
	// Stdout and Stderr stream the output instead of capturing it into Result.
	Stdout io.Writer
	Stderr io.Writer
}

// New returns a Spec for name with args.
func New(name string, args ...string) Spec {
	return Spec{Name: name, Args: args}
}

// Line joins the name and arguments with single spaces, unquoted.
func (s Spec) Line() string {
	return strings.Join(append([]string{s.Name}, s.Args...), " ")
}

// String renders the command quoted for a POSIX shell, for logging only.
func (s Spec) String() string {
	words := make([]string, 0, len(s.Args)+1)
	for _, w := range append([]string{s.Name}, s.Args...) {
		words = append(words, quote(w))
	}
	return strings.Join(words, " ")
}

func quote(word string) string {
	q, err := syntax.Quote(word, syntax.LangBash)
	if err != nil {
		return strconv.Quote(word)
	}
	return q
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// ErrorText returns the most useful description of a failed command.
func (r *Result) ErrorText() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(r.Stdout); msg != "" {
		return msg
	}
	return fmt.Sprintf("exit status %d", r.ExitCode)
}

// Runner executes command specs.
//
// Run returns an error only when the program could not be started or was
// interrupted; a non-zero exit status is reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
	LookPath(name string) (string, bool)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger logrus.FieldLogger
}

// NewExecRunner returns a runner that logs each invocation at debug level.
func NewExecRunner(logger logrus.FieldLogger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	if r.Logger != nil {
		r.Logger.WithField("command", spec.String()).Debug("Running command")
	}

	c := exec.CommandContext(ctx, spec.Name, spec.Args...)
	c.Dir = spec.Dir
	c.Env = spec.Env
	c.Stdin = spec.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	if spec.Stdout != nil {
		c.Stdout = spec.Stdout
	}
	c.Stderr = &stderr
	if spec.Stderr != nil {
		c.Stderr = spec.Stderr
	}

	err := c.Run()
	result := &Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s: %w", spec.Name, ctx.Err())
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("failed to run %s: %w", spec.Name, err)
	}

	return result, nil
}

func (r *ExecRunner) LookPath(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	return path, true
}

// FirstAvailable returns the first name that LookPath resolves.
func FirstAvailable(r Runner, names ...string) (string, bool) {
	for _, name := range names {
		if _, ok := r.LookPath(name); ok {
			return name, true
		}
	}
	return "", false
}
