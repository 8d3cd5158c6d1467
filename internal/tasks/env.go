// Package tasks implements the administrative commands. Each task validates
// its positional arguments, checks its preconditions and then drives the scan
// engine or the external tools through the Env it is given.
package tasks

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fenilsonani/adminkit/internal/cleaner"
	"github.com/fenilsonani/adminkit/internal/command"
	"github.com/fenilsonani/adminkit/internal/config"
	"github.com/fenilsonani/adminkit/internal/logging"
	"github.com/fenilsonani/adminkit/internal/platform"
	"github.com/fenilsonani/adminkit/internal/procs"
	"github.com/fenilsonani/adminkit/internal/reporter"
	"github.com/fenilsonani/adminkit/internal/scanner"
	"github.com/fenilsonani/adminkit/internal/security"
	"github.com/fenilsonani/adminkit/internal/ui"
)

// Env carries everything a task touches outside its own arguments
type Env struct {
	Config    *config.Config
	Log       *logging.Logger
	Runner    command.Runner
	Privilege platform.PrivilegeOracle
	Prompter  ui.Prompter
	Procs     procs.Source
	// Stdout receives machine-readable reports
	Stdout io.Writer
	Now    func() time.Time
	// Program is the name usage messages are printed with
	Program string
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Env) usage(format string, args ...any) error {
	return &command.UsageError{Usage: e.Program + " " + fmt.Sprintf(format, args...)}
}

func (e *Env) exclusions() (*scanner.ExclusionSet, error) {
	set := scanner.NewExclusionSet(e.Config.Exclude.Paths...)
	for _, p := range e.Config.Exclude.Patterns {
		if err := set.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (e *Env) cleaner() (*cleaner.Cleaner, error) {
	codec, err := cleaner.CodecByName(e.Config.Logs.Codec)
	if err != nil {
		return nil, err
	}
	return cleaner.New(e.Log, cleaner.Options{
		DryRun:    e.Config.DryRun,
		Codec:     codec,
		Validator: security.NewPathValidator(e.Config.ProtectedPaths...),
	}), nil
}

// requireRoot fails with message when the process is positively unprivileged
func (e *Env) requireRoot(message string) error {
	if err := platform.RequireRoot(e.Privilege); err != nil {
		return command.Exit(1, "%s", message)
	}
	return nil
}

// toolSection runs the first candidate whose program is installed and logs
// its output. missing is logged when none is.
func (e *Env) toolSection(title, missing string, candidates ...command.Spec) reporter.Section {
	return reporter.Section{
		Title: title,
		Run: func(ctx context.Context) (string, error) {
			names := make([]string, len(candidates))
			for i, spec := range candidates {
				names[i] = spec.Name
			}
			name, ok := command.FirstAvailable(e.Runner, names...)
			if !ok {
				e.Log.Warn(missing)
				return "", nil
			}
			return e.capture(ctx, candidates[slices.Index(names, name)])
		},
	}
}

// capture runs spec and returns its trimmed stdout. A non-zero exit is
// logged as a warning; the output is still returned.
func (e *Env) capture(ctx context.Context, spec command.Spec) (string, error) {
	res, err := e.Runner.Run(ctx, spec)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		if msg := strings.TrimSpace(res.Stderr); msg != "" {
			e.Log.Warnf("(Command error output: %s)", msg)
		} else {
			e.Log.Warnf("(Command %s exited with code %d)", spec, res.ExitCode)
		}
	}
	return strings.TrimSpace(res.Stdout), nil
}

// checked runs spec and converts a non-zero exit into an ExitError carrying
// the same code
func (e *Env) checked(ctx context.Context, spec command.Spec) (*command.Result, error) {
	res, err := e.Runner.Run(ctx, spec)
	if err != nil {
		return nil, command.Exit(1, "failed to execute %s: %w", spec, err)
	}
	if !res.Success() {
		return res, &command.ExitError{
			Code: res.ExitCode,
			Err:  fmt.Errorf("command %s failed: %s", spec, res.ErrorText()),
		}
	}
	return res, nil
}
