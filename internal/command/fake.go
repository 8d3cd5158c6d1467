package command

import (
	"context"
	"io"
	"sync"
)

// FakeResponse is the scripted outcome of one fake invocation.
type FakeResponse struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// FakeRunner is a scripted Runner for tests. Commands are matched on
// Spec.Line(); unscripted commands succeed with no output.
type FakeRunner struct {
	mu        sync.Mutex
	tools     map[string]bool
	responses map[string]FakeResponse
	calls     []Spec
}

// NewFakeRunner returns a fake where only tools resolve through LookPath.
func NewFakeRunner(tools ...string) *FakeRunner {
	f := &FakeRunner{
		tools:     make(map[string]bool),
		responses: make(map[string]FakeResponse),
	}
	for _, t := range tools {
		f.tools[t] = true
	}
	return f
}

// On scripts the response for the command line.
func (f *FakeRunner) On(line string, resp FakeResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = resp
	return f
}

func (f *FakeRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec)
	resp := f.responses[spec.Line()]
	f.mu.Unlock()

	if resp.Err != nil {
		return nil, resp.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{ExitCode: resp.ExitCode}
	if spec.Stdout != nil {
		if _, err := io.WriteString(spec.Stdout, resp.Stdout); err != nil {
			return nil, err
		}
	} else {
		result.Stdout = resp.Stdout
	}
	if spec.Stderr != nil {
		if _, err := io.WriteString(spec.Stderr, resp.Stderr); err != nil {
			return nil, err
		}
	} else {
		result.Stderr = resp.Stderr
	}
	return result, nil
}

func (f *FakeRunner) LookPath(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tools[name] {
		return "/usr/bin/" + name, true
	}
	return "", false
}

// Calls returns every spec run so far.
func (f *FakeRunner) Calls() []Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Spec(nil), f.calls...)
}

// Lines returns Line() of every spec run so far.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}
