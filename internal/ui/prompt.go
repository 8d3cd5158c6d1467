// Package ui asks the operator questions on the terminal.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrCancelled is returned when the operator interrupts a prompt
var ErrCancelled = errors.New("cancelled by user")

// Question is one free-text prompt
type Question struct {
	Label   string
	Default string
	// Required rejects an empty answer when there is no default
	Required bool
}

// Prompter asks questions
type Prompter interface {
	// Ask returns the trimmed answer, or the default for an empty answer
	Ask(q Question) (string, error)
	// Confirm shows message and reports whether the operator answered y
	Confirm(message string) (bool, error)
}

// NewPrompter returns a bubbletea prompter when in is a terminal and a
// line-based one otherwise
func NewPrompter(in *os.File, out io.Writer) Prompter {
	if term.IsTerminal(int(in.Fd())) {
		return &TeaPrompter{In: in, Out: out}
	}
	return NewLinePrompter(in, out)
}

// TeaPrompter runs each prompt as a small bubbletea program
type TeaPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p *TeaPrompter) run(m tea.Model) (tea.Model, error) {
	prog := tea.NewProgram(m, tea.WithInput(p.In), tea.WithOutput(p.Out))
	final, err := prog.Run()
	if errors.Is(err, tea.ErrInterrupted) || errors.Is(err, tea.ErrProgramKilled) {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return final, nil
}

// Ask implements Prompter
func (p *TeaPrompter) Ask(q Question) (string, error) {
	final, err := p.run(newInputModel(q))
	if err != nil {
		return "", err
	}
	m := final.(inputModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.answer, nil
}

// Confirm implements Prompter
func (p *TeaPrompter) Confirm(message string) (bool, error) {
	final, err := p.run(newConfirmModel(message))
	if err != nil {
		return false, err
	}
	m := final.(confirmModel)
	if m.cancelled {
		return false, ErrCancelled
	}
	return m.confirmed, nil
}

// LinePrompter reads answers line by line, for pipes and tests
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err == io.EOF && line == "" {
		return "", ErrCancelled
	}
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask implements Prompter
func (p *LinePrompter) Ask(q Question) (string, error) {
	for {
		if q.Default != "" {
			fmt.Fprintf(p.out, "%s [%s]: ", q.Label, q.Default)
		} else {
			fmt.Fprintf(p.out, "%s: ", q.Label)
		}

		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = q.Default
		}
		if answer == "" && q.Required {
			fmt.Fprintln(p.out, "A value is required.")
			continue
		}
		return answer, nil
	}
}

// Confirm implements Prompter
func (p *LinePrompter) Confirm(message string) (bool, error) {
	fmt.Fprintf(p.out, "%s\nProceed? (y/n): ", message)
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}
