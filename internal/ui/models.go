package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fenilsonani/adminkit/internal/ui/styles"
)

// inputModel collects one answer
type inputModel struct {
	question  Question
	input     textinput.Model
	answer    string
	err       string
	done      bool
	cancelled bool
}

func newInputModel(q Question) inputModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = q.Default
	ti.Focus()
	return inputModel{question: q, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		case tea.KeyEnter:
			answer := strings.TrimSpace(m.input.Value())
			if answer == "" {
				answer = m.question.Default
			}
			if answer == "" && m.question.Required {
				m.err = "A value is required"
				return m, nil
			}
			m.answer = answer
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = ""
	return m, cmd
}

func (m inputModel) View() string {
	var b strings.Builder
	b.WriteString(styles.Label(m.question.Label, m.question.Default))
	b.WriteString("\n")
	if m.done {
		b.WriteString(styles.AnswerStyle.Render(m.answer))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(styles.ErrorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(styles.HelpStyle.Render("enter: accept • esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// confirmModel asks a y/n question; anything but y declines
type confirmModel struct {
	message   string
	confirmed bool
	done      bool
	cancelled bool
}

func newConfirmModel(message string) confirmModel {
	return confirmModel{message: message}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
	case "y", "Y":
		m.confirmed = true
	}
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	var b strings.Builder
	b.WriteString(styles.WarningStyle.Render(m.message))
	b.WriteString("\n")
	b.WriteString(styles.LabelStyle.Render("Proceed? (y/n) "))
	if m.done {
		if m.confirmed {
			b.WriteString(styles.AnswerStyle.Render("y"))
		} else {
			b.WriteString(styles.DefaultStyle.Render("n"))
		}
	}
	b.WriteString("\n")
	return b.String()
}
