package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme colors
var (
	Primary = lipgloss.Color("#7C3AED")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Danger  = lipgloss.Color("#EF4444")
	TextDim = lipgloss.Color("#9CA3AF")
)

// Prompt styles
var (
	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	DefaultStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	AnswerStyle = lipgloss.NewStyle().
			Foreground(Success)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)
)

// Label renders a prompt label with its default value, if any
func Label(text, def string) string {
	if def == "" {
		return LabelStyle.Render(text)
	}
	return LabelStyle.Render(text) + " " + DefaultStyle.Render("["+def+"]")
}
