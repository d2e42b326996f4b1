package session

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	user       lipgloss.Style
	detail     lipgloss.Style
	label      lipgloss.Style
	ok         lipgloss.Style
	warning    lipgloss.Style
	empty      lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		user:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		label:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		ok:         lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:      lipgloss.NewStyle().Faint(true),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
