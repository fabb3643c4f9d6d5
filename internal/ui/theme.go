package ui

import "github.com/charmbracelet/lipgloss"

type Theme struct {
	Prefix  lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Muted   lipgloss.Style
}

func DefaultTheme() Theme {
	return Theme{
		Prefix:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warn:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		Hint:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
