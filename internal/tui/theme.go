package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the watch view.
type Theme struct {
	NormalText         lipgloss.Color
	FaintText          lipgloss.Color
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color
	HeaderForeground   lipgloss.Color
	ErrorText          lipgloss.Color
	HelpText           lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("231"),
	HeaderForeground:   lipgloss.Color("75"),
	ErrorText:          lipgloss.Color("203"),
	HelpText:           lipgloss.Color("241"),
}

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	row      lipgloss.Style
	selected lipgloss.Style
	faint    lipgloss.Style
	err      lipgloss.Style
	help     lipgloss.Style
}

func newStyles(theme Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground),
		header:   lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground),
		row:      lipgloss.NewStyle().Foreground(theme.NormalText),
		selected: lipgloss.NewStyle().Foreground(theme.SelectedForeground).Background(theme.SelectedBackground),
		faint:    lipgloss.NewStyle().Foreground(theme.FaintText),
		err:      lipgloss.NewStyle().Foreground(theme.ErrorText),
		help:     lipgloss.NewStyle().Foreground(theme.HelpText),
	}
}
