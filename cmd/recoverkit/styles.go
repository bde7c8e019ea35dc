package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#7D56F4")
	colorOK     = lipgloss.Color("#04B575")
	colorWarn   = lipgloss.Color("#FFB86C")
	colorErr    = lipgloss.Color("#FF5F87")
	colorMuted  = lipgloss.Color("#6C6C6C")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)

	phaseStyles = map[int]lipgloss.Style{
		1: lipgloss.NewStyle().Foreground(colorOK),
		2: lipgloss.NewStyle().Foreground(colorWarn),
		3: lipgloss.NewStyle().Foreground(colorErr).Bold(true),
	}

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)
