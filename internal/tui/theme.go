package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the viewer.
type Theme struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	Detail    lipgloss.Style
	Status    lipgloss.Style
	Selected  lipgloss.Style
	Primary   lipgloss.Color
	Muted     lipgloss.Color
	Border    lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	Primary: lipgloss.Color("#0ea5e9"),
	Muted:   lipgloss.Color("#737373"),
	Border:  lipgloss.Color("#404040"),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")),
	Subtitle: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")).
		MarginBottom(1),
	Tab: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#a3a3a3")).
		Padding(0, 1),
	ActiveTab: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#fafafa")).
		Background(lipgloss.Color("#0ea5e9")).
		Padding(0, 1),
	Detail: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		Italic(true),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#0ea5e9")).
		Foreground(lipgloss.Color("#0a0a0a")).
		Bold(true),
}
