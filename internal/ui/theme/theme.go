// Package theme holds the terminal palette and styles of the CLI output.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette, tuned for dark terminals.
var (
	Primary = lipgloss.Color("#8B5CF6") // Violet
	Accent  = lipgloss.Color("#14B8A6") // Teal
	Success = lipgloss.Color("#22C55E") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#F43F5E") // Rose
	Text    = lipgloss.Color("#F8FAFC")
	TextDim = lipgloss.Color("#94A3B8")
	Border  = lipgloss.Color("#334155")
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(TextDim).
		Width(22)
)

// Boxes
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// Progress bar cells.
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Accent)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)
)

// LevelStyle colors an evaluation level or topic bucket: good outcomes
// green, middling amber, poor rose.
func LevelStyle(level string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch level {
	case "Excellent", "Good", "strong", "Mid-level":
		return base.Foreground(Success)
	case "Average", "medium", "Junior":
		return base.Foreground(Warning)
	default:
		return base.Foreground(Error)
	}
}
