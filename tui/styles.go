package tui

import "github.com/charmbracelet/lipgloss"

// Theme colors used throughout the client
const (
	ColorAccent    = "86"  // Cyan/green - titles, own turn
	ColorHighlight = "205" // Magenta - borders, selected cards
	ColorDanger    = "196" // Red - rejects, errors, low health
	ColorMuted     = "241" // Gray - hints, system chat
	ColorText      = "252" // Light gray - normal text
)

// Styles used by the client views.
var Styles = struct {
	Title    lipgloss.Style
	Status   lipgloss.Style
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Danger   lipgloss.Style
	Box      lipgloss.Style
	Hint     lipgloss.Style
}{
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorAccent)),
	Status: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorAccent)),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorText)),
	Selected: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorHighlight)),
	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)),
	Danger: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorDanger)),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorHighlight)).
		Padding(0, 1),
	Hint: lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorMuted)).
		Italic(true),
}
