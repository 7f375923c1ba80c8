package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/loomworks/loom/internal/exec"
)

// Theme defines the color palette and styles for the watch interface.
type Theme struct {
	// Color palette
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Danger  lipgloss.Color
	Muted   lipgloss.Color
	Info    lipgloss.Color

	// Panel styles
	PanelStyle lipgloss.Style
	TitleStyle lipgloss.Style

	// Run status styles
	StatusPending   lipgloss.Style
	StatusRunning   lipgloss.Style
	StatusPaused    lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusCancelled lipgloss.Style
}

// DefaultTheme returns a theme with default colors and styles.
func DefaultTheme() *Theme {
	theme := &Theme{
		Primary: lipgloss.Color("#7AA2F7"),
		Success: lipgloss.Color("#9ECE6A"),
		Warning: lipgloss.Color("#E0AF68"),
		Danger:  lipgloss.Color("#F7768E"),
		Muted:   lipgloss.Color("#565F89"),
		Info:    lipgloss.Color("#7DCFFF"),
	}

	theme.PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Muted).
		Padding(0, 1)

	theme.TitleStyle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	theme.StatusPending = lipgloss.NewStyle().
		Foreground(theme.Muted)

	theme.StatusRunning = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	theme.StatusPaused = lipgloss.NewStyle().
		Foreground(theme.Warning).
		Italic(true)

	theme.StatusCompleted = lipgloss.NewStyle().
		Foreground(theme.Success)

	theme.StatusFailed = lipgloss.NewStyle().
		Foreground(theme.Danger).
		Bold(true)

	theme.StatusCancelled = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	return theme
}

// StatusStyle returns the appropriate style for a run status.
func (t *Theme) StatusStyle(status exec.Status) lipgloss.Style {
	switch status {
	case exec.StatusPending, exec.StatusIdle:
		return t.StatusPending
	case exec.StatusRunning:
		return t.StatusRunning
	case exec.StatusPaused:
		return t.StatusPaused
	case exec.StatusCompleted:
		return t.StatusCompleted
	case exec.StatusFailed:
		return t.StatusFailed
	case exec.StatusCancelled:
		return t.StatusCancelled
	default:
		return lipgloss.NewStyle()
	}
}

// NodeGlyph returns the indicator glyph and style for a node status.
func (t *Theme) NodeGlyph(status exec.NodeStatus) (string, lipgloss.Style) {
	switch status {
	case exec.NodeRunning:
		return "●", t.StatusRunning
	case exec.NodeCompleted:
		return "✓", t.StatusCompleted
	case exec.NodeFailed:
		return "✗", t.StatusFailed
	case exec.NodeSkipped:
		return "⊘", t.StatusCancelled
	default:
		return "○", t.StatusPending
	}
}
