package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorBlue)
	return s
}

// renderLoadingPlaceholder renders a centered loading indicator.
func renderLoadingPlaceholder(s spinner.Model, label string, width, height int) string {
	loadingStyle := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true)

	text := s.View() + " " + loadingStyle.Render(label)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

// renderEmptyState renders a centered explanation for a slide with nothing
// to show.
func renderEmptyState(title, detail string, width, height int) string {
	text := mutedStyle.Render(title)
	if detail != "" {
		text = lipgloss.JoinVertical(lipgloss.Center, text, errorStyle.Faint(true).Render(detail))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}
