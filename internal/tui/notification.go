package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/dealboard/internal/layout"
	"github.com/tinytelemetry/dealboard/internal/notify"
)

var confettiGlyphs = []string{"✦", "✧", "•", "*", "·"}

var confettiColors = []lipgloss.Color{ColorGold, ColorBlue, ColorGreen, ColorOrange, ColorRed}

// confetti draws one animated sparkle row for frame.
func confetti(frame, width int) string {
	var b strings.Builder
	for i := 0; i < width; i++ {
		if (i*7+frame*3)%11 > 3 {
			b.WriteByte(' ')
			continue
		}
		k := (i + frame) % len(confettiGlyphs)
		b.WriteString(lipgloss.NewStyle().
			Foreground(confettiColors[(i+frame)%len(confettiColors)]).
			Render(confettiGlyphs[k]))
	}
	return b.String()
}

// renderNotification draws the deal overlay. Milestones get the gold
// palette, a heavier border and confetti.
func renderNotification(v notify.View, width int) string {
	n := v.Notification
	boxWidth := max(20, min(52, width-4))
	inner := boxWidth - 8

	accent := ColorGreen
	heading := "NEW DEAL"
	border := lipgloss.RoundedBorder()
	if v.Milestone {
		accent = ColorGold
		heading = "MILESTONE"
		if n.ReachedBudget {
			heading = "BUDGET REACHED"
		}
		border = lipgloss.DoubleBorder()
	}

	lines := []string{
		lipgloss.NewStyle().Foreground(accent).Bold(true).Render(heading),
		"",
		lipgloss.NewStyle().Foreground(ColorWhite).Bold(true).Render(layout.Clip(n.Agent.Name, inner)),
		lipgloss.NewStyle().Foreground(accent).Bold(true).Render("+" + formatMoney(n.Commission)),
	}
	if n.TotalToday.Valid {
		lines = append(lines, mutedStyle.Render("Today: "+formatMoney(n.TotalToday.Decimal)))
	}
	lines = append(lines, mutedStyle.Faint(true).Render(fmt.Sprintf("%ds", int(v.Remaining.Seconds()+0.5))))
	if v.Milestone {
		lines = append([]string{confetti(v.Frame, inner), ""}, lines...)
		lines = append(lines, confetti(v.Frame+5, inner))
	}

	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(accent).
		Padding(0, 3).
		Width(boxWidth - 2).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}
