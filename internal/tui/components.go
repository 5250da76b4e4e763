package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/dealboard/internal/display"
	"github.com/tinytelemetry/dealboard/internal/gateway"
)

// renderBranding renders "Dealboard" with a gold to green gradient.
func renderBranding() string {
	colors := []string{
		"#FFC107", "#E9C51F", "#D3CA37", "#BDCF4F", "#A7D467",
		"#91D97F", "#7BDE97", "#65E3AF", "#3DDC84",
	}
	chars := []string{"D", "e", "a", "l", "b", "o", "a", "r", "d"}

	var result string
	for i, char := range chars {
		style := lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i])).Bold(true)
		result += style.Render(char)
	}
	return result
}

// splitLine lays out left, center and right text across width on the navy
// bar, dropping the lowest-priority parts when space runs out.
func splitLine(left, center, right string, width int) string {
	leftWidth := lipgloss.Width(left) + 2
	rightWidth := lipgloss.Width(right) + 2

	if leftWidth+rightWidth >= width {
		if width < 20 {
			return barStyle.Width(width).MaxWidth(width).Render(left)
		}
		center = ""
		if leftWidth+rightWidth > width {
			right = ""
			rightWidth = 0
		}
		leftWidth = max(0, width-rightWidth)
	}
	centerWidth := max(0, width-leftWidth-rightWidth)
	if lipgloss.Width(center) > centerWidth {
		center = ""
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		barStyle.Align(lipgloss.Left).Width(leftWidth).MaxWidth(leftWidth).Render(left),
		barStyle.Align(lipgloss.Center).Width(centerWidth).MaxWidth(centerWidth).Render(center),
		barStyle.Align(lipgloss.Right).Width(rightWidth).MaxWidth(rightWidth).Render(right),
	)
}

// renderHeader shows the slideshow, the slide position and the time.
func renderHeader(v display.View, now time.Time, width int) string {
	left := " " + v.SlideshowName
	if left == " " {
		left = " " + v.SlideshowID
	}
	var right string
	if v.Rotation.Count > 0 {
		right = fmt.Sprintf("%d/%d  ", v.Rotation.Index+1, v.Rotation.Count)
	}
	right += now.Format("15:04") + " "
	return splitLine(barStyle.Bold(true).Render(left), "", right, width)
}

func pushDot(st gateway.State) string {
	color := ColorGray
	switch st {
	case gateway.StateConnected:
		color = ColorGreen
	case gateway.StateConnecting, gateway.StateDisconnected:
		color = ColorYellow
	case gateway.StateFailed:
		color = ColorRed
	}
	return lipgloss.NewStyle().Background(ColorNavy).Foreground(color).Render("●")
}

// renderStatusLine shows push status, the last refresh and today's deals.
func renderStatusLine(v display.View, push *gateway.Status, help string, width int) string {
	var left string
	if push != nil {
		left = " " + pushDot(push.State) + barStyle.Render(" push "+string(push.State))
	}

	var center string
	switch {
	case v.Refresh.Running:
		center = "refreshing…"
	case v.LastPass.Failed > 0:
		center = fmt.Sprintf("updated %s, %d failed", v.LastPass.Finished.Format("15:04:05"), v.LastPass.Failed)
	case !v.Refresh.LastFinished.IsZero():
		center = "updated " + v.Refresh.LastFinished.Format("15:04:05")
	default:
		center = help
	}

	var rightParts []string
	if v.DealsToday.Count > 0 {
		rightParts = append(rightParts, fmt.Sprintf("%d deals · %s", v.DealsToday.Count, formatMoney(v.DealsToday.Total)))
	}
	if width >= 60 {
		rightParts = append(rightParts, renderBranding())
	}
	right := strings.Join(rightParts, barStyle.Render("  ")) + barStyle.Render(" ")

	return splitLine(left, center, right, width)
}
