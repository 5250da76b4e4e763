package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/tinytelemetry/dealboard/internal/layout"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// ViewContext is what a presentation needs to draw one frame.
type ViewContext struct {
	Width  int
	Height int
	Fit    layout.Result // zero until the first measurement
}

// scale returns the fit scale, or 1 before the first measurement.
func (c ViewContext) scale() float64 {
	if !c.Fit.Measured || c.Fit.Scale <= 0 {
		return 1
	}
	return c.Fit.Scale
}

// offsetRows returns the current scroll offset in terminal rows.
func (c ViewContext) offsetRows() int {
	if !c.Fit.Measured {
		return 0
	}
	return layout.PxToRows(c.Fit.Offset, model.DefaultRowHeightPx)
}

// block forces s to exactly width × height cells.
func block(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := strings.Split(layout.Window(s, 0, height), "\n")
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		line = ansi.Truncate(line, width, "")
		if pad := width - ansi.StringWidth(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// overlay draws box centered over base. base must already be a block of
// width × height.
func overlay(base, box string, width, height int) string {
	bw, bh := layout.TextExtent(box)
	if bw > width || bh > height {
		return block(box, width, height)
	}
	x := (width - bw) / 2
	y := (height - bh) / 2

	lines := strings.Split(base, "\n")
	boxLines := strings.Split(box, "\n")
	for i, bl := range boxLines {
		row := y + i
		if row >= len(lines) {
			break
		}
		line := lines[row]
		left := ansi.Truncate(line, x, "")
		if pad := x - ansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		if pad := bw - ansi.StringWidth(bl); pad > 0 {
			bl += strings.Repeat(" ", pad)
		}
		right := ansi.TruncateLeft(line, x+bw, "")
		lines[row] = left + bl + right
	}
	return strings.Join(lines, "\n")
}
