package layout

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// TextExtent returns the display width and height of rendered terminal
// content. Styling escape sequences take no space.
func TextExtent(s string) (width, height int) {
	if s == "" {
		return 0, 0
	}
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		width = max(width, ansi.StringWidth(line))
	}
	return width, len(lines)
}

// RowsToPx converts terminal rows to px-like units.
func RowsToPx(rows int, rowHeight float64) float64 {
	return float64(rows) * rowHeight
}

// PxToRows converts px-like units back to whole terminal rows.
func PxToRows(px, rowHeight float64) int {
	if rowHeight <= 0 {
		return 0
	}
	return int(px / rowHeight)
}

// Clip truncates plain text to width cells, appending an ellipsis when
// something was cut.
func Clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// Window returns at most height lines of s starting at line offset.
func Window(s string, offset, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(s, "\n")
	if offset < 0 {
		offset = 0
	}
	if offset > len(lines) {
		offset = len(lines)
	}
	end := min(offset+height, len(lines))
	return strings.Join(lines[offset:end], "\n")
}
