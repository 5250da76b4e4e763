package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"github.com/tinytelemetry/dealboard/internal/layout"
	"github.com/tinytelemetry/dealboard/internal/model"
)

const (
	rankWidth  = 4
	moneyWidth = 12
	countWidth = 6

	cardWidth  = 24
	cardHeight = 5
)

// formatMoney renders whole currency units with thousands separators.
func formatMoney(d decimal.Decimal) string {
	r := d.Round(0)
	s := r.Abs().StringFixed(0)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if r.IsNegative() {
		return "-" + b.String()
	}
	return b.String()
}

func padRight(s string, width int) string {
	s = layout.Clip(s, width)
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func padLeft(s string, width int) string {
	s = layout.Clip(s, width)
	if pad := width - runewidth.StringWidth(s); pad > 0 {
		s = strings.Repeat(" ", pad) + s
	}
	return s
}

func firstName(name string) string {
	if f, _, ok := strings.Cut(strings.TrimSpace(name), " "); ok {
		return f
	}
	return name
}

// rankedPresentation draws table and race leaderboards: the leader stays
// pinned while the rest scrolls.
type rankedPresentation struct {
	stats *model.LeaderboardStats
	race  bool
}

func (p rankedPresentation) count() int { return len(p.stats.Entries) }

// fixedRows is the height of the pinned part: column header and leader.
func (p rankedPresentation) fixedRows() int {
	rows := 0
	if !p.race {
		rows++
	}
	if len(p.stats.Entries) > 0 {
		rows++
	}
	return rows
}

func (p rankedPresentation) measure(width, height int) layout.Extent {
	rest := max(0, len(p.stats.Entries)-1)
	return layout.Extent{
		Viewport: layout.RowsToPx(max(0, height-p.fixedRows()), model.DefaultRowHeightPx),
		Content:  layout.RowsToPx(rest, model.DefaultRowHeightPx),
	}
}

func (p rankedPresentation) render(ctx ViewContext) string {
	entries := p.stats.Entries
	if len(entries) == 0 {
		return renderEmptyState("No entries yet", "", ctx.Width, ctx.Height)
	}

	nameW := max(8, ctx.Width-rankWidth-moneyWidth-2*countWidth-4)
	row := func(e model.Entry) string { return p.tableRow(e, nameW) }
	if p.race {
		nameW = min(20, max(8, ctx.Width/4))
		barW := max(4, ctx.Width-rankWidth-nameW-moneyWidth-3)
		leader := entries[0].Commission
		row = func(e model.Entry) string { return p.raceRow(e, leader, nameW, barW) }
	}

	var out []string
	if !p.race {
		out = append(out, mutedStyle.Render(
			padRight("#", rankWidth)+" "+padRight("Agent", nameW)+" "+
				padLeft("Commission", moneyWidth)+" "+padLeft("Deals", countWidth)+" "+padLeft("SMS", countWidth)))
	}
	out = append(out, leaderStyle.Render(row(entries[0])))

	rest := make([]string, 0, len(entries)-1)
	for _, e := range entries[1:] {
		rest = append(rest, rowStyle.Render(row(e)))
	}
	viewport := max(0, ctx.Height-len(out))
	if len(rest) > 0 && viewport > 0 {
		out = append(out, layout.Window(strings.Join(rest, "\n"), ctx.offsetRows(), viewport))
	}
	return strings.Join(out, "\n")
}

func (p rankedPresentation) tableRow(e model.Entry, nameW int) string {
	return padRight(fmt.Sprintf("%d.", e.Rank), rankWidth) + " " +
		padRight(e.Agent.Name, nameW) + " " +
		padLeft(formatMoney(e.Commission), moneyWidth) + " " +
		padLeft(fmt.Sprint(e.Deals), countWidth) + " " +
		padLeft(fmt.Sprint(e.SMS), countWidth)
}

func (p rankedPresentation) raceRow(e model.Entry, leader decimal.Decimal, nameW, barW int) string {
	frac := 0.0
	if leader.IsPositive() {
		frac = e.Commission.Div(leader).InexactFloat64()
	}
	frac = math.Max(0, math.Min(1, frac))
	n := int(math.Round(frac * float64(barW)))
	bar := lipgloss.NewStyle().Foreground(ColorBlue).Render(strings.Repeat("█", n)) + strings.Repeat(" ", barW-n)
	return padRight(fmt.Sprintf("%d.", e.Rank), rankWidth) + " " +
		padRight(e.Agent.Name, nameW) + " " + bar + " " +
		padLeft(formatMoney(e.Commission), moneyWidth)
}

// cardsPresentation draws one card per entry in a grid, falling back to a
// compact grid when the cards do not fit.
type cardsPresentation struct {
	stats *model.LeaderboardStats
}

func (p cardsPresentation) count() int { return len(p.stats.Entries) }

func (p cardsPresentation) columns(width int) int {
	return max(1, width/(cardWidth+1))
}

func (p cardsPresentation) measure(width, height int) layout.Extent {
	cols := p.columns(width)
	rows := (len(p.stats.Entries) + cols - 1) / cols
	return layout.Extent{
		Viewport: layout.RowsToPx(height, model.DefaultRowHeightPx),
		Content:  layout.RowsToPx(rows*cardHeight, model.DefaultRowHeightPx),
	}
}

func (p cardsPresentation) render(ctx ViewContext) string {
	entries := p.stats.Entries
	if len(entries) == 0 {
		return renderEmptyState("No entries yet", "", ctx.Width, ctx.Height)
	}
	cols := p.columns(ctx.Width)

	var rows []string
	if ctx.scale() < 1 {
		cellW := max(1, ctx.Width/cols)
		var line strings.Builder
		for i, e := range entries {
			cell := padRight(fmt.Sprintf("%d. %s %s", e.Rank, firstName(e.Agent.Name), formatMoney(e.Commission)), cellW-1) + " "
			if i == 0 {
				cell = leaderStyle.Render(cell)
			}
			line.WriteString(cell)
			if (i+1)%cols == 0 || i == len(entries)-1 {
				rows = append(rows, line.String())
				line.Reset()
			}
		}
		return strings.Join(rows, "\n")
	}

	var cards []string
	for i, e := range entries {
		border := ColorGray
		if i == 0 {
			border = ColorGold
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(layout.Clip(fmt.Sprintf("%d. %s", e.Rank, e.Agent.Name), cardWidth-2)),
			lipgloss.NewStyle().Foreground(ColorGreen).Render(formatMoney(e.Commission)),
			mutedStyle.Render(fmt.Sprintf("%d deals", e.Deals)),
		)
		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Width(cardWidth-2).
			Render(body))
		if (i+1)%cols == 0 || i == len(entries)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, spaced(cards)...))
			cards = cards[:0]
		}
	}
	return strings.Join(rows, "\n")
}

func spaced(parts []string) []string {
	out := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, p)
	}
	return out
}
