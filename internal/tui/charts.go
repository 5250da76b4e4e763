package tui

import (
	"math"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/dealboard/internal/layout"
	"github.com/tinytelemetry/dealboard/internal/model"
)

const (
	barWidth    = 5
	barGap      = 1
	sparkHeight = 3
)

var seriesColors = []lipgloss.Color{ColorBlue, ColorGreen, ColorOrange, ColorYellow, ColorRed}

func seriesStyle(i int) lipgloss.Style {
	if i == 0 {
		return lipgloss.NewStyle().Foreground(ColorGold).Background(ColorGold)
	}
	c := seriesColors[(i-1)%len(seriesColors)]
	return lipgloss.NewStyle().Foreground(c).Background(c)
}

// barsPresentation draws a leaderboard as vertical bars, one per entry.
// When the bars are wider than the screen only the top entries are shown.
type barsPresentation struct {
	stats *model.LeaderboardStats
}

func (p barsPresentation) count() int { return len(p.stats.Entries) }

func (p barsPresentation) measure(width, height int) layout.Extent {
	return layout.Extent{
		Viewport: float64(width),
		Content:  float64(len(p.stats.Entries) * (barWidth + barGap)),
	}
}

func (p barsPresentation) render(ctx ViewContext) string {
	entries := p.stats.Entries
	if len(entries) == 0 {
		return renderEmptyState("No entries yet", "", ctx.Width, ctx.Height)
	}
	shown := len(entries)
	if s := ctx.scale(); s < 1 {
		shown = max(1, int(math.Floor(float64(shown)*s)))
	}
	shown = min(shown, max(1, ctx.Width/(barWidth+barGap)))
	entries = entries[:shown]

	chartHeight := max(1, ctx.Height-2)
	bc := barchart.New(shown*(barWidth+barGap), chartHeight,
		barchart.WithBarGap(barGap),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for i, e := range entries {
		bc.Push(barchart.BarData{
			Label: e.Agent.Name,
			Values: []barchart.BarValue{
				{Name: e.Agent.Name, Value: math.Max(0, e.Commission.InexactFloat64()), Style: seriesStyle(i)},
			},
		})
	}
	bc.Draw()

	var labels, values strings.Builder
	for _, e := range entries {
		labels.WriteString(padRight(firstName(e.Agent.Name), barWidth) + strings.Repeat(" ", barGap))
		values.WriteString(padRight(compactMoney(e.Commission.InexactFloat64()), barWidth) + strings.Repeat(" ", barGap))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		bc.View(),
		rowStyle.Render(labels.String()),
		mutedStyle.Render(values.String()),
	)
}

// compactMoney renders an amount in at most five cells: 950, 12.5k, 1.2M.
func compactMoney(v float64) string {
	switch a := math.Abs(v); {
	case a >= 1e6:
		return trimZero(v/1e6, "M")
	case a >= 1e3:
		return trimZero(v/1e3, "k")
	default:
		return trimZero(v, "")
	}
}

func trimZero(v float64, unit string) string {
	return strings.TrimSuffix(strconv.FormatFloat(v, 'f', 1, 64), ".0") + unit
}

// trendPresentation draws one sparkline per series.
type trendPresentation struct {
	trend *model.TrendHistory
}

func (p trendPresentation) count() int { return len(p.trend.Series) }

func (p trendPresentation) measure(width, height int) layout.Extent {
	return layout.Extent{
		Viewport: layout.RowsToPx(height, model.DefaultRowHeightPx),
		Content:  layout.RowsToPx(len(p.trend.Series)*(sparkHeight+1), model.DefaultRowHeightPx),
	}
}

func (p trendPresentation) render(ctx ViewContext) string {
	if len(p.trend.Series) == 0 {
		return renderEmptyState("No trend data yet", "", ctx.Width, ctx.Height)
	}
	h := max(1, int(math.Floor(float64(sparkHeight)*ctx.scale())))
	width := max(1, ctx.Width-2)

	var out []string
	for i, series := range p.trend.Series {
		last := 0.0
		values := make([]float64, len(series.Points))
		for j, pt := range series.Points {
			values[j] = pt.Value
			last = pt.Value
		}
		label := padRight(series.Group, max(1, width-12)) + padLeft(compactMoney(last), 12)
		sl := sparkline.New(width, h, sparkline.WithStyle(lipgloss.NewStyle().Foreground(seriesStyle(i).GetForeground())))
		sl.PushAll(values)
		sl.Draw()
		out = append(out, rowStyle.Render(label), sl.View())
	}
	return strings.Join(out, "\n")
}
