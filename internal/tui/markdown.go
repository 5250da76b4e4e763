package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/x/ansi"
	"github.com/tinytelemetry/dealboard/internal/layout"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// markdownRenderer caches one glamour renderer per wrap width.
type markdownRenderer struct {
	mu      sync.Mutex
	byWidth map[int]*glamour.TermRenderer
}

func newMarkdownRenderer() *markdownRenderer {
	return &markdownRenderer{byWidth: make(map[int]*glamour.TermRenderer)}
}

func (m *markdownRenderer) render(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := m.renderer(width)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = strings.Trim(out, "\n")
	return ansi.Hardwrap(out, width, true)
}

func (m *markdownRenderer) renderer(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byWidth[width]; ok {
		return r
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.DarkStyleConfig),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.byWidth[width] = r
	return r
}

// quotesPresentation renders the quotes panel as markdown block quotes.
type quotesPresentation struct {
	quotes []model.Quote
	md     *markdownRenderer
}

func (p quotesPresentation) count() int { return len(p.quotes) }

func quotesMarkdown(quotes []model.Quote) string {
	var b strings.Builder
	for i, q := range quotes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("> " + strings.ReplaceAll(strings.TrimSpace(q.Text), "\n", "\n> "))
		if q.Author != "" {
			b.WriteString("\n>\n> — *" + q.Author + "*")
		}
	}
	return b.String()
}

func (p quotesPresentation) measure(width, height int) layout.Extent {
	_, h := layout.TextExtent(p.md.render(quotesMarkdown(p.quotes), width))
	return layout.Extent{
		Viewport: layout.RowsToPx(height, model.DefaultRowHeightPx),
		Content:  layout.RowsToPx(h, model.DefaultRowHeightPx),
	}
}

func (p quotesPresentation) render(ctx ViewContext) string {
	if len(p.quotes) == 0 {
		return renderEmptyState("No quotes", "", ctx.Width, ctx.Height)
	}
	shown := p.quotes
	if s := ctx.scale(); s < 1 {
		shown = shown[:max(1, int(float64(len(shown))*s))]
	}
	return p.md.render(quotesMarkdown(shown), ctx.Width)
}
