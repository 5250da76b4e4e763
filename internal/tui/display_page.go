package tui

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/display"
	"github.com/tinytelemetry/dealboard/internal/gateway"
	"github.com/tinytelemetry/dealboard/internal/layout"
	"github.com/tinytelemetry/dealboard/internal/model"
	"github.com/tinytelemetry/dealboard/internal/rotation"
)

// chromeRows is the height of header, slide title, progress bar and status line.
const chromeRows = 4

// Display is the part of the display the page drives.
type Display interface {
	Snapshot() display.View
	Next()
	Prev()
	RefreshNow() error
	DismissNotification()
}

// DisplayOptions configures a DisplayPage.
type DisplayOptions struct {
	Push  func() gateway.Status // optional
	Clock clockwork.Clock
	Keys  KeyMap
}

type clockTickMsg time.Time

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}

// presentation draws one slide's data. measure reports the natural content
// size against the available area for the auto-fit logic.
type presentation interface {
	count() int
	measure(width, height int) layout.Extent
	render(ctx ViewContext) string
}

// extentBox hands the latest measured extent to the fitter's timer.
type extentBox struct {
	mu  sync.Mutex
	ext layout.Extent
}

func (b *extentBox) set(e layout.Extent) {
	b.mu.Lock()
	b.ext = e
	b.mu.Unlock()
}

func (b *extentBox) Measure() layout.Extent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ext
}

// slideFit is the fit/scroll state of the slide on screen.
type slideFit struct {
	id     string
	fitter *layout.Fitter
	box    *extentBox
}

// DisplayPage renders the mounted display: header, the current slide,
// rotation progress, status line and the deal overlay.
type DisplayPage struct {
	display  Display
	push     func() gateway.Status
	clock    clockwork.Clock
	keys     KeyMap
	spinner  spinner.Model
	spinning bool
	progress progress.Model
	md       *markdownRenderer
	fit      *slideFit
	width    int
	height   int
}

// NewDisplayPage creates the display page.
func NewDisplayPage(d Display, opts DisplayOptions) *DisplayPage {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Keys.Quit.Keys() == nil {
		opts.Keys = DefaultKeyMap()
	}
	return &DisplayPage{
		display: d,
		push:    opts.Push,
		clock:   opts.Clock,
		keys:    opts.Keys,
		spinner: newSpinner(),
		progress: progress.New(
			progress.WithSolidFill(string(ColorBlue)),
			progress.WithoutPercentage(),
		),
		md: newMarkdownRenderer(),
	}
}

func (p *DisplayPage) ID() string { return PageDisplay }

func (p *DisplayPage) Init() tea.Cmd {
	p.spinning = true
	return tea.Batch(clockTick(), p.spinner.Tick)
}

func (p *DisplayPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		cmd := p.sync(p.display.Snapshot())
		if p.fit != nil {
			p.fit.fitter.Resize()
		}
		return cmd, nil

	case tea.KeyMsg:
		return p.handleKey(msg), nil

	case DisplayChangedMsg:
		return p.sync(p.display.Snapshot()), nil

	case clockTickMsg:
		return tea.Batch(p.sync(p.display.Snapshot()), clockTick()), nil

	case spinner.TickMsg:
		if !loading(p.display.Snapshot()) {
			p.spinning = false
			return nil, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return cmd, nil
	}
	return nil, nil
}

func (p *DisplayPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, p.keys.Quit), key.Matches(msg, p.keys.ForceQuit):
		return tea.Quit
	case key.Matches(msg, p.keys.Next):
		p.display.Next()
	case key.Matches(msg, p.keys.Prev):
		p.display.Prev()
	case key.Matches(msg, p.keys.Refresh):
		if err := p.display.RefreshNow(); err != nil {
			slog.Warn("tui: refresh request failed", "error", err)
		}
	case key.Matches(msg, p.keys.Dismiss):
		p.display.DismissNotification()
	default:
		return nil
	}
	return p.sync(p.display.Snapshot())
}

// Close stops the running fitter.
func (p *DisplayPage) Close() {
	if p.fit != nil {
		p.fit.fitter.Stop()
		p.fit = nil
	}
}

func (p *DisplayPage) bodySize() (int, int) {
	return max(0, p.width), max(0, p.height-chromeRows)
}

// sync follows the slide on screen: a new slide gets a fresh fitter, the
// same slide gets its extent and entry count updated.
func (p *DisplayPage) sync(v display.View) tea.Cmd {
	var cmd tea.Cmd
	if loading(v) && !p.spinning {
		p.spinning = true
		cmd = p.spinner.Tick
	}

	pres, mode, ok := p.presentationFor(v)
	if !ok {
		p.Close()
		return cmd
	}
	w, h := p.bodySize()
	ext := pres.measure(w, h)
	id := fmt.Sprintf("%d/%s/%s", v.Rotation.Index, v.Slide.Key(), visualization(v.Data))

	if p.fit == nil || p.fit.id != id {
		p.Close()
		box := &extentBox{}
		box.set(ext)
		f := layout.NewFitter(p.clock, mode, layout.FitterOptions{})
		f.Mount(box, pres.count())
		p.fit = &slideFit{id: id, fitter: f, box: box}
		return cmd
	}
	p.fit.box.set(ext)
	p.fit.fitter.SetCount(pres.count())
	return cmd
}

func visualization(d *model.SlideData) string {
	if d != nil && d.Leaderboard != nil {
		return d.Leaderboard.Leaderboard.Visualization
	}
	return ""
}

func (p *DisplayPage) presentationFor(v display.View) (presentation, layout.Mode, bool) {
	if v.Slide == nil || v.Data == nil {
		return nil, layout.Fit, false
	}
	d := v.Data
	mode := layout.ModeFor(v.Slide.Kind, visualization(d))
	switch v.Slide.Kind {
	case model.SlideLeaderboard:
		if d.Leaderboard == nil {
			return nil, mode, false
		}
		switch d.Leaderboard.Leaderboard.Visualization {
		case model.VisualizationCards:
			return cardsPresentation{stats: d.Leaderboard}, mode, true
		case model.VisualizationBars:
			return barsPresentation{stats: d.Leaderboard}, mode, true
		case model.VisualizationRace:
			return rankedPresentation{stats: d.Leaderboard, race: true}, mode, true
		default:
			return rankedPresentation{stats: d.Leaderboard}, mode, true
		}
	case model.SlideTrend:
		if d.Trend == nil {
			return nil, mode, false
		}
		return trendPresentation{trend: d.Trend}, mode, true
	case model.SlideQuotes:
		return quotesPresentation{quotes: d.Quotes, md: p.md}, mode, true
	}
	return nil, mode, false
}

func loading(v display.View) bool {
	if v.Phase != display.Mounted.String() {
		return false
	}
	if !v.Loaded {
		return v.LoadError == ""
	}
	return v.Slide != nil && v.Data == nil && v.Loading
}

func slideTitle(v display.View) string {
	if v.Data != nil {
		switch {
		case v.Data.Leaderboard != nil:
			return v.Data.Leaderboard.Leaderboard.Name
		case v.Data.Trend != nil && v.Data.Trend.Name != "":
			return v.Data.Trend.Name
		}
	}
	if v.Slide != nil {
		switch v.Slide.Kind {
		case model.SlideTrend:
			return "Trend"
		case model.SlideQuotes:
			return "Quotes"
		}
	}
	return ""
}

func (p *DisplayPage) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	v := p.display.Snapshot()
	bodyW, bodyH := width, max(0, height-chromeRows)

	title := titleStyle.Render(" " + slideTitle(v))
	body := block(p.renderBody(v, bodyW, bodyH), bodyW, bodyH)
	if v.Notification != nil {
		body = overlay(body, renderNotification(*v.Notification, bodyW), bodyW, bodyH)
	}

	bar := ""
	if v.State == rotation.Playing.String() {
		p.progress.Width = width
		bar = p.progress.ViewAs(v.Rotation.Progress)
	}

	var push *gateway.Status
	if p.push != nil {
		st := p.push()
		push = &st
	}
	help := helpLine(p.keys.Next, p.keys.Prev, p.keys.Refresh, p.keys.Quit)

	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(v, p.clock.Now(), width),
		block(title, width, 1),
		body,
		block(bar, width, 1),
		renderStatusLine(v, push, help, width),
	)
}

func (p *DisplayPage) renderBody(v display.View, width, height int) string {
	switch {
	case !v.Loaded && v.LoadError != "":
		return renderEmptyState("Slideshow unavailable, retrying", v.LoadError, width, height)
	case !v.Loaded:
		return renderLoadingPlaceholder(p.spinner, "Loading slideshow…", width, height)
	case !v.Active:
		return renderEmptyState("This slideshow is not active", "", width, height)
	case v.Slide == nil:
		return renderEmptyState("No slides", "", width, height)
	}

	pres, _, ok := p.presentationFor(v)
	if !ok {
		switch {
		case v.Data == nil && v.Loading:
			return renderLoadingPlaceholder(p.spinner, "Loading…", width, height)
		case v.Data == nil && v.SlideError != nil:
			return renderEmptyState("No data yet", v.SlideError.Err, width, height)
		case v.Data == nil:
			return renderEmptyState("No data yet", "", width, height)
		default:
			return renderEmptyState("Unsupported slide", string(v.Slide.Kind), width, height)
		}
	}

	ctx := ViewContext{Width: width, Height: height}
	if p.fit != nil {
		ctx.Fit = p.fit.fitter.Result()
	}
	return pres.render(ctx)
}
