// Package display wires the slide pipeline into one mounted display:
// slideshow loading, background refresh, rotation, and deal notifications.
// Every timer and subscription it starts is owned and released by Unmount.
package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/tinytelemetry/dealboard/internal/access"
	"github.com/tinytelemetry/dealboard/internal/fetcher"
	"github.com/tinytelemetry/dealboard/internal/model"
	"github.com/tinytelemetry/dealboard/internal/notify"
	"github.com/tinytelemetry/dealboard/internal/refresh"
	"github.com/tinytelemetry/dealboard/internal/rotation"
	"github.com/tinytelemetry/dealboard/internal/slidestore"
	"github.com/tinytelemetry/dealboard/internal/snapshot"
	"github.com/tinytelemetry/dealboard/internal/source"
)

// ErrAccessRequired is returned by Mount while the access gate is closed.
var ErrAccessRequired = errors.New("display: access code required")

// Phase is the display lifecycle phase.
type Phase int

const (
	Dormant Phase = iota
	Mounted
	Unmounted
)

func (p Phase) String() string {
	switch p {
	case Dormant:
		return "dormant"
	case Mounted:
		return "mounted"
	case Unmounted:
		return "unmounted"
	}
	return "unknown"
}

// DealSource delivers validated deals. The gateway implements it.
type DealSource interface {
	Subscribe(fn func(model.DealNotification)) (unsubscribe func())
}

// DealLog records deals and answers the "deals today" counter.
type DealLog interface {
	RecordDeal(n model.DealNotification) error
	SummarySince(t time.Time) (snapshot.DealSummary, error)
}

// Options configures a Display.
type Options struct {
	SlideshowID  string
	Source       source.Source
	Deals        DealSource
	Cache        *slidestore.Cache
	Gate         *access.Gate
	DealLog      DealLog
	Clock        clockwork.Clock
	Fetch        fetcher.Policy
	Refresh      refresh.Config
	ProgressTick time.Duration
	Notify       notify.Options
}

// PassInfo describes the most recent fetch pass.
type PassInfo struct {
	Mode     string    `json:"mode"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Slides   int       `json:"slides"`
	Failed   int       `json:"failed"`
}

// Display owns one slideshow's runtime. Create with New; Mount starts it.
type Display struct {
	opts  Options
	clock clockwork.Clock

	mu         sync.Mutex
	phase      Phase
	slideshow  *model.Slideshow
	loadErr    string
	store      *slidestore.Store
	fetch      *fetcher.Fetcher
	rot        *rotation.Scheduler
	refresher  *refresh.Coordinator
	slot       *notify.Slot
	releases   []func()
	lastPass   PassInfo
	dealsDay   time.Time
	dealsToday snapshot.DealSummary

	obsMu       sync.Mutex
	observers   map[int]func(Event)
	nextObserve int
}

// New creates a dormant display. Nothing runs until Mount.
func New(opts Options) (*Display, error) {
	if opts.SlideshowID == "" {
		return nil, errors.New("display: slideshow id is required")
	}
	if opts.Source == nil {
		return nil, errors.New("display: source is required")
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Cache == nil {
		opts.Cache = slidestore.NewCache(opts.Clock, nil)
	}
	if opts.Fetch == (fetcher.Policy{}) {
		opts.Fetch = fetcher.DefaultPolicy()
	}
	return &Display{
		opts:      opts,
		clock:     opts.Clock,
		observers: make(map[int]func(Event)),
	}, nil
}

// AccessRequired reports whether Grant must succeed before Mount.
func (d *Display) AccessRequired() bool {
	return d.opts.Gate != nil && !d.opts.Gate.Granted()
}

// Grant checks an access code and mounts on success.
func (d *Display) Grant(ctx context.Context, code string) error {
	if d.opts.Gate != nil {
		if err := d.opts.Gate.Attempt(code); err != nil {
			return err
		}
	}
	return d.Mount(ctx)
}

// Mount starts rotation, refresh, notifications and the deal subscription.
// The slideshow loads in the background; until it arrives the display is
// empty. Mount unmounts automatically when ctx ends.
func (d *Display) Mount(ctx context.Context) error {
	if d.AccessRequired() {
		return ErrAccessRequired
	}

	d.mu.Lock()
	if d.phase == Mounted {
		d.mu.Unlock()
		return nil
	}

	d.store = d.opts.Cache.For(d.opts.SlideshowID)
	d.fetch = fetcher.New(source.NewLoader(d.opts.Source, d.clock), d.store, d.opts.Fetch, d.clock)
	d.slideshow = nil
	d.loadErr = ""

	d.rot = rotation.New(d.clock, rotation.Options{
		ProgressTick: d.opts.ProgressTick,
		OnChange:     func(s rotation.Snapshot) { d.emit(Event{Kind: EventSlide, Rotation: s}) },
		OnProgress:   func(s rotation.Snapshot) { d.emit(Event{Kind: EventProgress, Rotation: s}) },
	})

	nopts := d.opts.Notify
	nopts.OnEvent = d.onNotification
	nopts.OnFrame = func(notify.View) { d.emit(Event{Kind: EventFrame}) }
	d.slot = notify.New(d.clock, nopts)

	d.refresher = refresh.New(d.clock, d.opts.Refresh, d.runPass)

	slot, refresher := d.slot, d.refresher
	d.releases = d.releases[:0]
	if d.opts.Deals != nil {
		// Independent subscriptions: a failure in one reaction never
		// prevents the other.
		d.releases = append(d.releases,
			d.opts.Deals.Subscribe(func(n model.DealNotification) { slot.Activate(n) }),
			d.opts.Deals.Subscribe(func(model.DealNotification) { refresher.Settle() }),
			d.opts.Deals.Subscribe(d.recordDeal),
		)
	}
	d.releases = append(d.releases, d.store.Subscribe(func(key string) {
		d.emit(Event{Kind: EventData, Key: key})
	}))
	stop := context.AfterFunc(ctx, d.Unmount)
	d.releases = append(d.releases, func() { stop() })

	d.phase = Mounted
	d.loadDealsTodayLocked()
	d.mu.Unlock()

	slog.Info("display: mounted", "slideshow", d.opts.SlideshowID)
	d.emit(Event{Kind: EventPhase})
	refresher.Start(true)
	return nil
}

// Unmount releases every timer, pass, sound and subscription. Safe to
// call more than once.
func (d *Display) Unmount() {
	d.mu.Lock()
	if d.phase != Mounted {
		d.mu.Unlock()
		return
	}
	d.phase = Unmounted
	releases := d.releases
	d.releases = nil
	rot, refresher, slot := d.rot, d.refresher, d.slot
	d.mu.Unlock()

	for _, release := range releases {
		release()
	}
	slot.Stop()
	rot.Stop()
	refresher.Stop()

	slog.Info("display: unmounted", "slideshow", d.opts.SlideshowID)
	d.emit(Event{Kind: EventPhase})
}

// Next shows the following slide.
func (d *Display) Next() {
	if rot := d.rotation(); rot != nil {
		rot.Next()
	}
}

// Prev shows the previous slide.
func (d *Display) Prev() {
	if rot := d.rotation(); rot != nil {
		rot.Prev()
	}
}

// RefreshNow requests a silent pass.
func (d *Display) RefreshNow() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != Mounted {
		return fmt.Errorf("display: not mounted (%s)", d.phase)
	}
	d.refresher.Trigger()
	return nil
}

// DismissNotification hides the active notification early.
func (d *Display) DismissNotification() {
	d.mu.Lock()
	slot := d.slot
	mounted := d.phase == Mounted
	d.mu.Unlock()
	if mounted {
		slot.Deactivate()
	}
}

func (d *Display) rotation() *rotation.Scheduler {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.phase != Mounted {
		return nil
	}
	return d.rot
}

// runPass is the refresh coordinator's pass: load the slideshow when it is
// not known yet, then fetch every distinct slide.
func (d *Display) runPass(ctx context.Context, mode fetcher.Mode) {
	d.mu.Lock()
	ss, f := d.slideshow, d.fetch
	d.mu.Unlock()

	if ss == nil {
		loaded, err := d.opts.Source.Slideshow(ctx, d.opts.SlideshowID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("display: slideshow load failed", "slideshow", d.opts.SlideshowID, "error", err)
			d.mu.Lock()
			d.loadErr = err.Error()
			d.mu.Unlock()
			d.emit(Event{Kind: EventSlideshow})
			return
		}
		if !d.setSlideshow(loaded) {
			return
		}
		ss = loaded
	}
	if !ss.Active {
		return
	}

	info := PassInfo{Mode: mode.String(), Started: d.clock.Now()}
	for res := range f.Pass(ctx, ss.UniqueSlides(), mode) {
		info.Slides++
		if res.Err != nil {
			info.Failed++
		}
	}
	if ctx.Err() != nil {
		return
	}
	info.Finished = d.clock.Now()

	d.mu.Lock()
	d.lastPass = info
	d.mu.Unlock()
	d.emit(Event{Kind: EventPass})
}

func (d *Display) setSlideshow(ss *model.Slideshow) bool {
	d.mu.Lock()
	if d.phase != Mounted {
		d.mu.Unlock()
		return false
	}
	d.slideshow = ss
	d.loadErr = ""
	rot := d.rot
	d.mu.Unlock()

	slog.Info("display: slideshow loaded",
		"slideshow", ss.ID, "name", ss.Name, "slides", len(ss.Slides), "active", ss.Active)
	if ss.Active {
		rot.SetDurations(ss.Durations())
	} else {
		rot.SetDurations(nil)
	}
	d.emit(Event{Kind: EventSlideshow})
	return true
}

func (d *Display) onNotification(ev notify.Event) {
	d.emit(Event{Kind: EventNotification, Notification: &ev})
}

func (d *Display) recordDeal(n model.DealNotification) {
	d.mu.Lock()
	if d.phase != Mounted {
		d.mu.Unlock()
		return
	}
	today := startOfDay(n.ReceivedAt)
	if !today.Equal(d.dealsDay) {
		d.dealsDay = today
		d.dealsToday = snapshot.DealSummary{Total: decimal.Zero}
	}
	d.dealsToday.Count++
	d.dealsToday.Total = d.dealsToday.Total.Add(n.Commission)
	log := d.opts.DealLog
	d.mu.Unlock()

	if log != nil {
		if err := log.RecordDeal(n); err != nil {
			slog.Warn("display: record deal failed", "deal", n.ID, "error", err)
		}
	}
	d.emit(Event{Kind: EventDeal})
}

func (d *Display) loadDealsTodayLocked() {
	d.dealsDay = startOfDay(d.clock.Now())
	d.dealsToday = snapshot.DealSummary{Total: decimal.Zero}
	if d.opts.DealLog == nil {
		return
	}
	sum, err := d.opts.DealLog.SummarySince(d.dealsDay)
	if err != nil {
		slog.Warn("display: load deal summary failed", "error", err)
		return
	}
	d.dealsToday = sum
}

func startOfDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}
