package layout

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// Extent is a measured content size against its viewport, in px.
type Extent struct {
	Viewport float64
	Content  float64
}

// Measurer reports the current natural extent of rendered content. It is
// called from timer goroutines.
type Measurer interface {
	Measure() Extent
}

// MeasurerFunc adapts a function to Measurer.
type MeasurerFunc func() Extent

func (f MeasurerFunc) Measure() Extent { return f() }

// Result is the outcome of the latest measurement.
type Result struct {
	Mode     Mode
	Measured bool
	Extent   Extent
	Scale    float64    // Fit only
	Scroll   ScrollPlan // Scroll only
	Offset   float64    // Scroll only, at the time of the call
	Count    int
}

// FitterOptions configures a Fitter.
type FitterOptions struct {
	MeasureDelay time.Duration
	ScrollSpeed  float64
}

// Fitter owns the measurement lifecycle of one mounted presentation.
type Fitter struct {
	clock clockwork.Clock
	mode  Mode
	opts  FitterOptions

	mu          sync.Mutex
	measurer    Measurer
	count       int
	gen         uint64
	timer       clockwork.Timer
	result      Result
	scrollStart time.Time
	stopped     bool
}

// NewFitter creates an unmounted fitter for mode.
func NewFitter(clock clockwork.Clock, mode Mode, opts FitterOptions) *Fitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.MeasureDelay <= 0 {
		opts.MeasureDelay = model.DefaultMeasureDelay
	}
	if opts.ScrollSpeed <= 0 {
		opts.ScrollSpeed = model.DefaultScrollSpeed
	}
	return &Fitter{
		clock:  clock,
		mode:   mode,
		opts:   opts,
		result: Result{Mode: mode, Scale: 1},
	}
}

// Mount schedules the first measurement once layout has settled.
func (f *Fitter) Mount(m Measurer, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return
	}
	f.cancelLocked()
	f.measurer = m
	f.count = count
	f.result = Result{Mode: f.mode, Scale: 1, Count: count}
	gen := f.gen
	f.timer = f.clock.AfterFunc(f.opts.MeasureDelay, func() { f.onMeasure(gen) })
}

// Resize re-measures after a viewport change.
func (f *Fitter) Resize() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped || f.measurer == nil || !f.result.Measured {
		return
	}
	f.measureLocked()
}

// SetCount re-measures when the number of entries changed. Value-only
// changes keep the running scroll.
func (f *Fitter) SetCount(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped || n == f.count {
		return
	}
	f.count = n
	if f.measurer != nil && f.result.Measured {
		f.measureLocked()
	}
}

// Result returns the latest measurement with the scroll offset at now.
func (f *Fitter) Result() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.result
	if r.Mode == Scroll && r.Scroll.Active() {
		r.Offset = r.Scroll.Offset(f.clock.Since(f.scrollStart))
	}
	return r
}

// Stop cancels a pending measurement. Safe to call more than once.
func (f *Fitter) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.cancelLocked()
}

func (f *Fitter) cancelLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Fitter) onMeasure(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped || gen != f.gen {
		return
	}
	f.timer = nil
	f.measureLocked()
}

func (f *Fitter) measureLocked() {
	ext := f.measurer.Measure()
	r := Result{Mode: f.mode, Measured: true, Extent: ext, Scale: 1, Count: f.count}
	switch f.mode {
	case Fit:
		r.Scale = FitScale(ext.Viewport, ext.Content)
	case Scroll:
		r.Scroll = PlanScroll(ext.Content, ext.Viewport, f.opts.ScrollSpeed)
		f.scrollStart = f.clock.Now()
	}
	f.result = r
}
