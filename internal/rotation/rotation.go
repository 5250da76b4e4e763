// Package rotation cycles through the slides of a slideshow on a
// per-slide hold duration and samples progress through the current slide.
package rotation

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// State is the scheduler lifecycle state.
type State int

const (
	Empty State = iota
	Playing
	Advancing
	Stopped
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Playing:
		return "playing"
	case Advancing:
		return "advancing"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Snapshot is a consistent view of the scheduler.
type Snapshot struct {
	State          State         `json:"-"`
	Index          int           `json:"index"`
	Count          int           `json:"count"`
	Progress       float64       `json:"progress"`
	CycleStartedAt time.Time     `json:"cycleStartedAt"`
	Duration       time.Duration `json:"duration"`
}

// Options configures a Scheduler. Callbacks run outside the scheduler lock
// on timer goroutines and must not block for long.
type Options struct {
	ProgressTick time.Duration
	OnChange     func(Snapshot) // slide index or state changed
	OnProgress   func(Snapshot) // progress sampled
}

// Scheduler rotates through slide durations. The zero value is not usable;
// call New.
type Scheduler struct {
	clock clockwork.Clock
	opts  Options

	mu             sync.Mutex
	state          State
	durations      []time.Duration
	index          int
	cycleStartedAt time.Time
	progress       float64
	gen            uint64
	hold           clockwork.Timer
	tick           clockwork.Timer
}

// New creates an empty scheduler.
func New(clock clockwork.Clock, opts Options) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.ProgressTick <= 0 {
		opts.ProgressTick = model.DefaultProgressTick
	}
	return &Scheduler{clock: clock, opts: opts}
}

// SetDurations installs the hold duration of every slide. An empty list
// returns the scheduler to Empty. While playing, the current countdown is
// kept unless the current index no longer exists.
func (s *Scheduler) SetDurations(durations []time.Duration) {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	ds := make([]time.Duration, len(durations))
	for i, d := range durations {
		if d <= 0 {
			d = model.DefaultSlideDuration
		}
		ds[i] = d
	}
	s.durations = ds

	switch {
	case len(ds) == 0:
		s.cancelTimersLocked()
		s.state = Empty
		s.index = 0
		s.progress = 0
		s.cycleStartedAt = time.Time{}
	case s.state == Empty:
		s.startCycleLocked(0, s.clock.Now())
	case s.index >= len(ds):
		s.startCycleLocked(0, s.clock.Now())
	default:
		// Same slide keeps its start; only the deadline moves.
		s.armLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(s.opts.OnChange, snap)
}

// Next jumps to the following slide and restarts its hold.
func (s *Scheduler) Next() { s.step(1) }

// Prev jumps to the previous slide and restarts its hold.
func (s *Scheduler) Prev() { s.step(-1) }

func (s *Scheduler) step(delta int) {
	s.mu.Lock()
	if s.state != Playing || len(s.durations) == 0 {
		s.mu.Unlock()
		return
	}
	n := len(s.durations)
	s.startCycleLocked(((s.index+delta)%n+n)%n, s.clock.Now())
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(s.opts.OnChange, snap)
}

// Snapshot returns the current state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Stop cancels every timer. Further calls do nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		return
	}
	s.cancelTimersLocked()
	s.state = Stopped
}

func (s *Scheduler) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:          s.state,
		Index:          s.index,
		Count:          len(s.durations),
		Progress:       s.progress,
		CycleStartedAt: s.cycleStartedAt,
	}
	if s.index < len(s.durations) {
		snap.Duration = s.durations[s.index]
	}
	return snap
}

// startCycleLocked makes index current with its hold starting at start.
func (s *Scheduler) startCycleLocked(index int, start time.Time) {
	s.state = Playing
	s.index = index
	s.cycleStartedAt = start
	s.progress = 0
	s.armLocked()
}

// armLocked replaces both timers for the current cycle. Callbacks of the
// previous generation become no-ops.
func (s *Scheduler) armLocked() {
	s.cancelTimersLocked()
	gen := s.gen

	deadline := s.cycleStartedAt.Add(s.durations[s.index])
	wait := deadline.Sub(s.clock.Now())
	if wait < 0 {
		wait = 0
	}
	s.hold = s.clock.AfterFunc(wait, func() { s.onHold(gen, deadline) })
	s.tick = s.clock.AfterFunc(s.opts.ProgressTick, func() { s.onTick(gen) })
}

func (s *Scheduler) cancelTimersLocked() {
	s.gen++
	if s.hold != nil {
		s.hold.Stop()
		s.hold = nil
	}
	if s.tick != nil {
		s.tick.Stop()
		s.tick = nil
	}
}

func (s *Scheduler) onHold(gen uint64, deadline time.Time) {
	s.mu.Lock()
	if gen != s.gen || s.state != Playing {
		s.mu.Unlock()
		return
	}
	s.state = Advancing
	next := (s.index + 1) % len(s.durations)

	// Start the next hold at the scheduled deadline so timer latency does
	// not accumulate. A stall longer than the next hold restarts from now.
	start := deadline
	if now := s.clock.Now(); now.Sub(deadline) >= s.durations[next] {
		start = now
	}
	s.startCycleLocked(next, start)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(s.opts.OnChange, snap)
}

func (s *Scheduler) onTick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.state != Playing {
		s.mu.Unlock()
		return
	}
	d := s.durations[s.index]
	p := float64(s.clock.Since(s.cycleStartedAt)) / float64(d)
	s.progress = min(max(p, 0), 1)
	s.tick = s.clock.AfterFunc(s.opts.ProgressTick, func() { s.onTick(gen) })
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(s.opts.OnProgress, snap)
}

func (s *Scheduler) emit(fn func(Snapshot), snap Snapshot) {
	if fn != nil {
		fn(snap)
	}
}
