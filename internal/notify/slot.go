// Package notify shows one deal notification at a time for a fixed
// lifetime, with an animation frame loop and a best-effort sound.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/audio"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// EventKind says what happened to a notification.
type EventKind int

const (
	Started EventKind = iota
	Completed
	Replaced
	Dismissed
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Completed:
		return "completed"
	case Replaced:
		return "replaced"
	case Dismissed:
		return "dismissed"
	}
	return "unknown"
}

// Event is emitted on every lifecycle change.
type Event struct {
	Kind         EventKind
	Notification model.DealNotification
	At           time.Time
}

// View is the renderable state of the active notification.
type View struct {
	Notification model.DealNotification `json:"notification"`
	Frame        int                    `json:"frame"`
	Elapsed      time.Duration          `json:"elapsed"`
	Remaining    time.Duration          `json:"remaining"`
	Milestone    bool                   `json:"milestone"`
}

// Options configures a Slot.
type Options struct {
	Lifetime      time.Duration
	FrameInterval time.Duration
	Player        audio.Player
	Sounds        audio.Sounds
	OnEvent       func(Event)
	OnFrame       func(View)
}

type active struct {
	n         model.DealNotification
	startedAt time.Time
	frame     int
	playback  audio.Playback
	frameT    clockwork.Timer
	cleanupT  clockwork.Timer
}

// Slot holds at most one active notification. A new activation replaces
// the current one; there is no queue.
type Slot struct {
	clock clockwork.Clock
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cur     *active
	gen     uint64
	stopped bool
}

// New creates an idle slot.
func New(clock clockwork.Clock, opts Options) *Slot {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = model.DefaultNotificationLifetime
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = model.DefaultAnimationFrame
	}
	if opts.Player == nil {
		opts.Player = audio.NopPlayer{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Slot{clock: clock, opts: opts, ctx: ctx, cancel: cancel}
}

// Activate tears down any active notification and shows n. It returns
// false once the slot is stopped.
func (s *Slot) Activate(n model.DealNotification) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	now := s.clock.Now()
	var events []Event
	if prev := s.teardownLocked(); prev != nil {
		events = append(events, Event{Kind: Replaced, Notification: prev.n, At: now})
	}

	s.gen++
	gen := s.gen
	s.cur = &active{n: n, startedAt: now}
	events = append(events, Event{Kind: Started, Notification: n, At: now})
	s.mu.Unlock()

	// Display start, then audio, then animation, then cleanup.
	s.emit(events)
	s.startAudio(gen, n)
	s.armTimers(gen)
	return true
}

// armTimers schedules frames and the cleanup deadline, measured from the
// display start.
func (s *Slot) armTimers(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || gen != s.gen {
		return
	}
	left := s.opts.Lifetime - s.clock.Since(s.cur.startedAt)
	if left < 0 {
		left = 0
	}
	s.cur.frameT = s.clock.AfterFunc(s.opts.FrameInterval, func() { s.onFrame(gen) })
	s.cur.cleanupT = s.clock.AfterFunc(left, func() { s.onCleanup(gen) })
}

// Deactivate tears down the active notification early.
func (s *Slot) Deactivate() {
	s.mu.Lock()
	prev := s.teardownLocked()
	s.mu.Unlock()

	if prev != nil {
		s.emit([]Event{{Kind: Dismissed, Notification: prev.n, At: s.clock.Now()}})
	}
}

// Stop tears down and refuses further activations. Safe to call more than
// once.
func (s *Slot) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	prev := s.teardownLocked()
	s.cancel()
	s.mu.Unlock()

	if prev != nil {
		s.emit([]Event{{Kind: Dismissed, Notification: prev.n, At: s.clock.Now()}})
	}
}

// Current returns the active notification, if any.
func (s *Slot) Current() (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return View{}, false
	}
	return s.viewLocked(), true
}

func (s *Slot) viewLocked() View {
	elapsed := s.clock.Since(s.cur.startedAt)
	remaining := s.opts.Lifetime - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return View{
		Notification: s.cur.n,
		Frame:        s.cur.frame,
		Elapsed:      elapsed,
		Remaining:    remaining,
		Milestone:    s.cur.n.Milestone(),
	}
}

// teardownLocked stops every resource of the active notification and
// returns it. Unconditional and idempotent.
func (s *Slot) teardownLocked() *active {
	prev := s.cur
	s.gen++
	s.cur = nil
	if prev == nil {
		return nil
	}
	if prev.frameT != nil {
		prev.frameT.Stop()
	}
	if prev.cleanupT != nil {
		prev.cleanupT.Stop()
	}
	if prev.playback != nil {
		prev.playback.Stop()
	}
	return prev
}

func (s *Slot) startAudio(gen uint64, n model.DealNotification) {
	src := s.opts.Sounds.Resolve(n)
	pb, err := s.opts.Player.Play(s.ctx, src)
	if err != nil {
		if !errors.Is(err, audio.ErrNoSource) {
			slog.Warn("notify: sound failed", "agent", n.Agent.Name, "source", src, "error", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || gen != s.gen {
		// Torn down while the player was starting.
		pb.Stop()
		return
	}
	s.cur.playback = pb
}

func (s *Slot) onFrame(gen uint64) {
	s.mu.Lock()
	if s.cur == nil || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.cur.frame++
	view := s.viewLocked()
	if view.Remaining > 0 {
		s.cur.frameT = s.clock.AfterFunc(s.opts.FrameInterval, func() { s.onFrame(gen) })
	} else {
		s.cur.frameT = nil
	}
	s.mu.Unlock()

	if s.opts.OnFrame != nil {
		s.opts.OnFrame(view)
	}
}

func (s *Slot) onCleanup(gen uint64) {
	s.mu.Lock()
	if s.cur == nil || gen != s.gen {
		s.mu.Unlock()
		return
	}
	prev := s.teardownLocked()
	s.mu.Unlock()

	s.emit([]Event{{Kind: Completed, Notification: prev.n, At: s.clock.Now()}})
}

func (s *Slot) emit(events []Event) {
	if s.opts.OnEvent == nil {
		return
	}
	for _, ev := range events {
		s.opts.OnEvent(ev)
	}
}
