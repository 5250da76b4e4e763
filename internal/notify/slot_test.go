package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/audio"
	"github.com/tinytelemetry/dealboard/internal/model"
)

type fakePlayback struct {
	source string
	once   sync.Once
	done   chan struct{}
}

func (p *fakePlayback) Stop() { p.once.Do(func() { close(p.done) }) }
func (p *fakePlayback) Done() <-chan struct{} { return p.done }

func (p *fakePlayback) stopped() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

type fakePlayer struct {
	mu    sync.Mutex
	plays []*fakePlayback
}

func (f *fakePlayer) Play(_ context.Context, source string) (audio.Playback, error) {
	if source == "" {
		return nil, audio.ErrNoSource
	}
	pb := &fakePlayback{source: source, done: make(chan struct{})}
	f.mu.Lock()
	f.plays = append(f.plays, pb)
	f.mu.Unlock()
	return pb, nil
}

func (f *fakePlayer) get(i int) *fakePlayback {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.plays) {
		return nil
	}
	return f.plays[i]
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func deal(id, agent string) model.DealNotification {
	return model.DealNotification{ID: id, Agent: model.Agent{ID: id, Name: agent}}
}

func newSlot(fc clockwork.Clock, player audio.Player, log *eventLog) *Slot {
	return New(fc, Options{
		Lifetime:      10 * time.Second,
		FrameInterval: time.Second,
		Player:        player,
		Sounds:        audio.Sounds{Default: "ding.mp3"},
		OnEvent:       log.add,
	})
}

func TestNotificationCleansUpAfterLifetime(t *testing.T) {
	fc := clockwork.NewFakeClock()
	player := &fakePlayer{}
	log := &eventLog{}
	s := newSlot(fc, player, log)
	defer s.Stop()

	s.Activate(deal("d1", "Alice"))
	if _, ok := s.Current(); !ok {
		t.Fatal("no active notification after Activate")
	}

	fc.Advance(9 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if _, ok := s.Current(); !ok {
		t.Fatal("notification gone before its lifetime")
	}

	fc.Advance(time.Second)
	waitFor(t, "cleanup", func() bool {
		_, ok := s.Current()
		return !ok
	})
	waitFor(t, "completed event", func() bool { return len(log.kinds()) == 2 })
	if k := log.kinds(); k[0] != Started || k[1] != Completed {
		t.Errorf("events = %v", k)
	}
	if pb := player.get(0); pb == nil || !pb.stopped() {
		t.Error("audio not stopped at cleanup")
	}
}

func TestActivateReplacesCurrent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	player := &fakePlayer{}
	log := &eventLog{}
	s := newSlot(fc, player, log)
	defer s.Stop()

	s.Activate(deal("d1", "Alice"))
	fc.Advance(3 * time.Second)
	s.Activate(deal("d2", "Bob"))

	if pb := player.get(0); pb == nil || !pb.stopped() {
		t.Fatal("first sound still playing after replacement")
	}
	view, ok := s.Current()
	if !ok || view.Notification.ID != "d2" || view.Elapsed != 0 {
		t.Fatalf("Current() = %+v, %v", view, ok)
	}

	// The first notification's cleanup would have fired at 10s.
	fc.Advance(7 * time.Second)
	time.Sleep(20 * time.Millisecond)
	if view, ok := s.Current(); !ok || view.Notification.ID != "d2" {
		t.Fatalf("replacement torn down by stale timer: %+v, %v", view, ok)
	}

	fc.Advance(3 * time.Second)
	waitFor(t, "replacement cleanup", func() bool {
		_, ok := s.Current()
		return !ok
	})
	want := []EventKind{Started, Replaced, Started, Completed}
	got := log.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestFramesAdvanceUntilDeadline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var mu sync.Mutex
	frames := 0
	s := New(fc, Options{
		Lifetime:      3 * time.Second,
		FrameInterval: time.Second,
		OnFrame: func(View) {
			mu.Lock()
			frames++
			mu.Unlock()
		},
	})
	defer s.Stop()

	s.Activate(deal("d1", "Alice"))
	for i := 1; i <= 2; i++ {
		fc.Advance(time.Second)
		want := i
		waitFor(t, "frame", func() bool {
			v, ok := s.Current()
			return ok && v.Frame == want
		})
	}
	mu.Lock()
	defer mu.Unlock()
	if frames != 2 {
		t.Errorf("frames = %d, want 2", frames)
	}
}

func TestDeactivateAndStop(t *testing.T) {
	fc := clockwork.NewFakeClock()
	player := &fakePlayer{}
	log := &eventLog{}
	s := newSlot(fc, player, log)

	s.Activate(deal("d1", "Alice"))
	s.Deactivate()
	s.Deactivate()
	if _, ok := s.Current(); ok {
		t.Fatal("notification still active after Deactivate")
	}
	if !player.get(0).stopped() {
		t.Error("audio still playing after Deactivate")
	}

	s.Activate(deal("d2", "Bob"))
	s.Stop()
	s.Stop()
	if !player.get(1).stopped() {
		t.Error("audio still playing after Stop")
	}
	if s.Activate(deal("d3", "Carol")) {
		t.Error("Activate accepted after Stop")
	}

	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	want := []EventKind{Started, Dismissed, Started, Dismissed}
	got := log.kinds()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestMilestoneView(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := New(fc, Options{})
	defer s.Stop()

	n := deal("d1", "Alice")
	n.ReachedBudget = true
	s.Activate(n)
	v, ok := s.Current()
	if !ok || !v.Milestone || v.Remaining != model.DefaultNotificationLifetime {
		t.Errorf("Current() = %+v, %v", v, ok)
	}
}

// timeline records, in order, what Activate does.
type timeline struct {
	mu    sync.Mutex
	steps []string
}

func (tl *timeline) add(step string) {
	tl.mu.Lock()
	tl.steps = append(tl.steps, step)
	tl.mu.Unlock()
}

func (tl *timeline) index(step string) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for i, s := range tl.steps {
		if s == step {
			return i
		}
	}
	return -1
}

type timelineClock struct {
	clockwork.Clock
	tl *timeline
}

func (c timelineClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	c.tl.add("timer " + d.String())
	return c.Clock.AfterFunc(d, f)
}

type timelinePlayer struct{ tl *timeline }

func (p timelinePlayer) Play(_ context.Context, source string) (audio.Playback, error) {
	p.tl.add("audio")
	return &fakePlayback{source: source, done: make(chan struct{})}, nil
}

func TestDisplayStartPrecedesCleanupScheduling(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tl := &timeline{}
	s := New(timelineClock{Clock: fc, tl: tl}, Options{
		Lifetime:      10 * time.Second,
		FrameInterval: 50 * time.Millisecond,
		Player:        timelinePlayer{tl: tl},
		Sounds:        audio.Sounds{Default: "ding.mp3"},
		OnEvent: func(ev Event) {
			if ev.Kind == Started {
				tl.add("started")
			}
		},
	})
	defer s.Stop()

	s.Activate(deal("d1", "Alice"))

	started, sound := tl.index("started"), tl.index("audio")
	frames, cleanup := tl.index("timer 50ms"), tl.index("timer 10s")
	if started < 0 || sound < 0 || frames < 0 || cleanup < 0 {
		t.Fatalf("missing steps: %v", tl.steps)
	}
	if !(started < sound && sound < frames && frames < cleanup) {
		t.Errorf("order = %v, want started, audio, frames, cleanup", tl.steps)
	}

	fc.Advance(10 * time.Second)
	waitFor(t, "cleanup at lifetime", func() bool {
		_, ok := s.Current()
		return !ok
	})
}
