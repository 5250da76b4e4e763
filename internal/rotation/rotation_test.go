package rotation

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

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

func TestEmptyUntilDurationsKnown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := New(fc, Options{})
	defer s.Stop()

	if snap := s.Snapshot(); snap.State != Empty || snap.Count != 0 {
		t.Fatalf("initial snapshot = %+v", snap)
	}

	s.SetDurations([]time.Duration{time.Second})
	snap := s.Snapshot()
	if snap.State != Playing || snap.Index != 0 || !snap.CycleStartedAt.Equal(fc.Now()) {
		t.Fatalf("after SetDurations = %+v", snap)
	}

	s.SetDurations(nil)
	if snap := s.Snapshot(); snap.State != Empty {
		t.Errorf("after clearing = %+v", snap)
	}
}

func TestRotatesInOrderAndWraps(t *testing.T) {
	fc := clockwork.NewFakeClock()
	var mu sync.Mutex
	var order []int
	s := New(fc, Options{OnChange: func(snap Snapshot) {
		mu.Lock()
		order = append(order, snap.Index)
		mu.Unlock()
	}})
	defer s.Stop()

	durations := []time.Duration{2 * time.Second, 3 * time.Second, 4 * time.Second}
	s.SetDurations(durations)

	idx := 0
	for step := 0; step < 4; step++ {
		fc.Advance(durations[idx])
		idx = (idx + 1) % len(durations)
		want := idx
		waitFor(t, "advance", func() bool { return s.Snapshot().Index == want })
	}

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 1, 2, 0, 1}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestCycleStartsAtScheduledDeadline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()
	s := New(fc, Options{})
	defer s.Stop()

	s.SetDurations([]time.Duration{20 * time.Second, 15 * time.Second})

	fc.Advance(20 * time.Second)
	waitFor(t, "slide 2", func() bool { return s.Snapshot().Index == 1 })
	snap := s.Snapshot()
	if got := snap.CycleStartedAt.Sub(start); got != 20*time.Second {
		t.Errorf("slide 2 started at +%v, want +20s", got)
	}
	if snap.Duration != 15*time.Second {
		t.Errorf("slide 2 duration = %v", snap.Duration)
	}

	fc.Advance(15 * time.Second)
	waitFor(t, "wrap to slide 1", func() bool { return s.Snapshot().Index == 0 })
	if got := s.Snapshot().CycleStartedAt.Sub(start); got != 35*time.Second {
		t.Errorf("wrap started at +%v, want +35s", got)
	}
}

func TestProgressSamplesAndResets(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := New(fc, Options{ProgressTick: 100 * time.Millisecond})
	defer s.Stop()

	s.SetDurations([]time.Duration{20 * time.Second, 20 * time.Second})
	fc.Advance(10 * time.Second)
	waitFor(t, "half progress", func() bool { return s.Snapshot().Progress == 0.5 })

	fc.Advance(10 * time.Second)
	waitFor(t, "next slide", func() bool { return s.Snapshot().Index == 1 })
	if p := s.Snapshot().Progress; p != 0 {
		t.Errorf("progress after advance = %v, want 0", p)
	}
}

func TestSetDurationsKeepsCountdown(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()
	s := New(fc, Options{})
	defer s.Stop()

	s.SetDurations([]time.Duration{10 * time.Second, 10 * time.Second})
	fc.Advance(4 * time.Second)
	s.SetDurations([]time.Duration{10 * time.Second, 10 * time.Second, 5 * time.Second})

	snap := s.Snapshot()
	if snap.Index != 0 || !snap.CycleStartedAt.Equal(start) || snap.Count != 3 {
		t.Fatalf("after update = %+v", snap)
	}

	fc.Advance(6 * time.Second)
	waitFor(t, "advance at original deadline", func() bool { return s.Snapshot().Index == 1 })
}

func TestSetDurationsWrapsWhenIndexFallsOff(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := New(fc, Options{})
	defer s.Stop()

	s.SetDurations([]time.Duration{time.Second, time.Second, time.Second})
	s.Next()
	s.Next()
	if got := s.Snapshot().Index; got != 2 {
		t.Fatalf("index = %d, want 2", got)
	}

	s.SetDurations([]time.Duration{time.Second})
	if snap := s.Snapshot(); snap.Index != 0 || !snap.CycleStartedAt.Equal(fc.Now()) {
		t.Errorf("after shrink = %+v", snap)
	}
}

func TestPrevWraps(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := New(fc, Options{})
	defer s.Stop()

	s.SetDurations([]time.Duration{time.Second, time.Second, time.Second})
	s.Prev()
	if got := s.Snapshot().Index; got != 2 {
		t.Errorf("Prev from 0 = %d, want 2", got)
	}
}

func TestStopSilencesTimers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	changes := 0
	var mu sync.Mutex
	s := New(fc, Options{OnChange: func(Snapshot) {
		mu.Lock()
		changes++
		mu.Unlock()
	}})

	s.SetDurations([]time.Duration{time.Second})
	s.Stop()
	s.Stop()
	s.SetDurations([]time.Duration{time.Second})
	fc.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if changes != 1 {
		t.Errorf("changes = %d, want 1", changes)
	}
	if st := s.Snapshot().State; st != Stopped {
		t.Errorf("state = %v, want stopped", st)
	}
}
