package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/fetcher"
)

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, n int) error
}

type passRecorder struct {
	mu      sync.Mutex
	modes   []fetcher.Mode
	block   chan struct{} // when set, passes wait on it
	entered chan struct{}
}

func (r *passRecorder) run(ctx context.Context, mode fetcher.Mode) {
	r.mu.Lock()
	r.modes = append(r.modes, mode)
	block, entered := r.block, r.entered
	r.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
}

func (r *passRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.modes)
}

func (r *passRecorder) mode(i int) fetcher.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modes[i]
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

// settleBriefly gives stray goroutines a chance to run before asserting
// that something did not happen.
func settleBriefly() { time.Sleep(20 * time.Millisecond) }

func blockUntil(t *testing.T, fc fakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, n); err != nil {
		t.Fatalf("waiting for %d timers: %v", n, err)
	}
}

func TestInitialPassIsForeground(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &passRecorder{}
	c := New(fc, DefaultConfig(), rec.run)
	defer c.Stop()

	c.Start(true)

	waitFor(t, "initial pass", func() bool { return rec.count() == 1 })
	if rec.mode(0) != fetcher.Foreground {
		t.Errorf("initial pass mode = %v, want foreground", rec.mode(0))
	}
}

func TestHeartbeatFiresEveryInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &passRecorder{}
	c := New(fc, Config{Interval: 120 * time.Second, Settle: 5 * time.Second}, rec.run)
	defer c.Stop()

	c.Start(false)
	blockUntil(t, fc, 1)

	fc.Advance(35 * time.Second)
	settleBriefly()
	if got := rec.count(); got != 0 {
		t.Fatalf("passes at 35s = %d, want 0", got)
	}

	fc.Advance(85 * time.Second)
	waitFor(t, "first heartbeat", func() bool { return rec.count() == 1 })
	if rec.mode(0) != fetcher.Silent {
		t.Errorf("heartbeat mode = %v, want silent", rec.mode(0))
	}

	waitFor(t, "pass to finish", func() bool { return !c.Running() })
	blockUntil(t, fc, 1)
	fc.Advance(120 * time.Second)
	waitFor(t, "second heartbeat", func() bool { return rec.count() == 2 })
}

func TestSettleFollowsEachDeal(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &passRecorder{}
	c := New(fc, Config{Interval: time.Hour, Settle: 5 * time.Second}, rec.run)
	defer c.Stop()

	c.Start(false)
	c.Settle()
	fc.Advance(3 * time.Second)
	c.Settle()
	fc.Advance(1 * time.Second)
	settleBriefly()
	if got := rec.count(); got != 0 {
		t.Fatalf("passes 4s after first deal = %d, want 0", got)
	}

	// The first deal's timer is not pushed back by the second.
	fc.Advance(1 * time.Second)
	waitFor(t, "settle pass for first deal", func() bool { return rec.count() == 1 })

	// heartbeat + follow-up for the deal at 3s
	blockUntil(t, fc, 2)
	fc.Advance(2 * time.Second)
	settleBriefly()
	if got := rec.count(); got != 1 {
		t.Fatalf("passes 4s after second deal = %d, want 1", got)
	}
	fc.Advance(1 * time.Second)
	waitFor(t, "settle pass for second deal", func() bool { return rec.count() == 2 })

	fc.Advance(time.Minute)
	settleBriefly()
	if got := rec.count(); got != 2 {
		t.Errorf("passes after deals stopped = %d, want 2", got)
	}
}

func TestSteadyDealsStillRefresh(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &passRecorder{}
	c := New(fc, Config{Interval: time.Hour, Settle: 5 * time.Second}, rec.run)
	defer c.Stop()

	c.Start(false)
	for i := 0; i < 15; i++ {
		c.Settle()
		blockUntil(t, fc, 2)
		fc.Advance(4 * time.Second)
	}

	// Deals every 4s over 60s: no deal may wait more than one settle
	// delay, so roughly one pass per deal.
	waitFor(t, "settle passes during the stream", func() bool { return rec.count() >= 12 })
	for i := 0; i < rec.count(); i++ {
		if rec.mode(i) != fetcher.Silent {
			t.Fatalf("pass %d mode = %v, want silent", i, rec.mode(i))
		}
	}
}

func TestOverlappingTriggersCoalesce(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &passRecorder{block: make(chan struct{}), entered: make(chan struct{}, 8)}
	c := New(fc, Config{Interval: time.Hour, Settle: time.Second}, rec.run)
	defer c.Stop()

	c.Start(true)
	<-rec.entered

	c.Trigger()
	c.Trigger()
	c.Settle()
	fc.Advance(time.Second)
	waitFor(t, "pending flag", func() bool { return c.Status().Pending })

	close(rec.block)
	waitFor(t, "follow-up pass", func() bool { return rec.count() == 2 })
	waitFor(t, "idle", func() bool { return !c.Running() })
	settleBriefly()

	if got := rec.count(); got != 2 {
		t.Fatalf("passes = %d, want 2", got)
	}
	if rec.mode(1) != fetcher.Silent {
		t.Errorf("follow-up mode = %v, want silent", rec.mode(1))
	}
	if st := c.Status(); st.Passes != 2 || st.Pending {
		t.Errorf("status = %+v", st)
	}
}

func TestStopCancelsPassAndTimers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	rec := &passRecorder{block: make(chan struct{}), entered: make(chan struct{}, 8)}
	c := New(fc, Config{Interval: 10 * time.Second, Settle: time.Second}, rec.run)

	c.Start(true)
	<-rec.entered
	c.Settle()

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the running pass")
	}

	c.Stop()
	c.Trigger()
	c.Settle()
	fc.Advance(time.Minute)
	settleBriefly()
	if got := rec.count(); got != 1 {
		t.Errorf("passes after Stop = %d, want 1", got)
	}
	if c.Running() {
		t.Error("Running() = true after Stop")
	}
}
