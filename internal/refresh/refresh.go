// Package refresh decides when slide data is reloaded: a fixed heartbeat,
// a short settle delay after each deal, and manual triggers. Overlapping
// requests never run two passes at once.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/fetcher"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// PassFunc runs one complete fetch pass and returns when it is done.
type PassFunc func(ctx context.Context, mode fetcher.Mode)

// Config holds the refresh timings.
type Config struct {
	Interval time.Duration // heartbeat period
	Settle   time.Duration // delay after a deal before reloading
}

// DefaultConfig returns the 120s heartbeat and 5s settle delay.
func DefaultConfig() Config {
	return Config{
		Interval: model.DefaultRefreshInterval,
		Settle:   model.DefaultSettleDelay,
	}
}

// Status is a point-in-time view of the coordinator.
type Status struct {
	Running      bool      `json:"running"`
	Pending      bool      `json:"pending"`
	Passes       int       `json:"passes"`
	LastStarted  time.Time `json:"lastStarted"`
	LastFinished time.Time `json:"lastFinished"`
}

// Coordinator owns the refresh timers of one mounted display.
type Coordinator struct {
	clock clockwork.Clock
	cfg   Config
	pass  PassFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	heartbeat clockwork.Timer
	settle    clockwork.Timer
	settleGen uint64
	lastDeal  time.Time
	redeal    bool // a deal arrived while settle was armed
	running   bool
	pending   bool
	status    Status
}

// New creates a stopped coordinator. Nothing fires until Start.
func New(clock clockwork.Clock, cfg Config, pass PassFunc) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Settle <= 0 {
		cfg.Settle = def.Settle
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		clock:  clock,
		cfg:    cfg,
		pass:   pass,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start arms the heartbeat. With initial set, a foreground pass starts
// immediately.
func (c *Coordinator) Start(initial bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	c.heartbeat = c.clock.AfterFunc(c.cfg.Interval, c.onHeartbeat)
	if initial {
		c.launchLocked(fetcher.Foreground)
	}
}

// Settle schedules a silent pass Settle after a deal. An armed timer is
// never pushed back: it fires on time, and deals that arrived meanwhile
// get a follow-up timer measured from the latest of them.
func (c *Coordinator) Settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.stopped {
		return
	}
	c.lastDeal = c.clock.Now()
	if c.settle != nil {
		c.redeal = true
		return
	}
	c.armSettleLocked(c.cfg.Settle)
}

func (c *Coordinator) armSettleLocked(d time.Duration) {
	c.settleGen++
	gen := c.settleGen
	c.settle = c.clock.AfterFunc(d, func() { c.onSettle(gen) })
}

// Trigger requests a silent pass now.
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.stopped {
		return
	}
	c.launchLocked(fetcher.Silent)
}

// Running reports whether a pass is in flight.
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Status returns the current counters.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.status
	st.Running = c.running
	st.Pending = c.pending
	return st
}

// Stop cancels both timers and the running pass, then waits for the pass
// to return. Safe to call more than once.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		c.wg.Wait()
		return
	}
	c.stopped = true
	c.pending = false
	c.redeal = false
	if c.heartbeat != nil {
		c.heartbeat.Stop()
	}
	if c.settle != nil {
		c.settle.Stop()
	}
	c.settleGen++
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Coordinator) onHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.heartbeat = c.clock.AfterFunc(c.cfg.Interval, c.onHeartbeat)
	c.launchLocked(fetcher.Silent)
}

func (c *Coordinator) onSettle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || gen != c.settleGen {
		return
	}
	c.settle = nil
	c.launchLocked(fetcher.Silent)

	if !c.redeal {
		return
	}
	c.redeal = false
	if wait := c.lastDeal.Add(c.cfg.Settle).Sub(c.clock.Now()); wait > 0 {
		c.armSettleLocked(wait)
		return
	}
	c.launchLocked(fetcher.Silent)
}

// launchLocked starts a pass, or marks one pending if a pass is running.
func (c *Coordinator) launchLocked(mode fetcher.Mode) {
	if c.running {
		if !c.pending {
			slog.Debug("refresh: pass in flight, coalescing")
		}
		c.pending = true
		return
	}
	c.running = true
	c.wg.Add(1)
	go c.run(mode)
}

func (c *Coordinator) run(mode fetcher.Mode) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		c.status.LastStarted = c.clock.Now()
		c.mu.Unlock()

		c.pass(c.ctx, mode)

		c.mu.Lock()
		c.status.Passes++
		c.status.LastFinished = c.clock.Now()
		if c.pending && !c.stopped {
			c.pending = false
			mode = fetcher.Silent
			c.mu.Unlock()
			continue
		}
		c.running = false
		c.mu.Unlock()
		return
	}
}
