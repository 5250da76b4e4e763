package snapshot

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// RetentionCleaner periodically deletes deals older than the retention
// period.
type RetentionCleaner struct {
	store    *Store
	clock    clockwork.Clock
	keepDays int
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner runs one cleanup immediately, then every hour.
// It returns nil when keepDays is 0 (disabled).
func NewRetentionCleaner(store *Store, clock clockwork.Clock, keepDays int) *RetentionCleaner {
	if keepDays <= 0 || store == nil {
		return nil
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rc := &RetentionCleaner{
		store:    store,
		clock:    clock,
		keepDays: keepDays,
		done:     make(chan struct{}),
	}

	// Catch up after downtime.
	rc.cleanup()

	rc.wg.Add(1)
	go rc.loop()
	return rc
}

func (rc *RetentionCleaner) loop() {
	defer rc.wg.Done()
	ticker := rc.clock.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			rc.cleanup()
		case <-rc.done:
			return
		}
	}
}

func (rc *RetentionCleaner) cleanup() {
	cutoff := rc.clock.Now().Add(-time.Duration(rc.keepDays) * 24 * time.Hour)
	rows, err := rc.store.DeleteDealsBefore(cutoff)
	if err != nil {
		slog.Warn("snapshot: retention cleanup failed", "error", err)
		return
	}
	if rows > 0 {
		slog.Info("snapshot: retention cleanup", "deleted", rows, "keep_days", rc.keepDays)
	}
}

// Stop ends the cleanup loop and waits for it.
func (rc *RetentionCleaner) Stop() {
	if rc == nil {
		return
	}
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}
