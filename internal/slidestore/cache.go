package slidestore

import (
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Cache hands out one Store per slideshow for the life of the process.
// Entries are never evicted, so remounting a slideshow starts from the data
// the previous mount left behind.
type Cache struct {
	clock     clockwork.Clock
	persister Persister

	mu     sync.Mutex
	stores map[string]*Store
}

// NewCache creates a cache. clock and persister may be nil.
func NewCache(clock clockwork.Clock, persister Persister) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		clock:     clock,
		persister: persister,
		stores:    make(map[string]*Store),
	}
}

// For returns the store for slideshowID, creating and warm-starting it on
// first use.
func (c *Cache) For(slideshowID string) *Store {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.stores[slideshowID]; ok {
		return s
	}

	s := NewStore(slideshowID, c.clock)
	if c.persister != nil {
		saved, err := c.persister.LoadSlides(slideshowID)
		if err != nil {
			slog.Warn("slidestore: warm start failed", "slideshow", slideshowID, "error", err)
		}
		for _, d := range saved {
			if d != nil && d.Key != "" {
				s.data[d.Key] = d
			}
		}
		if len(saved) > 0 {
			slog.Info("slidestore: warm start", "slideshow", slideshowID, "slides", len(saved))
		}
		s.persister = c.persister
	}
	c.stores[slideshowID] = s
	return s
}

// Len returns the number of slideshows cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stores)
}
