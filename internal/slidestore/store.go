// Package slidestore keeps the last-known-good data of every slide.
package slidestore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// Persister receives successful writes and warm-starts new stores.
type Persister interface {
	SaveSlide(slideshowID string, data *model.SlideData) error
	LoadSlides(slideshowID string) ([]*model.SlideData, error)
}

// Failure records the most recent error for a slide key.
type Failure struct {
	Err string    `json:"error"`
	At  time.Time `json:"at"`
}

// Store is the per-slideshow data cache. Writes replace whole values, so
// readers always see either the old or the new payload.
type Store struct {
	slideshowID string
	clock       clockwork.Clock
	persister   Persister

	mu       sync.RWMutex
	data     map[string]*model.SlideData
	loading  map[string]bool
	failures map[string]Failure
	subs     map[int]func(key string)
	nextSub  int
}

// NewStore creates an empty store for one slideshow. clock stamps
// failures; nil means the real clock.
func NewStore(slideshowID string, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		slideshowID: slideshowID,
		clock:       clock,
		data:        make(map[string]*model.SlideData),
		loading:     make(map[string]bool),
		failures:    make(map[string]Failure),
		subs:        make(map[int]func(key string)),
	}
}

// SlideshowID returns the slideshow this store belongs to.
func (s *Store) SlideshowID() string { return s.slideshowID }

// Get returns the last-known-good data for key.
func (s *Store) Get(key string) (*model.SlideData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[key]
	return d, ok
}

// Put replaces the data for d.Key and clears its loading and error state.
func (s *Store) Put(d *model.SlideData) {
	if d == nil || d.Key == "" {
		return
	}
	s.mu.Lock()
	s.data[d.Key] = d
	delete(s.loading, d.Key)
	delete(s.failures, d.Key)
	subs := s.subscribersLocked()
	persister := s.persister
	s.mu.Unlock()

	if persister != nil {
		if err := persister.SaveSlide(s.slideshowID, d); err != nil {
			slog.Warn("slidestore: persist failed", "slide", d.Key, "error", err)
		}
	}
	notify(subs, d.Key)
}

// Fail records err for key. Existing data is kept.
func (s *Store) Fail(key string, err error) {
	s.mu.Lock()
	delete(s.loading, key)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.failures[key] = Failure{Err: msg, At: s.clock.Now()}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, key)
}

// MarkLoading flags keys without data as loading. Keys that already have
// data keep showing it.
func (s *Store) MarkLoading(keys []string) {
	s.mu.Lock()
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			continue
		}
		s.loading[k] = true
	}
	s.mu.Unlock()
}

// Loading reports whether key is waiting on its first foreground load.
func (s *Store) Loading(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[key]
}

// LastError returns the most recent failure for key, if any.
func (s *Store) LastError(key string) (Failure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.failures[key]
	return f, ok
}

// Len returns the number of keys with data.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns every key with data.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Subscribe registers fn for every change. The returned func unregisters it.
func (s *Store) Subscribe(fn func(key string)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) subscribersLocked() []func(string) {
	if len(s.subs) == 0 {
		return nil
	}
	out := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(string), key string) {
	for _, fn := range subs {
		fn(key)
	}
}
