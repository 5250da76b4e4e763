package display

import (
	"sync"

	"github.com/tinytelemetry/dealboard/internal/notify"
	"github.com/tinytelemetry/dealboard/internal/rotation"
)

// EventKind classifies display changes.
type EventKind int

const (
	EventPhase EventKind = iota
	EventSlideshow
	EventSlide
	EventProgress
	EventData
	EventPass
	EventNotification
	EventFrame
	EventDeal
)

// Event tells observers that something visible changed. Observers re-read
// Snapshot for the full picture.
type Event struct {
	Kind         EventKind
	Key          string            // EventData
	Rotation     rotation.Snapshot // EventSlide, EventProgress
	Notification *notify.Event     // EventNotification
}

// Observe registers fn for every change. fn runs on timer and network
// goroutines, outside any display lock, and must not block.
func (d *Display) Observe(fn func(Event)) (cancel func()) {
	d.obsMu.Lock()
	id := d.nextObserve
	d.nextObserve++
	d.observers[id] = fn
	d.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.obsMu.Lock()
			delete(d.observers, id)
			d.obsMu.Unlock()
		})
	}
}

func (d *Display) emit(ev Event) {
	d.obsMu.Lock()
	fns := make([]func(Event), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
