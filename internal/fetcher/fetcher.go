// Package fetcher pulls slide payloads one at a time, spacing requests so
// the upstream rate limiter is never tripped.
package fetcher

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// Mode selects how a pass presents itself on screen.
type Mode int

const (
	// Foreground is the first load: slides show a loading indicator until
	// their data arrives.
	Foreground Mode = iota
	// Silent is a background reload: old data stays visible until replaced.
	Silent
)

func (m Mode) String() string {
	if m == Foreground {
		return "foreground"
	}
	return "silent"
}

// Policy holds the pacing constants of a pass.
type Policy struct {
	Delay   time.Duration // between completion of one call and start of the next
	Backoff time.Duration // wait before the single retry of a rate-limited call
}

// DefaultPolicy returns the 3s/10s pacing.
func DefaultPolicy() Policy {
	return Policy{
		Delay:   model.DefaultFetchDelay,
		Backoff: model.DefaultRateLimitBackoff,
	}
}

// Loader performs exactly one network call for one slide.
type Loader interface {
	Load(ctx context.Context, slide model.Slide) (*model.SlideData, error)
}

// Sink receives results as they land. Put must replace the whole value.
type Sink interface {
	Put(data *model.SlideData)
	Fail(key string, err error)
	MarkLoading(keys []string)
}

// Result is one element of a pass.
type Result struct {
	Slide    model.Slide
	Data     *model.SlideData
	Err      error
	Attempts int
	Mode     Mode
}

// Fetcher runs sequential fetch passes.
type Fetcher struct {
	loader Loader
	sink   Sink
	policy Policy
	clock  clockwork.Clock
}

// New creates a fetcher. A nil sink discards results; a nil clock uses the
// real clock.
func New(loader Loader, sink Sink, policy Policy, clock clockwork.Clock) *Fetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	if policy.Backoff < 0 {
		policy.Backoff = 0
	}
	return &Fetcher{loader: loader, sink: sink, policy: policy, clock: clock}
}

// WithSink returns a copy of f writing into sink.
func (f *Fetcher) WithSink(sink Sink) *Fetcher {
	cp := *f
	cp.sink = sink
	return &cp
}

// Pass fetches slides strictly in order, one call in flight at a time.
// The returned sequence is lazy and single-use: the first call happens when
// iteration starts, and stopping the iteration (or cancelling ctx) ends the
// pass. A failed slide never stops the remaining ones.
func (f *Fetcher) Pass(ctx context.Context, slides []model.Slide, mode Mode) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		if len(slides) == 0 {
			return
		}
		if mode == Foreground && f.sink != nil {
			keys := make([]string, len(slides))
			for i, s := range slides {
				keys[i] = s.Key()
			}
			f.sink.MarkLoading(keys)
		}

		start := f.clock.Now()
		failed := 0
		for i, slide := range slides {
			if i > 0 {
				if err := f.wait(ctx, f.policy.Delay); err != nil {
					return
				}
			}

			res := f.fetchOne(ctx, slide, mode)
			if ctx.Err() != nil {
				return
			}
			if res.Err != nil {
				failed++
			}
			if !yield(res) {
				return
			}
		}

		slog.Info("fetcher: pass complete",
			"mode", mode.String(),
			"slides", len(slides),
			"failed", failed,
			"elapsed", f.clock.Since(start),
		)
	}
}

// fetchOne loads a slide, retrying once after Backoff when throttled.
func (f *Fetcher) fetchOne(ctx context.Context, slide model.Slide, mode Mode) Result {
	res := Result{Slide: slide, Mode: mode}

	data, err := f.loader.Load(ctx, slide)
	res.Attempts = 1
	if err != nil && errors.Is(err, model.ErrRateLimited) && ctx.Err() == nil {
		slog.Warn("fetcher: rate limited, backing off",
			"slide", slide.Key(),
			"backoff", f.policy.Backoff,
		)
		if werr := f.wait(ctx, f.policy.Backoff); werr != nil {
			res.Err = werr
			return res
		}
		data, err = f.loader.Load(ctx, slide)
		res.Attempts = 2
	}

	if err != nil {
		res.Err = err
		if ctx.Err() == nil {
			slog.Warn("fetcher: slide fetch failed",
				"slide", slide.Key(),
				"attempts", res.Attempts,
				"error", err,
			)
			if f.sink != nil {
				f.sink.Fail(slide.Key(), err)
			}
		}
		return res
	}

	res.Data = data
	if f.sink != nil && data != nil {
		f.sink.Put(data)
	}
	return res
}

func (f *Fetcher) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := f.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
