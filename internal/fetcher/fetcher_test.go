package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

type loadCall struct {
	key string
	at  time.Time
}

type scriptedLoader struct {
	clock clockwork.Clock

	mu     sync.Mutex
	calls  []loadCall
	errors map[string][]error // consumed one per call
}

func (l *scriptedLoader) Load(_ context.Context, slide model.Slide) (*model.SlideData, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, loadCall{key: slide.Key(), at: l.clock.Now()})
	if errs := l.errors[slide.Key()]; len(errs) > 0 {
		err := errs[0]
		l.errors[slide.Key()] = errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &model.SlideData{Key: slide.Key(), Kind: slide.Kind, FetchedAt: l.clock.Now()}, nil
}

func (l *scriptedLoader) snapshot() []loadCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]loadCall(nil), l.calls...)
}

type recordingSink struct {
	mu      sync.Mutex
	puts    []string
	fails   []string
	loading []string
}

func (s *recordingSink) Put(d *model.SlideData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, d.Key)
}

func (s *recordingSink) Fail(key string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = append(s.fails, key)
}

func (s *recordingSink) MarkLoading(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = append(s.loading, keys...)
}

func leaderboardSlides(ids ...string) []model.Slide {
	out := make([]model.Slide, len(ids))
	for i, id := range ids {
		out[i] = model.Slide{Kind: model.SlideLeaderboard, RefID: id}
	}
	return out
}

// fakeClock is the part of clockwork's fake clock the tests drive.
type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, n int) error
}

// runPass drives a pass on the fake clock, advancing by each wait in turn.
func runPass(t *testing.T, f *Fetcher, fc fakeClock, slides []model.Slide, mode Mode, waits []time.Duration) []Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := make(chan Result, len(slides))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range f.Pass(ctx, slides, mode) {
			out <- r
		}
	}()

	for i, d := range waits {
		if err := fc.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("wait %d: no timer armed: %v", i, err)
		}
		fc.Advance(d)
	}

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("pass did not finish")
	}
	close(out)

	var results []Result
	for r := range out {
		results = append(results, r)
	}
	return results
}

func TestPassSpacesRequestsByDelay(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()
	loader := &scriptedLoader{clock: fc}
	sink := &recordingSink{}
	f := New(loader, sink, Policy{Delay: 3 * time.Second, Backoff: 10 * time.Second}, fc)

	results := runPass(t, f, fc, leaderboardSlides("a", "b", "c"), Silent,
		[]time.Duration{3 * time.Second, 3 * time.Second})

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	calls := loader.snapshot()
	if len(calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(calls))
	}
	for i, c := range calls {
		want := start.Add(time.Duration(i) * 3 * time.Second)
		if !c.at.Equal(want) {
			t.Errorf("call %d (%s) at +%v, want +%v", i, c.key, c.at.Sub(start), want.Sub(start))
		}
	}
	if len(sink.puts) != 3 || len(sink.loading) != 0 {
		t.Errorf("sink puts=%v loading=%v", sink.puts, sink.loading)
	}
}

func TestPassBacksOffOnceOnRateLimit(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()
	loader := &scriptedLoader{
		clock: fc,
		errors: map[string][]error{
			"leaderboard:b": {fmt.Errorf("stats: %w", model.ErrRateLimited)},
		},
	}
	f := New(loader, &recordingSink{}, Policy{Delay: 3 * time.Second, Backoff: 10 * time.Second}, fc)

	results := runPass(t, f, fc, leaderboardSlides("a", "b", "c"), Silent,
		[]time.Duration{3 * time.Second, 10 * time.Second, 3 * time.Second})

	calls := loader.snapshot()
	wantOffsets := []time.Duration{0, 3 * time.Second, 13 * time.Second, 16 * time.Second}
	wantKeys := []string{"leaderboard:a", "leaderboard:b", "leaderboard:b", "leaderboard:c"}
	if len(calls) != len(wantOffsets) {
		t.Fatalf("calls = %d, want %d", len(calls), len(wantOffsets))
	}
	for i, c := range calls {
		if c.key != wantKeys[i] || c.at.Sub(start) != wantOffsets[i] {
			t.Errorf("call %d = %s at +%v, want %s at +%v", i, c.key, c.at.Sub(start), wantKeys[i], wantOffsets[i])
		}
	}
	if results[1].Attempts != 2 || results[1].Err != nil {
		t.Errorf("retried result = %+v", results[1])
	}
}

func TestPassContinuesAfterPersistentFailure(t *testing.T) {
	fc := clockwork.NewFakeClock()
	loader := &scriptedLoader{
		clock: fc,
		errors: map[string][]error{
			"leaderboard:a": {errors.New("boom")},
			"leaderboard:b": {model.ErrRateLimited, model.ErrRateLimited},
		},
	}
	sink := &recordingSink{}
	f := New(loader, sink, Policy{Delay: time.Second, Backoff: 2 * time.Second}, fc)

	results := runPass(t, f, fc, leaderboardSlides("a", "b", "c"), Silent,
		[]time.Duration{time.Second, 2 * time.Second, time.Second})

	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[0].Err == nil || results[1].Err == nil || results[2].Err != nil {
		t.Errorf("errors = %v, %v, %v", results[0].Err, results[1].Err, results[2].Err)
	}
	if results[1].Attempts != 2 {
		t.Errorf("rate-limited slide attempts = %d, want exactly 2", results[1].Attempts)
	}
	if len(sink.fails) != 2 || len(sink.puts) != 1 || sink.puts[0] != "leaderboard:c" {
		t.Errorf("sink fails=%v puts=%v", sink.fails, sink.puts)
	}
}

func TestPassForegroundMarksLoading(t *testing.T) {
	fc := clockwork.NewFakeClock()
	sink := &recordingSink{}
	f := New(&scriptedLoader{clock: fc}, sink, Policy{}, fc)

	for range f.Pass(context.Background(), leaderboardSlides("a", "b"), Foreground) {
	}

	if len(sink.loading) != 2 {
		t.Errorf("loading = %v, want both keys", sink.loading)
	}
}

func TestPassStopsWhenConsumerBreaks(t *testing.T) {
	fc := clockwork.NewFakeClock()
	loader := &scriptedLoader{clock: fc}
	f := New(loader, nil, DefaultPolicy(), fc)

	for range f.Pass(context.Background(), leaderboardSlides("a", "b", "c"), Silent) {
		break
	}

	if got := len(loader.snapshot()); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestPassStopsOnCancel(t *testing.T) {
	fc := clockwork.NewFakeClock()
	loader := &scriptedLoader{clock: fc}
	f := New(loader, nil, DefaultPolicy(), fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int)
	go func() {
		n := 0
		for range f.Pass(ctx, leaderboardSlides("a", "b", "c"), Silent) {
			n++
		}
		done <- n
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := fc.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("no delay timer armed: %v", err)
	}
	cancel()

	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("results = %d, want 1", n)
		}
	case <-waitCtx.Done():
		t.Fatal("pass did not stop after cancel")
	}
	if got := len(loader.snapshot()); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestPassEmptyListYieldsNothing(t *testing.T) {
	f := New(&scriptedLoader{clock: clockwork.NewFakeClock()}, nil, DefaultPolicy(), nil)
	for range f.Pass(context.Background(), nil, Foreground) {
		t.Fatal("unexpected result")
	}
}
