package model

import (
	"errors"
	"time"
)

// ErrRateLimited is matched (errors.Is) by any upstream error that means
// "too many requests".
var ErrRateLimited = errors.New("rate limited")

// SlideKind discriminates what a slide references.
type SlideKind string

const (
	SlideLeaderboard SlideKind = "leaderboard"
	SlideTrend       SlideKind = "trend"
	SlideQuotes      SlideKind = "quotes"
)

// Valid reports whether k is a known slide kind.
func (k SlideKind) Valid() bool {
	switch k {
	case SlideLeaderboard, SlideTrend, SlideQuotes:
		return true
	}
	return false
}

// Slide is one rotation unit of a slideshow.
type Slide struct {
	Kind     SlideKind     `json:"kind"`
	RefID    string        `json:"refId,omitempty"`
	Duration time.Duration `json:"duration"` // zero = use slideshow fallback
}

// Key identifies the SlideData backing this slide.
func (s Slide) Key() string {
	if s.RefID == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.RefID
}

// Slideshow is authored externally and read-only to the display.
type Slideshow struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Slides           []Slide       `json:"slides"`
	FallbackDuration time.Duration `json:"fallbackDuration"`
	Active           bool          `json:"active"`
}

// DurationOf returns the hold duration of slide i.
func (s *Slideshow) DurationOf(i int) time.Duration {
	if i >= 0 && i < len(s.Slides) && s.Slides[i].Duration > 0 {
		return s.Slides[i].Duration
	}
	if s.FallbackDuration > 0 {
		return s.FallbackDuration
	}
	return DefaultSlideDuration
}

// Durations returns the hold duration of every slide, in order.
func (s *Slideshow) Durations() []time.Duration {
	out := make([]time.Duration, len(s.Slides))
	for i := range s.Slides {
		out[i] = s.DurationOf(i)
	}
	return out
}

// UniqueSlides returns slides with distinct keys in first-seen order.
func (s *Slideshow) UniqueSlides() []Slide {
	seen := make(map[string]struct{}, len(s.Slides))
	out := make([]Slide, 0, len(s.Slides))
	for _, sl := range s.Slides {
		if _, ok := seen[sl.Key()]; ok {
			continue
		}
		seen[sl.Key()] = struct{}{}
		out = append(out, sl)
	}
	return out
}

// SlideData is the last-known-good payload for one slide key. Values are
// never mutated after construction; updates replace the whole value.
type SlideData struct {
	Key         string            `json:"key"`
	Kind        SlideKind         `json:"kind"`
	Leaderboard *LeaderboardStats `json:"leaderboard,omitempty"`
	Trend       *TrendHistory     `json:"trend,omitempty"`
	Quotes      []Quote           `json:"quotes,omitempty"`
	FetchedAt   time.Time         `json:"fetchedAt"`
}
