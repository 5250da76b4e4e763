// Package layout decides how slide content that outgrows its viewport is
// presented: scaled down to fit, or scrolled with the leader pinned.
package layout

import (
	"time"

	"github.com/tinytelemetry/dealboard/internal/model"
)

const (
	// FitMargin leaves a little air around scaled content.
	FitMargin = 0.95
	// ScrollPad stretches a scroll cycle to leave a pause at each end.
	ScrollPad = 1.1
)

// Mode is the overflow strategy of a presentation.
type Mode int

const (
	Fit Mode = iota
	Scroll
)

func (m Mode) String() string {
	if m == Scroll {
		return "scroll"
	}
	return "fit"
}

// ModeFor returns the overflow strategy for a slide. Ranked lists scroll,
// everything else fits.
func ModeFor(kind model.SlideKind, visualization string) Mode {
	if kind != model.SlideLeaderboard {
		return Fit
	}
	switch visualization {
	case model.VisualizationCards, model.VisualizationBars:
		return Fit
	default:
		return Scroll
	}
}

// FitScale is the uniform scale that makes content fit viewport.
func FitScale(viewport, content float64) float64 {
	if content <= 0 || viewport <= 0 {
		return 1
	}
	return min(1, viewport*FitMargin/content)
}

// ScrollPlan is a looping top-to-bottom scroll.
type ScrollPlan struct {
	Distance float64       // px to travel
	Speed    float64       // px per second
	Duration time.Duration // full cycle including both pauses
}

// PlanScroll plans a scroll of the part of content that does not fit.
// The zero plan means no scrolling is needed.
func PlanScroll(content, viewport, speed float64) ScrollPlan {
	if speed <= 0 {
		speed = model.DefaultScrollSpeed
	}
	distance := content - viewport
	if distance <= 0 {
		return ScrollPlan{}
	}
	secs := distance / speed * ScrollPad
	return ScrollPlan{
		Distance: distance,
		Speed:    speed,
		Duration: time.Duration(secs * float64(time.Second)),
	}
}

// Active reports whether the plan scrolls at all.
func (p ScrollPlan) Active() bool { return p.Distance > 0 && p.Duration > 0 }

// Offset returns the scroll position after elapsed. The cycle holds at the
// top for half the pad, travels linearly, holds at the bottom, then loops.
func (p ScrollPlan) Offset(elapsed time.Duration) float64 {
	if !p.Active() || elapsed <= 0 {
		return 0
	}
	t := (elapsed % p.Duration).Seconds()
	travel := p.Distance / p.Speed
	pause := (p.Duration.Seconds() - travel) / 2

	switch {
	case t < pause:
		return 0
	case t < pause+travel:
		return (t - pause) * p.Speed
	default:
		return p.Distance
	}
}
