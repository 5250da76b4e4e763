package source

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// Loader turns a slide into its SlideData by calling the matching endpoint.
type Loader struct {
	src   Source
	clock clockwork.Clock
}

// NewLoader wraps src. A nil clock uses the real clock.
func NewLoader(src Source, clock clockwork.Clock) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{src: src, clock: clock}
}

// Load performs exactly one backend call for slide.
func (l *Loader) Load(ctx context.Context, slide model.Slide) (*model.SlideData, error) {
	data := &model.SlideData{Key: slide.Key(), Kind: slide.Kind}

	switch slide.Kind {
	case model.SlideLeaderboard:
		stats, err := l.src.LeaderboardStats(ctx, slide.RefID)
		if err != nil {
			return nil, err
		}
		data.Leaderboard = stats
	case model.SlideTrend:
		trend, err := l.src.TrendHistory(ctx, slide.RefID)
		if err != nil {
			return nil, err
		}
		data.Trend = trend
	case model.SlideQuotes:
		quotes, err := l.src.Quotes(ctx)
		if err != nil {
			return nil, err
		}
		data.Quotes = quotes
	default:
		return nil, fmt.Errorf("source: unsupported slide kind %q", slide.Kind)
	}

	data.FetchedAt = l.clock.Now()
	return data, nil
}
