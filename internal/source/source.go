// Package source reads slideshows and slide payloads from the dashboard
// backend. The display never mutates anything through it.
package source

import (
	"context"

	"github.com/tinytelemetry/dealboard/internal/model"
)

// Source is the read-only contract of the dashboard backend.
type Source interface {
	Slideshow(ctx context.Context, id string) (*model.Slideshow, error)
	LeaderboardStats(ctx context.Context, leaderboardID string) (*model.LeaderboardStats, error)
	TrendHistory(ctx context.Context, leaderboardID string) (*model.TrendHistory, error)
	Quotes(ctx context.Context) ([]model.Quote, error)
}
