package source

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// Wire shapes of the backend. Durations are whole seconds.

type slideDTO struct {
	Type          string `json:"type" yaml:"type"`
	LeaderboardID string `json:"leaderboardId,omitempty" yaml:"leaderboard"`
	Duration      int    `json:"duration,omitempty" yaml:"duration"`
}

type slideshowDTO struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	Slides   []slideDTO `json:"slides" yaml:"slides"`
	Duration int        `json:"duration" yaml:"duration"`
	IsActive *bool      `json:"isActive" yaml:"active"`
}

type agentDTO struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	ProfileImageURL string `json:"profileImageUrl,omitempty" yaml:"image"`
}

type statDTO struct {
	Rank            int             `json:"rank" yaml:"rank"`
	Agent           agentDTO        `json:"agent" yaml:"agent"`
	TotalCommission decimal.Decimal `json:"totalCommission" yaml:"commission"`
	DealCount       int             `json:"dealCount" yaml:"deals"`
	SMSCount        int             `json:"smsCount" yaml:"sms"`
}

type leaderboardDTO struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	VisualizationMode string `json:"visualizationMode" yaml:"visualization"`
	TimePeriod        string `json:"timePeriod,omitempty" yaml:"period"`
}

type statsDTO struct {
	Leaderboard leaderboardDTO `json:"leaderboard" yaml:"leaderboard"`
	Stats       []statDTO      `json:"stats" yaml:"stats"`
}

type pointDTO struct {
	At    time.Time `json:"at" yaml:"at"`
	Value float64   `json:"value" yaml:"value"`
}

type seriesDTO struct {
	Group  string     `json:"group" yaml:"group"`
	Points []pointDTO `json:"points" yaml:"points"`
}

type trendDTO struct {
	LeaderboardID string      `json:"leaderboardId" yaml:"leaderboard"`
	Name          string      `json:"name,omitempty" yaml:"name"`
	Metric        string      `json:"metric" yaml:"metric"`
	Series        []seriesDTO `json:"series" yaml:"series"`
}

type quoteDTO struct {
	Text   string `json:"text" yaml:"text"`
	Author string `json:"author,omitempty" yaml:"author"`
}

func (d slideshowDTO) toModel() *model.Slideshow {
	ss := &model.Slideshow{
		ID:               d.ID,
		Name:             d.Name,
		FallbackDuration: time.Duration(d.Duration) * time.Second,
		Active:           d.IsActive == nil || *d.IsActive,
		Slides:           make([]model.Slide, 0, len(d.Slides)),
	}
	for _, s := range d.Slides {
		kind := model.SlideKind(s.Type)
		if kind == "" {
			kind = model.SlideLeaderboard
		}
		ss.Slides = append(ss.Slides, model.Slide{
			Kind:     kind,
			RefID:    s.LeaderboardID,
			Duration: time.Duration(s.Duration) * time.Second,
		})
	}
	return ss
}

func (d statsDTO) toModel() *model.LeaderboardStats {
	vis := d.Leaderboard.VisualizationMode
	if vis == "" {
		vis = model.VisualizationTable
	}
	out := &model.LeaderboardStats{
		Leaderboard: model.Leaderboard{
			ID:            d.Leaderboard.ID,
			Name:          d.Leaderboard.Name,
			Visualization: vis,
			Period:        d.Leaderboard.TimePeriod,
		},
		Entries: make([]model.Entry, 0, len(d.Stats)),
	}
	for i, s := range d.Stats {
		rank := s.Rank
		if rank <= 0 {
			rank = i + 1
		}
		out.Entries = append(out.Entries, model.Entry{
			Rank:       rank,
			Agent:      model.Agent(s.Agent),
			Commission: s.TotalCommission,
			Deals:      s.DealCount,
			SMS:        s.SMSCount,
		})
	}
	return out
}

func (d trendDTO) toModel() *model.TrendHistory {
	out := &model.TrendHistory{
		LeaderboardID: d.LeaderboardID,
		Name:          d.Name,
		Metric:        d.Metric,
		Series:        make([]model.TrendSeries, 0, len(d.Series)),
	}
	for _, s := range d.Series {
		series := model.TrendSeries{Group: s.Group, Points: make([]model.TrendPoint, 0, len(s.Points))}
		for _, p := range s.Points {
			series.Points = append(series.Points, model.TrendPoint(p))
		}
		out.Series = append(out.Series, series)
	}
	return out
}

func quotesToModel(in []quoteDTO) []model.Quote {
	out := make([]model.Quote, 0, len(in))
	for _, q := range in {
		out = append(out, model.Quote(q))
	}
	return out
}
