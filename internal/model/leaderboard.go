package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Visualization names a leaderboard presentation.
const (
	VisualizationTable = "table"
	VisualizationCards = "cards"
	VisualizationBars  = "bars"
	VisualizationRace  = "race"
)

// Agent is a sales agent as shown on screen.
type Agent struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// Leaderboard carries the presentation settings of a leaderboard.
type Leaderboard struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Visualization string `json:"visualization"`
	Period        string `json:"period,omitempty"`
}

// Entry is one ranked row of a leaderboard.
type Entry struct {
	Rank       int             `json:"rank"`
	Agent      Agent           `json:"agent"`
	Commission decimal.Decimal `json:"commission"`
	Deals      int             `json:"deals"`
	SMS        int             `json:"sms"`
}

// LeaderboardStats is the ranked payload of one leaderboard.
type LeaderboardStats struct {
	Leaderboard Leaderboard `json:"leaderboard"`
	Entries     []Entry     `json:"entries"`
}

// TrendPoint is one sample of a trend series.
type TrendPoint struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// TrendSeries is the history of one group (agent, team) for a metric.
type TrendSeries struct {
	Group  string       `json:"group"`
	Points []TrendPoint `json:"points"`
}

// TrendHistory is the time series payload of a trend slide.
type TrendHistory struct {
	LeaderboardID string        `json:"leaderboardId"`
	Name          string        `json:"name,omitempty"`
	Metric        string        `json:"metric"`
	Series        []TrendSeries `json:"series"`
}

// Quote is one entry of the quotes panel.
type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}
