package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SoundKind selects the audio treatment of a deal notification.
type SoundKind string

const (
	SoundDefault   SoundKind = "default"
	SoundMilestone SoundKind = "milestone"
	SoundAgent     SoundKind = "agent"
)

// DealNotification is a validated "deal closed" push event.
type DealNotification struct {
	ID            string              `json:"id"`
	Agent         Agent               `json:"agent"`
	Commission    decimal.Decimal     `json:"commission"`
	SoundKind     SoundKind           `json:"soundKind"`
	SoundURL      string              `json:"soundUrl,omitempty"`
	ReachedBudget bool                `json:"reachedBudget"`
	TotalToday    decimal.NullDecimal `json:"totalToday"`
	ReceivedAt    time.Time           `json:"receivedAt"`
}

// Milestone reports whether the deal gets the milestone treatment.
func (n DealNotification) Milestone() bool {
	return n.ReachedBudget || n.SoundKind == SoundMilestone
}
