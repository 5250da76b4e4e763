package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// EventDeal is the only event the display reacts to.
const EventDeal = "deal"

// Envelope is the push message frame shared by every transport.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type agentPayload struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profileImageUrl"`
}

type dealPayload struct {
	Agent         *agentPayload       `json:"agent"`
	Commission    decimal.Decimal     `json:"commission"`
	SoundType     string              `json:"soundType"`
	SoundURL      string              `json:"soundUrl"`
	ReachedBudget bool                `json:"reachedBudget"`
	TotalToday    decimal.NullDecimal `json:"totalToday"`
}

// decode parses one frame. ok is false for well-formed frames carrying an
// event other than a deal.
func decode(raw []byte) (n model.DealNotification, ok bool, err error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return n, false, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if env.Event != EventDeal {
		return n, false, nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return n, false, fmt.Errorf("%w: missing data", ErrInvalidEvent)
	}

	var p dealPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return n, false, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if p.Agent == nil {
		return n, false, fmt.Errorf("%w: missing agent", ErrInvalidEvent)
	}

	kind := model.SoundKind(p.SoundType)
	switch kind {
	case model.SoundDefault, model.SoundMilestone, model.SoundAgent:
	default:
		kind = model.SoundDefault
	}

	return model.DealNotification{
		Agent: model.Agent{
			ID:              p.Agent.ID,
			Name:            p.Agent.Name,
			ProfileImageURL: p.Agent.ProfileImageURL,
		},
		Commission:    p.Commission,
		SoundKind:     kind,
		SoundURL:      p.SoundURL,
		ReachedBudget: p.ReachedBudget,
		TotalToday:    p.TotalToday,
	}, true, nil
}
