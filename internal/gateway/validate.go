package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tinytelemetry/dealboard/internal/model"
)

// ErrInvalidEvent marks frames that are dropped before reaching subscribers.
var ErrInvalidEvent = errors.New("gateway: invalid event")

// DefaultSentinelNames are placeholder agent names upstream emits when it
// could not resolve the agent.
var DefaultSentinelNames = []string{
	"unknown agent",
	"agent null",
	"agent undefined",
	"null",
	"undefined",
}

// Validator rejects deals that would render a meaningless celebration.
type Validator struct {
	sentinels map[string]struct{}
}

// NewValidator builds a validator. A nil list uses DefaultSentinelNames.
func NewValidator(sentinels []string) *Validator {
	if sentinels == nil {
		sentinels = DefaultSentinelNames
	}
	v := &Validator{sentinels: make(map[string]struct{}, len(sentinels))}
	for _, s := range sentinels {
		if s = normalizeName(s); s != "" {
			v.sentinels[s] = struct{}{}
		}
	}
	return v
}

// Validate returns an ErrInvalidEvent-wrapped error for empty or sentinel
// agent names.
func (v *Validator) Validate(n model.DealNotification) error {
	name := normalizeName(n.Agent.Name)
	if name == "" {
		return fmt.Errorf("%w: empty agent name", ErrInvalidEvent)
	}
	if _, ok := v.sentinels[name]; ok {
		return fmt.Errorf("%w: placeholder agent name %q", ErrInvalidEvent, n.Agent.Name)
	}
	return nil
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
