package audio

import "github.com/tinytelemetry/dealboard/internal/model"

// Sounds maps sound kinds to configured sources.
type Sounds struct {
	Default   string
	Milestone string
}

// Resolve picks the source for n: an explicit URL wins, then the configured
// sound for its kind. Agent sounds without a URL fall back to the default.
func (s Sounds) Resolve(n model.DealNotification) string {
	if n.SoundURL != "" {
		return n.SoundURL
	}
	if n.Milestone() && s.Milestone != "" {
		return s.Milestone
	}
	return s.Default
}
