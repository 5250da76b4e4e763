package model

import "time"

// Shared defaults used by the display, the status API and the CLI.
const (
	DefaultSlideDuration        = 30 * time.Second
	DefaultFetchDelay           = 3 * time.Second
	DefaultRateLimitBackoff     = 10 * time.Second
	DefaultRefreshInterval      = 120 * time.Second
	DefaultSettleDelay          = 5 * time.Second
	DefaultProgressTick         = 100 * time.Millisecond
	DefaultNotificationLifetime = 10 * time.Second
	DefaultAnimationFrame       = 50 * time.Millisecond
	DefaultMeasureDelay         = 100 * time.Millisecond
	DefaultScrollSpeed          = 25.0 // px per second
	DefaultRowHeightPx          = 20.0
)
