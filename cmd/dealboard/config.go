package main

import (
	"time"

	"github.com/tinytelemetry/dealboard/internal/gateway"
	"github.com/tinytelemetry/dealboard/internal/model"
)

const (
	defaultBindHost          = "127.0.0.1"
	defaultAPIPort           = 3000
	defaultRequestTimeout    = 15 * time.Second
	defaultReconnectDelay    = 5 * time.Second
	defaultReconnectAttempts = 10
	defaultPollWait          = 25 * time.Second
	defaultRedisChannel      = "dealboard:deals"
	defaultQueryTimeout      = 10 * time.Second
	defaultDealRetention     = 90 // days, 0 = disabled
	defaultBackupInterval    = 6 * time.Hour
	defaultBackupKeep        = 7
	defaultLogLevel          = "info"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	SlideshowID    string        `mapstructure:"slideshow-id"`
	BackendURL     string        `mapstructure:"backend-url"`
	BackendToken   string        `mapstructure:"backend-token"`
	SlideshowFile  string        `mapstructure:"slideshow-file"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`

	PushWebSocketURL  string        `mapstructure:"push-websocket-url"`
	PushPollURL       string        `mapstructure:"push-poll-url"`
	PushPollWait      time.Duration `mapstructure:"push-poll-wait"`
	PushRedisURL      string        `mapstructure:"push-redis-url"`
	PushRedisChannel  string        `mapstructure:"push-redis-channel"`
	PushToken         string        `mapstructure:"push-token"`
	ReconnectDelay    time.Duration `mapstructure:"push-reconnect-delay"`
	ReconnectAttempts int           `mapstructure:"push-reconnect-attempts"`
	SentinelNames     []string      `mapstructure:"sentinel-names"`

	FetchDelay       time.Duration `mapstructure:"fetch-delay"`
	RateLimitBackoff time.Duration `mapstructure:"rate-limit-backoff"`
	RefreshInterval  time.Duration `mapstructure:"refresh-interval"`
	SettleDelay      time.Duration `mapstructure:"settle-delay"`
	ProgressTick     time.Duration `mapstructure:"progress-tick"`

	NotificationLifetime time.Duration `mapstructure:"notification-lifetime"`
	AnimationFrame       time.Duration `mapstructure:"animation-frame"`
	AudioEnabled         bool          `mapstructure:"audio-enabled"`
	AudioCommand         []string      `mapstructure:"audio-command"`
	SoundDefault         string        `mapstructure:"sound-default"`
	SoundMilestone       string        `mapstructure:"sound-milestone"`

	AccessCodeHash string `mapstructure:"access-code-hash"`

	SnapshotPath   string        `mapstructure:"snapshot-path"`
	QueryTimeout   time.Duration `mapstructure:"query-timeout"`
	DealRetention  int           `mapstructure:"deal-retention"`
	BackupDir      string        `mapstructure:"backup-dir"`
	BackupInterval time.Duration `mapstructure:"backup-interval"`
	BackupKeepLast int           `mapstructure:"backup-keep-last"`

	APIEnabled   bool   `mapstructure:"api-enabled"`
	APIPort      int    `mapstructure:"api-port"`
	APIAddr      string `mapstructure:"api-addr"`
	WebhookToken string `mapstructure:"webhook-token"`

	LogLevel   string `mapstructure:"log-level"`
	ConfigPath string `mapstructure:"-"` // not from config file
}

// pushEnabled reports whether any push transport is configured.
func (c appConfig) pushEnabled() bool {
	return c.PushWebSocketURL != "" || c.PushPollURL != "" || c.PushRedisURL != ""
}

// setDefaults registers every key, including empty ones, so environment
// variables reach Unmarshal even when no config file sets the key.
func setDefaults(set func(key string, value any)) {
	for _, key := range []string{
		"slideshow-id", "backend-url", "backend-token", "slideshow-file",
		"push-websocket-url", "push-poll-url", "push-redis-url", "push-token",
		"sound-default", "sound-milestone", "access-code-hash",
		"backup-dir", "api-addr", "webhook-token",
	} {
		set(key, "")
	}
	set("sentinel-names", gateway.DefaultSentinelNames)
	set("audio-command", []string{})
	set("request-timeout", defaultRequestTimeout)
	set("push-poll-wait", defaultPollWait)
	set("push-redis-channel", defaultRedisChannel)
	set("push-reconnect-delay", defaultReconnectDelay)
	set("push-reconnect-attempts", defaultReconnectAttempts)
	set("fetch-delay", model.DefaultFetchDelay)
	set("rate-limit-backoff", model.DefaultRateLimitBackoff)
	set("refresh-interval", model.DefaultRefreshInterval)
	set("settle-delay", model.DefaultSettleDelay)
	set("progress-tick", model.DefaultProgressTick)
	set("notification-lifetime", model.DefaultNotificationLifetime)
	set("animation-frame", model.DefaultAnimationFrame)
	set("audio-enabled", true)
	set("query-timeout", defaultQueryTimeout)
	set("deal-retention", defaultDealRetention)
	set("backup-interval", defaultBackupInterval)
	set("backup-keep-last", defaultBackupKeep)
	set("api-enabled", true)
	set("api-port", defaultAPIPort)
	set("log-level", defaultLogLevel)
}
