package goAuthClient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config is the complete Manager configuration. Obtain a populated value
// with [DefaultConfig] or [LoadConfigFromEnv] and adjust sections as needed.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Logging LoggingConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote authentication API.
type APIConfig struct {
	BaseURL          string
	Timeout          time.Duration
	UserAgent        string
	MaxResponseBytes int64
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls how the Manager reconciles in-memory state with the
// persisted session.
type SessionConfig struct {
	// ReconcileOnUnauthorized moves an authenticated Manager to anonymous
	// when any request observes a 401.
	ReconcileOnUnauthorized bool
	// DiscardExpiredTokens drops a stored JWT whose exp has passed during
	// hydration. Opaque tokens are never discarded.
	DiscardExpiredTokens bool
	ExpiryLeeway         time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and the request latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
LOGGING CONFIG
====================================
*/

// LoggingConfig configures the logger built when none is injected.
type LoggingConfig struct {
	Level  string // logrus level name
	Format string // "text" (default) or "json"
}

// DefaultAPIURL is used when no base URL is configured.
const DefaultAPIURL = "http://localhost:3333/api"

// DefaultConfig returns the configuration used by a Builder that is given
// none.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:          DefaultAPIURL,
			Timeout:          30 * time.Second,
			UserAgent:        "goAuthClient",
			MaxResponseBytes: 10 << 20,
		},
		Session: SessionConfig{
			ReconcileOnUnauthorized: true,
			DiscardExpiredTokens:    false,
			ExpiryLeeway:            30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

/*
====================================
ENVIRONMENT
====================================
*/

// envOverrides lists the variables read by LoadConfigFromEnv. Unset
// variables leave the default untouched.
type envOverrides struct {
	APIURL               *string        `envconfig:"AUTHCLIENT_API_URL"`
	APITimeout           *time.Duration `envconfig:"AUTHCLIENT_API_TIMEOUT"`
	UserAgent            *string        `envconfig:"AUTHCLIENT_USER_AGENT"`
	ReconcileOn401       *bool          `envconfig:"AUTHCLIENT_RECONCILE_ON_401"`
	DiscardExpiredTokens *bool          `envconfig:"AUTHCLIENT_DISCARD_EXPIRED_TOKENS"`
	AuditEnabled         *bool          `envconfig:"AUTHCLIENT_AUDIT_ENABLED"`
	MetricsEnabled       *bool          `envconfig:"AUTHCLIENT_METRICS_ENABLED"`
	LogLevel             *string        `envconfig:"AUTHCLIENT_LOG_LEVEL"`
	LogFormat            *string        `envconfig:"AUTHCLIENT_LOG_FORMAT"`
}

// LoadConfigFromEnv returns DefaultConfig with AUTHCLIENT_* environment
// overrides applied, then validated.
func LoadConfigFromEnv() (Config, error) {
	cfg := defaultConfig()

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return Config{}, fmt.Errorf("load config from env: %w", err)
	}

	if env.APIURL != nil {
		cfg.API.BaseURL = *env.APIURL
	}
	if env.APITimeout != nil {
		cfg.API.Timeout = *env.APITimeout
	}
	if env.UserAgent != nil {
		cfg.API.UserAgent = *env.UserAgent
	}
	if env.ReconcileOn401 != nil {
		cfg.Session.ReconcileOnUnauthorized = *env.ReconcileOn401
	}
	if env.DiscardExpiredTokens != nil {
		cfg.Session.DiscardExpiredTokens = *env.DiscardExpiredTokens
	}
	if env.AuditEnabled != nil {
		cfg.Audit.Enabled = *env.AuditEnabled
	}
	if env.MetricsEnabled != nil {
		cfg.Metrics.Enabled = *env.MetricsEnabled
	}
	if env.LogLevel != nil {
		cfg.Logging.Level = *env.LogLevel
	}
	if env.LogFormat != nil {
		cfg.Logging.Format = *env.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return fmt.Errorf("API BaseURL %q is not an absolute URL", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL scheme must be http or https")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.MaxResponseBytes < 0 {
		return errors.New("API MaxResponseBytes must be >= 0")
	}

	// Session
	if c.Session.ExpiryLeeway < 0 || c.Session.ExpiryLeeway > 5*time.Minute {
		return errors.New("Session ExpiryLeeway must be between 0 and 5m")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Logging
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("Logging Level: %w", err)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return errors.New("Logging Format must be 'text' or 'json'")
	}

	return nil
}

// NewLogger builds a logger from cfg. An unparsable level falls back to
// info.
func NewLogger(cfg LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
