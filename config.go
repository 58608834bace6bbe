package goTutor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the full Manager configuration. Obtain a baseline with [DefaultConfig] and
// override fields; [Builder.WithConfig] copies it, so later mutation has no effect.
type Config struct {
	BaseURL   string
	Refresh   RefreshConfig
	Endpoints EndpointsConfig
	HTTP      HTTPConfig
	Events    EventsConfig
	Metrics   MetricsConfig
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls when and how the access token is renewed.
type RefreshConfig struct {
	TokenTTL    time.Duration
	RenewMargin time.Duration
	// CheckInterval is the period of the background evaluation timer.
	CheckInterval time.Duration
	// Timeout bounds every renewal call. A timeout is a renewal failure.
	Timeout time.Duration
	// HonorTokenExpiry shortens TokenTTL to the token's exp claim when the token is a
	// JWT that expires sooner.
	HonorTokenExpiry bool
}

/*
====================================
ENDPOINTS CONFIG
====================================
*/

// EndpointsConfig holds backend paths relative to BaseURL.
type EndpointsConfig struct {
	Login     string
	VerifyOTP string
	Refresh   string
}

/*
====================================
HTTP CONFIG
====================================
*/

// HTTPConfig tunes the outbound client built when none is supplied.
type HTTPConfig struct {
	// Timeout is the per-request client timeout. Zero leaves timing to the backend.
	Timeout         time.Duration
	UserAgent       string
	RequestIDHeader string
}

// EventsConfig controls the asynchronous event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// CoalesceWindow folds repeated background renewal failures and storage fallbacks
	// with the same trigger into the next one delivered after the window. Zero delivers
	// every event.
	CoalesceWindow time.Duration
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
		Refresh: RefreshConfig{
			TokenTTL:         time.Hour,
			RenewMargin:      5 * time.Minute,
			CheckInterval:    60 * time.Second,
			Timeout:          15 * time.Second,
			HonorTokenExpiry: false,
		},
		Endpoints: EndpointsConfig{
			Login:     "/api/users/login",
			VerifyOTP: "/api/users/verify-otp",
			Refresh:   "/auth/refresh-token",
		},
		HTTP: HTTPConfig{
			Timeout:         0,
			UserAgent:       "goTutor/1",
			RequestIDHeader: "X-Request-ID",
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize:     256,
			DropIfFull:     true,
			CoalesceWindow: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// DefaultConfig returns the baseline configuration: one hour tokens renewed in the last
// five minutes, checked every minute, against http://localhost:8000.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		return errors.New("BaseURL must be set")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("BaseURL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("BaseURL scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("BaseURL must include a host")
	}

	// Refresh
	if c.Refresh.TokenTTL <= 0 {
		return errors.New("Refresh TokenTTL must be > 0")
	}
	if c.Refresh.RenewMargin < 0 {
		return errors.New("Refresh RenewMargin must be >= 0")
	}
	if c.Refresh.RenewMargin >= c.Refresh.TokenTTL {
		return errors.New("Refresh RenewMargin must be < TokenTTL")
	}
	if c.Refresh.CheckInterval <= 0 {
		return errors.New("Refresh CheckInterval must be > 0")
	}
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}

	// Endpoints
	for name, path := range map[string]string{
		"Login":     c.Endpoints.Login,
		"VerifyOTP": c.Endpoints.VerifyOTP,
		"Refresh":   c.Endpoints.Refresh,
	} {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("Endpoints %s must be set", name)
		}
	}

	// HTTP
	if c.HTTP.Timeout < 0 {
		return errors.New("HTTP Timeout must be >= 0")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events is enabled")
	}
	if c.Events.CoalesceWindow < 0 {
		return errors.New("Events CoalesceWindow must be >= 0")
	}

	return nil
}
