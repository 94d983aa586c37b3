package goAuthClient

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthClient/transport"
)

// Config is the complete Client configuration. Start from [DefaultConfig]
// and override fields; [Builder.Build] validates the result.
type Config struct {
	API       APIConfig
	Session   SessionConfig
	Tokens    TokenConfig
	Transport TransportConfig
	Routes    RoutesConfig
	Events    EventsConfig
	Metrics   MetricsConfig
}

// APIConfig describes the backend.
type APIConfig struct {
	BaseURL    string
	AppVersion string
	Timeout    time.Duration
}

// SessionConfig tunes the token lifecycle.
//
// The background refresher wakes every RefreshCheckInterval while the
// session is authenticated and refreshes once time-to-expiry drops below
// RefreshThreshold.
type SessionConfig struct {
	RefreshCheckInterval time.Duration
	RefreshThreshold     time.Duration
	RefreshTimeout       time.Duration
	LogoutTimeout        time.Duration
	LoadProfileOnStart   bool
}

// TokenConfig configures the persistent token backends selected through the
// Builder.
type TokenConfig struct {
	RedisPrefix string
	RedisTTL    time.Duration
	FilePath    string
}

// TransportConfig overrides which endpoints bypass the bearer/refresh logic.
// Nil slices select the transport defaults.
type TransportConfig struct {
	BootstrapPaths []string
	PublicPaths    []string
}

// RoutesConfig names the navigation targets used by logout and the guards.
type RoutesConfig struct {
	Login       string
	Home        string
	ErrorPrefix string
}

// EventsConfig configures asynchronous session event delivery.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when the Builder is given
// none. API.BaseURL has no default and must be set.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			RefreshCheckInterval: 60 * time.Second,
			RefreshThreshold:     5 * time.Minute,
			RefreshTimeout:       transport.DefaultRefreshTimeout,
			LogoutTimeout:        5 * time.Second,
			LoadProfileOnStart:   true,
		},
		Tokens: TokenConfig{
			RedisPrefix: "gac:",
			RedisTTL:    7 * 24 * time.Hour,
		},
		Routes: RoutesConfig{
			Login:       "/auth/login",
			Home:        "/",
			ErrorPrefix: "/error/",
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Transport.BootstrapPaths = cloneStrings(cfg.Transport.BootstrapPaths)
	out.Transport.PublicPaths = cloneStrings(cfg.Transport.PublicPaths)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// API
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("API BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("API BaseURL scheme must be http or https")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Session
	if c.Session.RefreshCheckInterval <= 0 {
		return errors.New("Session RefreshCheckInterval must be > 0")
	}
	if c.Session.RefreshThreshold <= 0 {
		return errors.New("Session RefreshThreshold must be > 0")
	}
	if c.Session.RefreshTimeout <= 0 {
		return errors.New("Session RefreshTimeout must be > 0")
	}
	if c.Session.LogoutTimeout <= 0 {
		return errors.New("Session LogoutTimeout must be > 0")
	}

	// Tokens
	if c.Tokens.RedisTTL < 0 {
		return errors.New("Tokens RedisTTL must be >= 0")
	}

	// Routes
	if !strings.HasPrefix(c.Routes.Login, "/") {
		return errors.New("Routes Login must be an absolute path")
	}
	if !strings.HasPrefix(c.Routes.Home, "/") {
		return errors.New("Routes Home must be an absolute path")
	}
	if !strings.HasPrefix(c.Routes.ErrorPrefix, "/") {
		return errors.New("Routes ErrorPrefix must be an absolute path")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
