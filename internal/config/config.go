// Package config loads the configuration shared by the goAuthClient binaries
// from YAML and environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	client "github.com/MrEthical07/goAuthClient"
)

// Token backends understood by [TokensConfig].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the root binary configuration.
// Sources, highest priority first:
//  1. explicit path via --config;
//  2. path in CONFIG_PATH;
//  3. ./local.yaml;
//  4. environment variables only.
//
// Environment variables are overlaid on top of any file that was read.
type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"local"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Tokens  TokensConfig  `yaml:"tokens"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type APIConfig struct {
	BaseURL    string        `yaml:"base_url" env:"API_BASE_URL" env-required:"true"`
	AppVersion string        `yaml:"app_version" env:"APP_VERSION" env-default:"dev"`
	Timeout    time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"30s"`
}

type SessionConfig struct {
	RefreshCheckInterval time.Duration `yaml:"refresh_check_interval" env:"REFRESH_CHECK_INTERVAL" env-default:"60s"`
	RefreshThreshold     time.Duration `yaml:"refresh_threshold" env:"REFRESH_THRESHOLD" env-default:"5m"`
	LogoutTimeout        time.Duration `yaml:"logout_timeout" env:"LOGOUT_TIMEOUT" env-default:"5s"`
}

// TokensConfig selects where the session is persisted between runs.
type TokensConfig struct {
	Backend     string `yaml:"backend" env:"TOKEN_BACKEND" env-default:"file"`
	FilePath    string `yaml:"file_path" env:"TOKEN_FILE" env-default:".goauthclient/session.json"`
	RedisURL    string `yaml:"redis_url" env:"REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" env:"REDIS_PREFIX" env-default:"gac:"`
}

// HTTPConfig is the listen address of binaries that serve HTTP.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8081"`
}

// MetricsConfig switches the client counters. Booleans default to false so a
// file value is never replaced by an env default.
type MetricsConfig struct {
	Disabled bool `yaml:"disabled" env:"METRICS_DISABLED"`
	Latency  bool `yaml:"latency" env:"METRICS_LATENCY"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// ClientConfig maps the file configuration onto [client.Config], starting
// from the library defaults.
func (c *Config) ClientConfig() client.Config {
	out := client.DefaultConfig()
	out.API.BaseURL = c.API.BaseURL
	out.API.AppVersion = c.API.AppVersion
	out.API.Timeout = c.API.Timeout
	out.Session.RefreshCheckInterval = c.Session.RefreshCheckInterval
	out.Session.RefreshThreshold = c.Session.RefreshThreshold
	out.Session.LogoutTimeout = c.Session.LogoutTimeout
	out.Tokens.RedisPrefix = c.Tokens.RedisPrefix
	if c.Tokens.Backend == BackendFile {
		out.Tokens.FilePath = c.Tokens.FilePath
	}
	out.Metrics.Enabled = !c.Metrics.Disabled
	out.Metrics.EnableLatencyHistograms = !c.Metrics.Disabled && c.Metrics.Latency
	return out
}

// Validate checks the fields the library does not.
func (c *Config) Validate() error {
	switch c.Tokens.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Tokens.RedisURL == "" {
			return fmt.Errorf("tokens.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown token backend %q", c.Tokens.Backend)
	}
	return nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration in priority order: explicit path,
// CONFIG_PATH, ./local.yaml, then environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if path != "" {
		return readFile(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return readFile(envPath)
	}
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
