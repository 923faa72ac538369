// Package config loads examen configuration from ~/.examen/config.yaml with
// environment variable overrides. Missing file or fields fall back to
// defaults, so a fresh install runs with zero configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all examen configuration.
type Config struct {
	// Backend gateway connection
	Gateway GatewayConfig `yaml:"gateway"`

	// Local session cache
	Cache CacheConfig `yaml:"cache"`

	// Analysis job poller
	Poller PollerConfig `yaml:"poller"`

	// TUI settings
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GatewayConfig configures the backend gateway client.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // per-request timeout, e.g. "30s"
}

// CacheConfig configures the local session cache.
type CacheConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// PollerConfig configures the analysis job status poller.
type PollerConfig struct {
	Interval string `yaml:"interval"` // e.g. "5s"
	MaxWait  string `yaml:"max_wait"` // cap on total polling time, e.g. "10m"
}

// UIConfig configures the TUI.
type UIConfig struct {
	Theme string `yaml:"theme"` // "light" or "dark"
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	Level string `yaml:"level"`
}

// StateDir returns the per-user state directory (~/.examen), creating it if
// needed.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".examen")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create state directory: %w", err)
	}
	return dir, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: "60s",
		},
		Cache: CacheConfig{
			DatabasePath: "", // resolved against StateDir when empty
		},
		Poller: PollerConfig{
			Interval: "5s",
			MaxWait:  "10m",
		},
		UI: UIConfig{
			Theme: "dark",
		},
		Logging: LoggingConfig{
			Debug: false,
			Level: "info",
		},
	}
}

// Load reads the config file at path (or the default location when path is
// empty), applies environment overrides, and fills in defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		dir, err := StateDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if cfg.Cache.DatabasePath == "" {
		dir, err := StateDir()
		if err != nil {
			return nil, err
		}
		cfg.Cache.DatabasePath = filepath.Join(dir, "session.db")
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EXAMEN_API_URL"); v != "" {
		c.Gateway.BaseURL = v
	}
	if v := os.Getenv("EXAMEN_API_TIMEOUT"); v != "" {
		c.Gateway.Timeout = v
	}
	if v := os.Getenv("EXAMEN_DB_PATH"); v != "" {
		c.Cache.DatabasePath = v
	}
	if v := os.Getenv("EXAMEN_POLL_INTERVAL"); v != "" {
		c.Poller.Interval = v
	}
	if v := os.Getenv("EXAMEN_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("EXAMEN_DEBUG"); v == "1" || v == "true" {
		c.Logging.Debug = true
	}
}

// GatewayTimeout parses the configured request timeout, defaulting to 60s.
func (c *Config) GatewayTimeout() time.Duration {
	return parseDuration(c.Gateway.Timeout, 60*time.Second)
}

// PollInterval parses the configured poll interval, defaulting to 5s.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.Poller.Interval, 5*time.Second)
}

// PollMaxWait parses the configured polling cap, defaulting to 10m.
func (c *Config) PollMaxWait() time.Duration {
	return parseDuration(c.Poller.MaxWait, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
