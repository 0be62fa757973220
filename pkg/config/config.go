// Package config loads the daemon configuration: a YAML file with
// environment overrides. Rule files themselves are separate JSON documents
// handled by pkg/rules.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// AuthConfig controls bearer-token protection of mutating endpoints.
type AuthConfig struct {
	Enabled        bool   `yaml:"enabled"`
	JWTSecret      string `yaml:"jwt_secret"`
	AdminTokenHash string `yaml:"admin_token_hash"`
}

// Config is the daemon configuration.
type Config struct {
	// Port the HTTP API listens on.
	Port int `yaml:"port"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// TickInterval is the scheduler wakeup interval.
	TickInterval Duration `yaml:"tick_interval"`
	// SnapshotTTL bounds how stale a cached topology snapshot may get
	// before read endpoints refresh it. The reconciliation engine always
	// queries fresh.
	SnapshotTTL Duration `yaml:"snapshot_ttl"`
	// CommandTimeout bounds each pw-cli / pw-link invocation.
	CommandTimeout Duration `yaml:"command_timeout"`

	// RuleFiles are loaded in order, appended into one list. Empty means
	// the system and per-user defaults.
	RuleFiles []string `yaml:"rule_files"`
	// WatchRules enables hot reload of the rule files.
	WatchRules bool `yaml:"watch_rules"`

	Auth AuthConfig `yaml:"auth"`

	// EventsAddr, when set, publishes rule-run events on a mangos PUB
	// socket at this address (e.g. "tcp://127.0.0.1:7733").
	EventsAddr string `yaml:"events_addr"`

	// HistoryPath is the sqlite file recording rule runs. Empty disables
	// history.
	HistoryPath string `yaml:"history_path"`
	// HistoryRetention prunes runs older than this. Zero keeps everything.
	HistoryRetention Duration `yaml:"history_retention"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:             8080,
		LogLevel:         "info",
		TickInterval:     Duration(time.Second),
		SnapshotTTL:      Duration(2 * time.Second),
		CommandTimeout:   Duration(5 * time.Second),
		WatchRules:       true,
		HistoryRetention: Duration(7 * 24 * time.Hour),
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overlays AUDIOLINKD_* environment variables.
func (c *Config) applyEnv() {
	if raw := os.Getenv("AUDIOLINKD_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			c.Port = port
		}
	}
	if raw := os.Getenv("AUDIOLINKD_LOG_LEVEL"); raw != "" {
		c.LogLevel = raw
	}
	if raw := os.Getenv("AUDIOLINKD_TICK_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			c.TickInterval = Duration(d)
		}
	}
	if raw := os.Getenv("AUDIOLINKD_JWT_SECRET"); raw != "" {
		c.Auth.Enabled = true
		c.Auth.JWTSecret = raw
	}
	if raw := os.Getenv("AUDIOLINKD_ADMIN_TOKEN_HASH"); raw != "" {
		c.Auth.Enabled = true
		c.Auth.AdminTokenHash = raw
	}
	if raw := os.Getenv("AUDIOLINKD_EVENTS_ADDR"); raw != "" {
		c.EventsAddr = raw
	}
	if raw := os.Getenv("AUDIOLINKD_HISTORY_PATH"); raw != "" {
		c.HistoryPath = raw
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TickInterval.Std() <= 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	if c.CommandTimeout.Std() <= 0 {
		return fmt.Errorf("command_timeout must be positive")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" && c.Auth.AdminTokenHash == "" {
		return fmt.Errorf("auth enabled but no jwt_secret or admin_token_hash configured")
	}
	return nil
}
