package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load
const (
	EnvDatabase = "SHELVER_DB"
	EnvPort     = "SHELVER_PORT"
	EnvLogLevel = "SHELVER_LOG_LEVEL"
	EnvShareTTL = "SHELVER_SHARE_TTL"
)

// Config holds the runtime settings shared by all commands
type Config struct {
	DatabasePath string
	Port         string
	LogLevel     string
	// ShareTTL is the default lifetime of share tokens, 0 for no expiry
	ShareTTL time.Duration
}

// fileConfig is the YAML layout of a config file
type fileConfig struct {
	Database string `yaml:"database"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	ShareTTL string `yaml:"share_ttl"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		DatabasePath: "shelver.db",
		Port:         "8888",
		LogLevel:     "info",
		ShareTTL:     7 * 24 * time.Hour,
	}
}

// Load builds a Config from defaults, then the YAML file at path (if any),
// then the environment. Command-line flags are applied on top by the caller.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.set(&c.DatabasePath, fc.Database)
	c.set(&c.Port, fc.Port)
	c.set(&c.LogLevel, fc.LogLevel)
	if fc.ShareTTL != "" {
		ttl, err := ParseTTL(fc.ShareTTL)
		if err != nil {
			return fmt.Errorf("config file %s: share_ttl: %w", path, err)
		}
		c.ShareTTL = ttl
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.set(&c.DatabasePath, os.Getenv(EnvDatabase))
	c.set(&c.Port, os.Getenv(EnvPort))
	c.set(&c.LogLevel, os.Getenv(EnvLogLevel))
	if v := os.Getenv(EnvShareTTL); v != "" {
		ttl, err := ParseTTL(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShareTTL, err)
		}
		c.ShareTTL = ttl
	}
	return nil
}

func (c *Config) set(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// maxTTLDays is the largest day count a time.Duration can hold
const maxTTLDays = int(math.MaxInt64 / int64(24*time.Hour))

// ParseTTL accepts Go durations plus a "d" suffix for days. "0" disables expiry.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if n > maxTTLDays {
			return 0, fmt.Errorf("duration %q exceeds %d days", s, maxTTLDays)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("duration must not be negative")
	}
	return d, nil
}

// ParseLevel maps a level name onto a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
	}
	return level, nil
}
