// Package config loads and validates the opsforge TOML configuration,
// adapted from the teacher's internal/config package: same Duration
// wrapper, same Load/applyDefaults/validate shape, scoped down to the
// fields this substrate actually needs.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// RetryPolicy is config-driven default retry bound (SPEC_FULL.md
// supplement): internal/taskflow accepts a RetryPolicy{MaxRetries}
// value the same shape, loaded from TOML rather than hardcoded at call
// sites, the way the teacher's RetryPolicy is TOML-driven. There is no
// wall-clock backoff field: spec §1 Non-goals forbids the core from
// scheduling in wall-clock time.
type RetryPolicy struct {
	MaxRetries int `toml:"max_retries"`
}

// Store configures the shared SQLite-backed audit/dead-letter store.
type Store struct {
	Path string `toml:"path"`
}

// Redis configures the shared key/value service used by C7.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// General carries process-wide defaults.
type General struct {
	LogLevel    string      `toml:"log_level"`
	RetryPolicy RetryPolicy `toml:"retry_policy"`
}

// Config is the top-level opsforge configuration document.
type Config struct {
	General General `toml:"general"`
	Store   Store   `toml:"store"`
	Redis   Redis   `toml:"redis"`
}

// Clone returns a deep copy so readers under RWMutexManager.Get never
// observe another goroutine's in-flight mutation.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Load reads and validates an opsforge TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Reload reads and validates an opsforge TOML configuration file. It
// mirrors Load but is named to reflect runtime refresh paths.
func Reload(path string) (*Config, error) {
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.RetryPolicy.MaxRetries == 0 {
		cfg.General.RetryPolicy.MaxRetries = 3
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "opsforge.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "127.0.0.1:6379"
	}
}

func validate(cfg *Config) error {
	if cfg.General.RetryPolicy.MaxRetries < 0 {
		return fmt.Errorf("general.retry_policy.max_retries must be >= 0, got %d", cfg.General.RetryPolicy.MaxRetries)
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return fmt.Errorf("store.path must not be blank")
	}
	return nil
}
