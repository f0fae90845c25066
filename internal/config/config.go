// Package config reads dialoguegen settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/apresai/dialoguegen/internal/dialogue"
	"github.com/apresai/dialoguegen/internal/record"
)

// Config holds process-wide settings. Command-line flags override them.
type Config struct {
	OutputDir    string        `env:"DIALOGUEGEN_OUTPUT_DIR" envDefault:"."`
	Delay        time.Duration `env:"DIALOGUEGEN_DELAY" envDefault:"1s"`
	Seed         int64         `env:"DIALOGUEGEN_SEED"`
	ProfilesFile string        `env:"DIALOGUEGEN_PROFILES"`
	TimeLayout   string        `env:"DIALOGUEGEN_TIME_LAYOUT" envDefault:"1/2/2006 3:04:05 PM"`
	LogLevel     string        `env:"DIALOGUEGEN_LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"DIALOGUEGEN_LOG_FORMAT" envDefault:"text"`
	Tracing      bool          `env:"DIALOGUEGEN_TRACING"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Delay < 0 {
		return fmt.Errorf("invalid delay %s: must not be negative", c.Delay)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}
	return nil
}

// Catalog loads the configured profile file, or the built-in catalog.
func (c Config) Catalog() (*dialogue.Catalog, error) {
	if c.ProfilesFile == "" {
		return dialogue.DefaultCatalog(), nil
	}
	return dialogue.LoadCatalog(c.ProfilesFile)
}

// Timestamp formats t with the configured layout.
func (c Config) Timestamp(t time.Time) string {
	return record.Timestamp(t, c.TimeLayout)
}
