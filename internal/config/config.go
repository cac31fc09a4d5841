// Package config loads labrun settings from a YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, LABRUN_*
// environment variables, then command-line flags (applied by the cli
// package).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by every command.
type Config struct {
	// Database is the run journal path. When empty, run journals to an
	// in-memory database that is discarded on exit, and history and replay
	// refuse to start.
	Database string `yaml:"database" env:"LABRUN_DB"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LABRUN_LOG_LEVEL"`

	// Format is the output format, text or json.
	Format string `yaml:"format" env:"LABRUN_FORMAT"`

	// MetricsFile is where run metrics are written in Prometheus text
	// format. Empty disables export.
	MetricsFile string `yaml:"metrics_file" env:"LABRUN_METRICS_FILE"`

	// SimulateSpeed scales simulated delays; 0 never sleeps.
	SimulateSpeed float64 `yaml:"simulate_speed" env:"LABRUN_SIM_SPEED"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel: "info",
		Format:   "text",
	}
}

// Load reads path (if non-empty) over the defaults, then applies the
// environment. A missing file named explicitly is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Format != "text" && c.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid format %q (must be text or json)", c.Format))
	}
	if c.SimulateSpeed < 0 {
		errs = append(errs, fmt.Errorf("simulate_speed must not be negative, got %v", c.SimulateSpeed))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", name)
	}
}
