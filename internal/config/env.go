// Package config reads binary configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv populates target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Demo configures cmd/demo. Empty paths select the built-in defaults.
type Demo struct {
	RuleSet     string        `env:"ATTRX_RULESET"`
	Metadata    string        `env:"ATTRX_METADATA"`
	MetadataDB  string        `env:"ATTRX_METADATA_DB"`
	SnapshotDir string        `env:"ATTRX_SNAPSHOT_DIR"`
	Frames      int           `env:"ATTRX_FRAMES" envDefault:"5"`
	Tick        time.Duration `env:"ATTRX_TICK"   envDefault:"16ms"`
}

// LoadDemo reads the demo configuration and checks its ranges.
func LoadDemo() (Demo, error) {
	var cfg Demo
	if err := ParseEnv(&cfg); err != nil {
		return Demo{}, err
	}
	if cfg.Frames <= 0 {
		return Demo{}, fmt.Errorf("ATTRX_FRAMES must be positive, got %d", cfg.Frames)
	}
	if cfg.Tick <= 0 {
		return Demo{}, fmt.Errorf("ATTRX_TICK must be positive, got %v", cfg.Tick)
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
