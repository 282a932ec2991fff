package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDemoDefaults(t *testing.T) {
	cfg, err := LoadDemo()
	if err != nil {
		t.Fatalf("load demo: %v", err)
	}
	if cfg.Frames != 5 || cfg.Tick != 16*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RuleSet != "" || cfg.MetadataDB != "" {
		t.Fatalf("paths should default to empty: %+v", cfg)
	}
}

func TestLoadDemoOverrides(t *testing.T) {
	t.Setenv("ATTRX_RULESET", "rules.yaml")
	t.Setenv("ATTRX_FRAMES", "12")
	t.Setenv("ATTRX_TICK", "1s")

	cfg, err := LoadDemo()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RuleSet != "rules.yaml" || cfg.Frames != 12 || cfg.Tick != time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadDemoErrors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad int", "ATTRX_FRAMES", "many", "parse env:"},
		{"zero frames", "ATTRX_FRAMES", "0", "must be positive"},
		{"negative tick", "ATTRX_TICK", "-1s", "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadDemo()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("LoadDemo() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
