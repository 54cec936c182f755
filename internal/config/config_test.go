package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if !cfg.Concurrency {
		t.Error("Concurrency should default to true")
	}
	if cfg.MinSimilarity != 0.5 {
		t.Errorf("MinSimilarity = %v, want 0.5", cfg.MinSimilarity)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
}

func TestLoadConfigMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
concurrency: false
history:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Concurrency {
		t.Error("explicit concurrency: false must override the default")
	}
	if cfg.History.Enabled {
		t.Error("explicit history.enabled: false must override the default")
	}
	if cfg.MinSimilarity != 0.5 {
		t.Errorf("MinSimilarity = %v, want untouched default 0.5", cfg.MinSimilarity)
	}
	if cfg.History.DBPath == "" {
		t.Error("History.DBPath should keep its default")
	}
}

func TestLoadConfigExplicitZeroSimilarity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("min_similarity: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MinSimilarity != 0 {
		t.Errorf("MinSimilarity = %v, explicit zero must not be replaced by the default", cfg.MinSimilarity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero min_similarity should validate: %v", err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: [broken"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed config should return an error")
	}
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	noConcurrency := false
	minSim := 0.8
	level := "warn"
	cfg.MergeWithFlags(&noConcurrency, &minSim, &level)

	if cfg.Concurrency {
		t.Error("flag should disable concurrency")
	}
	if cfg.MinSimilarity != 0.8 {
		t.Errorf("MinSimilarity = %v, want 0.8", cfg.MinSimilarity)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}

	cfg.MergeWithFlags(nil, nil, nil)
	if cfg.LogLevel != "warn" {
		t.Error("nil flags must leave config untouched")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"similarity too high", func(c *Config) { c.MinSimilarity = 1.0 }, true},
		{"similarity negative", func(c *Config) { c.MinSimilarity = -0.1 }, true},
		{"history enabled without path", func(c *Config) { c.History.DBPath = "" }, true},
		{"history disabled without path", func(c *Config) { c.History.Enabled = false; c.History.DBPath = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
