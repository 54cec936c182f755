// Package config loads filepair configuration from .filepair/config.yaml
// and merges it with CLI flags, which always take precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// HistoryConfig controls the sqlite run-history store.
type HistoryConfig struct {
	// Enabled turns run-history recording on
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents filepair configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// Concurrency enables chunked parallel matching for large directories
	Concurrency bool `yaml:"concurrency"`

	// MinSimilarity is the exclusive lower bound for similarity matching
	MinSimilarity float64 `yaml:"min_similarity"`

	// History contains run-history store configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		Concurrency:   true,
		MinSimilarity: 0.5,
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(".filepair", "history.db"),
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file returns default configuration without error; a malformed
// file returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Zero-valued fields need the raw document to tell "explicitly zero"
	// apart from "absent".
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if _, exists := rawMap["min_similarity"]; exists {
		cfg.MinSimilarity = fileCfg.MinSimilarity
	}
	if _, exists := rawMap["concurrency"]; exists {
		cfg.Concurrency = fileCfg.Concurrency
	}

	if historySection, exists := rawMap["history"]; exists && historySection != nil {
		historyMap, _ := historySection.(map[string]interface{})
		if _, exists := historyMap["enabled"]; exists {
			cfg.History.Enabled = fileCfg.History.Enabled
		}
		if _, exists := historyMap["db_path"]; exists {
			cfg.History.DBPath = fileCfg.History.DBPath
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .filepair/config.yaml in the
// specified directory, falling back to defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".filepair", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(concurrency *bool, minSimilarity *float64, logLevel *string) {
	if concurrency != nil {
		c.Concurrency = *concurrency
	}
	if minSimilarity != nil {
		c.MinSimilarity = *minSimilarity
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.MinSimilarity < 0 || c.MinSimilarity >= 1 {
		return fmt.Errorf("min_similarity must be in [0, 1), got %v", c.MinSimilarity)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
