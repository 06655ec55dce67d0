package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Batch == nil {
		cfg.Batch = &BatchConfig{}
	}
	if cfg.Batch.MaxWait == 0 {
		cfg.Batch.MaxWait = DefaultBatchMaxWait
	}
	if cfg.Batch.MaxSize == 0 {
		cfg.Batch.MaxSize = DefaultBatchMaxSize
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.BaseURL == "" {
		return errors.New("baseUrl is required")
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid baseUrl: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("baseUrl must be http or https, got '%s'", parsed.Scheme)
	}

	if cfg.RequestTimeout < 0 {
		return errors.New("requestTimeout must not be negative")
	}
	if cfg.Batch.MaxWait < 0 {
		return errors.New("batch.maxWait must not be negative")
	}
	if cfg.Batch.MaxSize < 0 {
		return errors.New("batch.maxSize must not be negative")
	}

	return nil
}
