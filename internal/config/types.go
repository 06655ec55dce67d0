package config

import "time"

// Config represents the main configuration structure
type Config struct {
	BaseURL        string       `json:"baseUrl"`
	LogLevel       string       `json:"logLevel"`
	RequestTimeout int          `json:"requestTimeout"` // ms
	Batch          *BatchConfig `json:"batch,omitempty"`
}

// BatchConfig controls the transaction accumulation window
type BatchConfig struct {
	MaxWait int `json:"maxWait"` // ms - autocommit interval for an open window
	MaxSize int `json:"maxSize"` // requests per window; 0 means unlimited
}

// Default values
const (
	DefaultLogLevel       = "info"
	DefaultRequestTimeout = 30000 // ms
	DefaultBatchMaxWait   = 50    // ms
	DefaultBatchMaxSize   = 25
)

// GetRequestTimeoutDuration returns the request timeout as a Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetMaxWaitDuration returns the autocommit interval as a Duration
func (b *BatchConfig) GetMaxWaitDuration() time.Duration {
	return time.Duration(b.MaxWait) * time.Millisecond
}
