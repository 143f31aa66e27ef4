// File: internal/services/pinecone/config.go
package pinecone

import (
	"errors"
	"time"
)

type Config struct {
	APIKey    string
	IndexHost string
	Namespace string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Upserts are sent in slices of at most BatchSize vectors.
	BatchSize int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		BatchSize:  100,
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("pinecone API key is required")
	}
	if c.IndexHost == "" {
		return errors.New("pinecone index host is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BatchSize <= 0 || c.BatchSize > 1000 {
		return errors.New("batch size must be between 1 and 1000")
	}
	return nil
}
