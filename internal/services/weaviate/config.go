package weaviate

import (
	"errors"
	"time"
)

type Config struct {
	Host      string
	Scheme    string
	APIKey    string
	ClassName string
	Timeout   time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Scheme:    "http",
		ClassName: "DocumentChunk",
		Timeout:   30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("weaviate host is required")
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return errors.New("weaviate scheme must be http or https")
	}
	if c.ClassName == "" {
		return errors.New("weaviate class name is required")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
