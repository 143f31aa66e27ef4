// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

type Config struct {
	// Chat completions and streaming
	APIKey  string
	BaseURL string

	// Embeddings may be served by a different endpoint; empty fields fall
	// back to the completion endpoint.
	EmbeddingKey     string
	EmbeddingBaseURL string
	EmbeddingModel   string

	Timeout            time.Duration
	MaxRetries         int
	RetryDelay         time.Duration
	EmbeddingBatchSize int

	Temperature float32
	TopP        float32
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("EMBEDDING_MODEL_NAME is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("embedding batch size must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		EmbeddingModel:     "text-embedding-3-small",
		Timeout:            60 * time.Second,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		EmbeddingBatchSize: 64,
		Temperature:        0.1,
		TopP:               0.9,
	}
}
