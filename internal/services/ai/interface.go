package ai

import (
	"context"
	"iter"
)

// EmbeddingProvider handles text embeddings
type EmbeddingProvider interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionProvider handles chat completions
type CompletionProvider interface {
	GetCompletion(ctx context.Context, model, prompt string) (string, error)
	StreamCompletion(ctx context.Context, model, prompt string) iter.Seq2[string, error]
}

// Provider combines embedding and completion capabilities
type Provider interface {
	EmbeddingProvider
	CompletionProvider
}

// Logger defines the logging interface for AI operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
