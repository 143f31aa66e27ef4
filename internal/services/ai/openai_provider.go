// File: internal/services/ai/openai_provider.go
package ai

import (
	"context"
	"errors"
	"io"
	"iter"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	config          *Config
	embeddingClient *openai.Client
	llmClient       *openai.Client
	logger          Logger
}

func NewOpenAIProvider(config *Config, logger Logger) (*OpenAIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	llmConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		llmConfig.BaseURL = config.BaseURL
	}

	embeddingKey := config.EmbeddingKey
	if embeddingKey == "" {
		embeddingKey = config.APIKey
	}
	embeddingConfig := openai.DefaultConfig(embeddingKey)
	switch {
	case config.EmbeddingBaseURL != "":
		embeddingConfig.BaseURL = config.EmbeddingBaseURL
	case config.BaseURL != "":
		embeddingConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		config:          config,
		embeddingClient: openai.NewClientWithConfig(embeddingConfig),
		llmClient:       openai.NewClientWithConfig(llmConfig),
		logger:          logger,
	}, nil
}

func (p *OpenAIProvider) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings embeds texts in batches of EmbeddingBatchSize, preserving order.
func (p *OpenAIProvider) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.config.EmbeddingBatchSize {
		end := min(start+p.config.EmbeddingBatchSize, len(texts))
		vectors, err := p.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (p *OpenAIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := p.withRetry(ctx, "embedding", p.config.EmbeddingModel, func(ctx context.Context) error {
		resp, err := p.embeddingClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) != len(texts) {
			return &AIError{Type: ErrTypeProvider, Operation: "embedding", Message: "embedding count mismatch"}
		}

		vectors = make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
				return &AIError{Type: ErrTypeProvider, Operation: "embedding", Message: "empty embedding response"}
			}
			vectors[d.Index] = d.Embedding
		}
		return nil
	})
	return vectors, err
}

func (p *OpenAIProvider) GetCompletion(ctx context.Context, model, prompt string) (string, error) {
	var reply string
	err := p.withRetry(ctx, "completion", model, func(ctx context.Context) error {
		resp, err := p.llmClient.CreateChatCompletion(ctx, p.request(model, prompt, false))
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return &AIError{Type: ErrTypeProvider, Operation: "completion", Model: model, Message: "empty completion response"}
		}
		reply = resp.Choices[0].Message.Content
		return nil
	})
	return reply, err
}

// StreamCompletion returns the reply as a sequence of text deltas. The
// upstream stream is opened when iteration starts and closed when it ends,
// including when the consumer stops early.
func (p *OpenAIProvider) StreamCompletion(ctx context.Context, model, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := p.llmClient.CreateChatCompletionStream(ctx, p.request(model, prompt, true))
		if err != nil {
			yield("", classify("streaming", model, err))
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", classify("streaming", model, err))
				return
			}
			for _, choice := range resp.Choices {
				if delta := choice.Delta.Content; delta != "" {
					if !yield(delta, nil) {
						return
					}
				}
			}
		}
	}
}

func (p *OpenAIProvider) request(model, prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:  model,
		Stream: stream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
	}
}

// withRetry runs call with a per-attempt timeout, retrying transient failures.
func (p *OpenAIProvider) withRetry(ctx context.Context, operation, model string, call func(ctx context.Context) error) error {
	var lastErr *AIError
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Debug("retrying AI call", "operation", operation, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return classify(operation, model, ctx.Err())
			case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = classify(operation, model, err)
		if ctx.Err() != nil || !lastErr.Retryable() {
			return lastErr
		}
		p.logger.Warn("AI call failed", "operation", operation, "attempt", attempt+1, "error", err)
	}
	return lastErr
}
