// File: internal/services/ai_service.go
package services

import (
	"github.com/iyunix/go-docchat/internal/config"
	"github.com/iyunix/go-docchat/internal/services/ai"
	"github.com/iyunix/go-docchat/internal/services/chat"
	"github.com/iyunix/go-docchat/internal/services/ingest"
)

// NewAIProvider builds the OpenAI-compatible client used for embeddings,
// condensing and answer streaming.
func NewAIProvider(cfg *config.Config, logger Logger) (*ai.OpenAIProvider, error) {
	return ai.NewOpenAIProvider(AIConfig(cfg), logger)
}

func AIConfig(cfg *config.Config) *ai.Config {
	ac := ai.DefaultConfig()
	ac.APIKey = cfg.OpenAIAPIKey
	ac.BaseURL = cfg.OpenAIBaseURL
	ac.EmbeddingModel = cfg.EmbeddingModelName
	return ac
}

// ChatConfig maps the environment onto the turn pipeline settings.
func ChatConfig(cfg *config.Config) *chat.Config {
	cc := chat.DefaultConfig()
	cc.RetrievalTopK = cfg.RetrievalTopK
	cc.HistoryWindow = cfg.HistoryWindow
	cc.ChatModel = cfg.ChatModel
	cc.CondenseModel = cfg.CondenseModel
	cc.Profile = cfg.PromptProfile
	return cc
}

func IngestConfig(cfg *config.Config) *ingest.Config {
	ic := ingest.DefaultConfig()
	ic.Bucket = cfg.UploadBucket
	ic.MaxBytes = cfg.MaxUploadBytes
	return ic
}
