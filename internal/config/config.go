// File: internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	VectorBackendPinecone = "pinecone"
	VectorBackendWeaviate = "weaviate"

	maxHistoryWindow = 100
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"docchat.db"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecretKey string `env:"JWT_SECRET_KEY"`

	// Models
	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"`
	ChatModel          string `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	CondenseModel      string `env:"CONDENSE_MODEL"`
	EmbeddingModelName string `env:"EMBEDDING_MODEL_NAME" envDefault:"text-embedding-3-small"`

	// Vector index
	VectorBackend     string `env:"VECTOR_BACKEND" envDefault:"pinecone"`
	PineconeAPIKey    string `env:"PINECONE_API_KEY"`
	PineconeIndexHost string `env:"PINECONE_INDEX_HOST"`
	PineconeNamespace string `env:"PINECONE_NAMESPACE" envDefault:"documents"`
	WeaviateHost      string `env:"WEAVIATE_HOST" envDefault:"localhost:8081"`
	WeaviateScheme    string `env:"WEAVIATE_SCHEME" envDefault:"http"`
	WeaviateAPIKey    string `env:"WEAVIATE_API_KEY"`
	WeaviateClass     string `env:"WEAVIATE_CLASS" envDefault:"DocumentChunk"`

	// Turn pipeline
	RetrievalTopK int    `env:"RAG_TOPK" envDefault:"4"`
	HistoryWindow int    `env:"LAST_K_CHAT_HISTORY" envDefault:"5"`
	PromptProfile string `env:"PROMPT_PROFILE" envDefault:"documents"`

	// Uploads
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UploadBucket      string `env:"UPLOAD_BUCKET" envDefault:"uploads"`
	MaxUploadBytes    int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	// HTTP
	StreamRatePerMinute int      `env:"STREAM_RATE_PER_MINUTE" envDefault:"20"`
	CORSAllowedOrigins  []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Load reads configuration from environment variables, loading a .env file
// first outside production.
func Load() (*Config, error) {
	if strings.ToLower(os.Getenv("ENV")) != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CondenseModel == "" {
		cfg.CondenseModel = cfg.ChatModel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// Validate checks value ranges always and required secrets in production.
func (c *Config) Validate() error {
	switch c.VectorBackend {
	case VectorBackendPinecone, VectorBackendWeaviate:
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend)
	}
	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("RAG_TOPK must be positive")
	}
	if c.HistoryWindow < 0 || c.HistoryWindow > maxHistoryWindow {
		return fmt.Errorf("LAST_K_CHAT_HISTORY must be between 0 and %d", maxHistoryWindow)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.StreamRatePerMinute <= 0 {
		return fmt.Errorf("STREAM_RATE_PER_MINUTE must be positive")
	}

	if !c.IsProduction() {
		return nil
	}
	missing := []string{}
	if c.JWTSecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.VectorBackend == VectorBackendPinecone {
		if c.PineconeAPIKey == "" {
			missing = append(missing, "PINECONE_API_KEY")
		}
		if c.PineconeIndexHost == "" {
			missing = append(missing, "PINECONE_INDEX_HOST")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required production environment variables: %v", missing)
	}
	return nil
}
