// File: internal/services/vector_service.go
package services

import (
	"context"
	"fmt"

	"github.com/iyunix/go-docchat/internal/config"
	"github.com/iyunix/go-docchat/internal/services/pinecone"
	"github.com/iyunix/go-docchat/internal/services/vector"
	"github.com/iyunix/go-docchat/internal/services/weaviate"
)

// NewVectorIndex connects to the backend selected by VECTOR_BACKEND.
func NewVectorIndex(ctx context.Context, cfg *config.Config, logger Logger) (vector.Index, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendPinecone:
		idx, err := pinecone.NewVectorService(PineconeConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case config.VectorBackendWeaviate:
		idx, err := weaviate.NewIndex(ctx, WeaviateConfig(cfg), logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func PineconeConfig(cfg *config.Config) *pinecone.Config {
	pc := pinecone.DefaultConfig()
	pc.APIKey = cfg.PineconeAPIKey
	pc.IndexHost = cfg.PineconeIndexHost
	pc.Namespace = cfg.PineconeNamespace
	return pc
}

func WeaviateConfig(cfg *config.Config) *weaviate.Config {
	wc := weaviate.DefaultConfig()
	wc.Host = cfg.WeaviateHost
	wc.Scheme = cfg.WeaviateScheme
	wc.APIKey = cfg.WeaviateAPIKey
	if cfg.WeaviateClass != "" {
		wc.ClassName = cfg.WeaviateClass
	}
	return wc
}
