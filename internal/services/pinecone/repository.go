// File: internal/services/pinecone/repository.go
package pinecone

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/vector"
)

// indexConnection is the subset of *pinecone.IndexConnection the service uses.
type indexConnection interface {
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	Close() error
}

// VectorService implements vector.Index on a Pinecone namespace.
type VectorService struct {
	conn   indexConnection
	retry  *retrier
	config *Config
	logger Logger
}

var _ vector.Index = (*VectorService)(nil)

func NewVectorService(config *Config, logger Logger) (*VectorService, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: config.APIKey})
	if err != nil {
		return nil, NewConnectionError("failed to create client", err)
	}
	conn, err := client.Index(pinecone.NewIndexConnParams{
		Host:      config.IndexHost,
		Namespace: config.Namespace,
	})
	if err != nil {
		return nil, NewConnectionError("failed to connect to index", err)
	}

	logger.Info("Pinecone index connection ready", "host", config.IndexHost, "namespace", config.Namespace)
	return newVectorService(conn, config, logger), nil
}

func newVectorService(conn indexConnection, config *Config, logger Logger) *VectorService {
	return &VectorService{
		conn:   conn,
		retry:  newRetrier(config, logger),
		config: config,
		logger: logger,
	}
}

// Query searches the namespace with a hard chatId/userId metadata filter.
func (v *VectorService) Query(ctx context.Context, values []float32, topK int, scope domain.Scope) ([]domain.Chunk, error) {
	if scope.Empty() {
		return nil, NewOperationError("query requires chat and user scope", nil)
	}
	filter, err := scopeFilter(scope)
	if err != nil {
		return nil, NewOperationError("failed to build metadata filter", err)
	}

	var resp *pinecone.QueryVectorsResponse
	err = v.retry.do(ctx, "query", func(ctx context.Context) error {
		var err error
		resp, err = v.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
			Vector:          values,
			TopK:            uint32(topK),
			MetadataFilter:  filter,
			IncludeMetadata: true,
		})
		return err
	})
	if err != nil {
		v.logger.Error("similarity search failed", "chat_id", scope.ChatID, "error", err)
		return nil, NewOperationError("search operation failed", err)
	}

	chunks := make([]domain.Chunk, 0, len(resp.Matches))
	for _, match := range resp.Matches {
		if chunk, ok := toChunk(match); ok {
			chunks = append(chunks, chunk)
		}
	}
	slices.SortStableFunc(chunks, func(a, b domain.Chunk) int { return cmp.Compare(b.Score, a.Score) })

	v.logger.Debug("similarity search completed", "chat_id", scope.ChatID, "results_count", len(chunks))
	return chunks, nil
}

// Upsert writes records in batches of config.BatchSize.
func (v *VectorService) Upsert(ctx context.Context, records []vector.Record) error {
	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, rec := range records {
		metadata, err := recordMetadata(rec)
		if err != nil {
			return NewOperationError(fmt.Sprintf("invalid metadata for %s", rec.ID), err)
		}
		values := rec.Values
		vectors = append(vectors, &pinecone.Vector{Id: rec.ID, Values: &values, Metadata: metadata})
	}

	for start := 0; start < len(vectors); start += v.config.BatchSize {
		batch := vectors[start:min(start+v.config.BatchSize, len(vectors))]
		err := v.retry.do(ctx, "upsert", func(ctx context.Context) error {
			_, err := v.conn.UpsertVectors(ctx, batch)
			return err
		})
		if err != nil {
			return NewOperationError("upsert operation failed", err)
		}
		v.logger.Debug("upserted vector batch", "count", len(batch))
	}
	return nil
}

func (v *VectorService) Close() error {
	return v.conn.Close()
}

func scopeFilter(scope domain.Scope) (*pinecone.MetadataFilter, error) {
	return structpb.NewStruct(map[string]any{
		"$and": []any{
			map[string]any{vector.KeyChatID: map[string]any{"$eq": scope.ChatID}},
			map[string]any{vector.KeyUserID: map[string]any{"$eq": scope.UserID}},
		},
	})
}

func recordMetadata(rec vector.Record) (*pinecone.Metadata, error) {
	fields := make(map[string]any, len(rec.Metadata)+3)
	for k, val := range rec.Metadata {
		fields[k] = val
	}
	fields[vector.KeyChatID] = rec.Scope.ChatID
	fields[vector.KeyUserID] = rec.Scope.UserID
	fields[vector.KeyText] = rec.Text
	return structpb.NewStruct(fields)
}

func toChunk(match *pinecone.ScoredVector) (domain.Chunk, bool) {
	if match == nil || match.Vector == nil {
		return domain.Chunk{}, false
	}
	fields := match.Vector.Metadata.GetFields()
	str := func(key string) string { return fields[key].GetStringValue() }

	source := str(vector.KeyOriginalName)
	if source == "" {
		source = str(vector.KeySource)
	}
	return domain.Chunk{
		ID:         match.Vector.Id,
		Text:       str(vector.KeyText),
		DocumentID: str(vector.KeyFileName),
		Source:     source,
		ChatID:     str(vector.KeyChatID),
		UserID:     str(vector.KeyUserID),
		Score:      match.Score,
	}, true
}
