// Package weaviate implements the chunk index on a Weaviate class with
// externally supplied vectors.
package weaviate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/vector"
)

var tracer = otel.Tracer("docchat.weaviate")

// Logger interface for Weaviate operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

var chunkProperties = []string{
	vector.KeyText, vector.KeyChatID, vector.KeyUserID, vector.KeyFileName,
	vector.KeyOriginalName, vector.KeySource,
}

// Index implements vector.Index on a Weaviate class.
type Index struct {
	client *weaviate.Client
	config *Config
	logger Logger
}

var _ vector.Index = (*Index)(nil)

func NewIndex(ctx context.Context, config *Config, logger Logger) (*Index, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weaviate config: %w", err)
	}

	cfg := weaviate.Config{Host: config.Host, Scheme: config.Scheme}
	if config.APIKey != "" {
		cfg.AuthConfig = auth.ApiKey{Value: config.APIKey}
	}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	idx := &Index{client: client, config: config, logger: logger}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("Weaviate index ready", "host", config.Host, "class", config.ClassName)
	return idx, nil
}

func (i *Index) ensureSchema(ctx context.Context) error {
	exists, err := i.client.Schema().ClassExistenceChecker().WithClassName(i.config.ClassName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check weaviate schema: %w", err)
	}
	if exists {
		return nil
	}

	err = i.client.Schema().ClassCreator().WithClass(chunkClass(i.config.ClassName)).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create weaviate class %s: %w", i.config.ClassName, err)
	}
	i.logger.Info("created weaviate class", "class", i.config.ClassName)
	return nil
}

// chunkClass describes the chunk class. Scope properties use field
// tokenization so Equal matches the whole id rather than its words.
func chunkClass(name string) *models.Class {
	props := make([]*models.Property, 0, len(chunkProperties)+2)
	for _, prop := range chunkProperties {
		p := &models.Property{Name: prop, DataType: []string{"text"}}
		if prop == vector.KeyChatID || prop == vector.KeyUserID {
			p.Tokenization = "field"
		}
		props = append(props, p)
	}
	props = append(props,
		&models.Property{Name: vector.KeyChunkIndex, DataType: []string{"int"}},
		&models.Property{Name: vector.KeyTotalChunks, DataType: []string{"int"}},
	)
	return &models.Class{
		Class:      name,
		Vectorizer: "none",
		Properties: props,
	}
}

// Query runs a near-vector search restricted to the scope's chat and user.
func (i *Index) Query(ctx context.Context, values []float32, topK int, scope domain.Scope) ([]domain.Chunk, error) {
	ctx, span := tracer.Start(ctx, "weaviate.Query")
	defer span.End()

	if scope.Empty() {
		return nil, errors.New("query requires chat and user scope")
	}

	ctx, cancel := context.WithTimeout(ctx, i.config.Timeout)
	defer cancel()

	fields := make([]graphql.Field, 0, len(chunkProperties)+1)
	for _, name := range chunkProperties {
		fields = append(fields, graphql.Field{Name: name})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "certainty"},
	}})

	result, err := i.client.GraphQL().Get().
		WithClassName(i.config.ClassName).
		WithFields(fields...).
		WithWhere(scopeWhere(scope)).
		WithNearVector(i.client.GraphQL().NearVectorArgBuilder().WithVector(values)).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		i.logger.Error("weaviate search failed", "chat_id", scope.ChatID, "error", err)
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("weaviate search failed: %s", strings.Join(msgs, "; "))
	}

	chunks, err := parseChunks(result.Data, i.config.ClassName)
	if err != nil {
		return nil, err
	}
	i.logger.Debug("weaviate search completed", "chat_id", scope.ChatID, "results_count", len(chunks))
	return chunks, nil
}

// Upsert imports records in one batch. Record IDs must be UUIDs.
func (i *Index) Upsert(ctx context.Context, records []vector.Record) error {
	ctx, span := tracer.Start(ctx, "weaviate.Upsert")
	defer span.End()

	objects := make([]*models.Object, len(records))
	for n, rec := range records {
		props := map[string]interface{}{}
		for k, v := range rec.Metadata {
			props[k] = v
		}
		props[vector.KeyChatID] = rec.Scope.ChatID
		props[vector.KeyUserID] = rec.Scope.UserID
		props[vector.KeyText] = rec.Text

		objects[n] = &models.Object{
			Class:      i.config.ClassName,
			ID:         strfmt.UUID(rec.ID),
			Vector:     rec.Values,
			Properties: props,
		}
	}

	resp, err := i.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to save objects to weaviate: %w", err)
	}
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate rejected object %s: %s", item.ID, item.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Close is a no-op; the client holds no long-lived connections.
func (i *Index) Close() error { return nil }

func scopeWhere(scope domain.Scope) *filters.WhereBuilder {
	return filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().WithPath([]string{vector.KeyChatID}).WithOperator(filters.Equal).WithValueString(scope.ChatID),
			filters.Where().WithPath([]string{vector.KeyUserID}).WithOperator(filters.Equal).WithValueString(scope.UserID),
		})
}

type chunkResult struct {
	Text         string `json:"text"`
	ChatID       string `json:"chatId"`
	UserID       string `json:"userId"`
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	Source       string `json:"source"`
	Additional   struct {
		ID        string  `json:"id"`
		Certainty float32 `json:"certainty"`
	} `json:"_additional"`
}

// parseChunks decodes the GraphQL Get payload for class into chunks.
func parseChunks(data map[string]models.JSONObject, class string) ([]domain.Chunk, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal weaviate response: %w", err)
	}

	var parsed struct {
		Get map[string][]chunkResult `json:"Get"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse weaviate response: %w", err)
	}

	rows := parsed.Get[class]
	chunks := make([]domain.Chunk, 0, len(rows))
	for _, row := range rows {
		source := row.OriginalName
		if source == "" {
			source = row.Source
		}
		chunks = append(chunks, domain.Chunk{
			ID:         row.Additional.ID,
			Text:       row.Text,
			DocumentID: row.FileName,
			Source:     source,
			ChatID:     row.ChatID,
			UserID:     row.UserID,
			Score:      row.Additional.Certainty,
		})
	}
	return chunks, nil
}
