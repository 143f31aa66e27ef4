// File: internal/services/chat/retriever.go
package chat

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/vector"
)

// Embedder turns a query into a vector.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the chunks of one chat's documents closest to a query.
type Retriever struct {
	embedder Embedder
	index    vector.Index
	logger   Logger
}

func NewRetriever(embedder Embedder, index vector.Index, logger Logger) *Retriever {
	return &Retriever{embedder: embedder, index: index, logger: logger}
}

// Retrieve returns at most k chunks inside scope, ranked by descending score.
// An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope domain.Scope, k int) ([]domain.Chunk, error) {
	if scope.Empty() {
		return nil, NewInvalidInputError("retrieve", "retrieval scope requires chat and user")
	}
	if k <= 0 {
		return nil, NewInvalidInputError("retrieve", "k must be positive")
	}
	if strings.TrimSpace(query) == "" {
		return nil, NewInvalidInputError("retrieve", "query is empty")
	}

	embedding, err := r.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, NewUpstreamError("retrieve", "failed to embed query", err)
	}

	matches, err := r.index.Query(ctx, embedding, k, scope)
	if err != nil {
		return nil, NewUpstreamError("retrieve", "vector query failed", err)
	}

	// The index filter is trusted but not relied on.
	chunks := make([]domain.Chunk, 0, len(matches))
	dropped := 0
	for _, m := range matches {
		if !m.InScope(scope) {
			dropped++
			continue
		}
		chunks = append(chunks, m)
	}
	if dropped > 0 {
		r.logger.Warn("index returned chunks outside scope", "chat_id", scope.ChatID, "dropped", dropped)
	}

	slices.SortStableFunc(chunks, func(a, b domain.Chunk) int { return cmp.Compare(b.Score, a.Score) })
	if len(chunks) > k {
		chunks = chunks[:k]
	}
	for i := range chunks {
		chunks[i].Rank = i + 1
	}

	r.logger.Debug("chunks retrieved", "chat_id", scope.ChatID, "count", len(chunks))
	return chunks, nil
}
