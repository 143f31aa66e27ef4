// Package vector defines the nearest-neighbour index the chat pipeline reads
// from and the ingestion pipeline writes to.
package vector

import (
	"context"

	"github.com/iyunix/go-docchat/internal/domain"
)

// Metadata keys every indexed chunk carries.
const (
	KeyChatID       = "chatId"
	KeyUserID       = "userId"
	KeyFileName     = "fileName"
	KeyOriginalName = "originalName"
	KeyChunkIndex   = "chunkIndex"
	KeyTotalChunks  = "totalChunks"
	KeyText         = "text"
	KeySource       = "source"
)

// Record is one chunk to be written to the index.
type Record struct {
	ID       string
	Values   []float32
	Text     string
	Scope    domain.Scope
	Metadata map[string]any
}

// Index is a black-box nearest-neighbour search with metadata filtering.
type Index interface {
	// Query returns at most topK chunks whose chatId and userId metadata
	// equal the scope, ordered by descending similarity.
	Query(ctx context.Context, vector []float32, topK int, scope domain.Scope) ([]domain.Chunk, error)
	Upsert(ctx context.Context, records []Record) error
	Close() error
}
