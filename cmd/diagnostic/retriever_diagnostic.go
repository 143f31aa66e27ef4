// File: cmd/diagnostic/retriever_diagnostic.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services"
	"github.com/iyunix/go-docchat/internal/services/chat"
)

const defaultRetrieverQuery = "What are the termination clauses?"

func runRetrieverDiagnostic(cmd *cobra.Command, args []string) error {
	query := defaultRetrieverQuery
	if len(args) == 1 {
		query = args[0]
	}
	if runs <= 0 {
		return fmt.Errorf("--runs must be positive")
	}

	logger := services.NewLogger("diagnostic")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	provider, err := services.NewAIProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize AI provider: %w", err)
	}
	index, err := services.NewVectorIndex(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize %s index: %w", cfg.VectorBackend, err)
	}
	defer index.Close()

	log.Printf("--- Running %s retrieval test ---", cfg.VectorBackend)
	log.Printf("Test Query: %q (chat %s, user %s)", query, chatID, userID)

	start := time.Now()
	embedding, err := provider.CreateEmbedding(ctx, query)
	if err != nil {
		return fmt.Errorf("create embedding: %w", err)
	}
	log.Printf("[TIMING] Embedding creation took: %s (%d dimensions)", time.Since(start), len(embedding))

	scope := domain.Scope{ChatID: chatID, UserID: userID}
	var total time.Duration
	succeeded := 0
	for i := 1; i <= runs; i++ {
		start := time.Now()
		chunks, err := index.Query(ctx, embedding, topK, scope)
		if err != nil {
			log.Printf("ERROR: Query run #%d failed: %v", i, err)
			continue
		}
		took := time.Since(start)
		total += took
		succeeded++
		log.Printf("[TIMING] Query run #%d took: %s (found %d chunks)", i, took, len(chunks))
		if i == 1 {
			for _, c := range chunks {
				log.Printf("  %.3f %s %q", c.Score, chat.CleanFilename(c.Source), chat.TruncateText(c.Text, 80))
			}
		}
	}
	if succeeded == 0 {
		return fmt.Errorf("all %d queries failed", runs)
	}

	log.Printf("--- Test Summary ---")
	log.Printf("Average query latency over %d runs: %s", succeeded, total/time.Duration(succeeded))
	return nil
}
