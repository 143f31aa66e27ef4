// File: cmd/diagnostic/llm_diagnostic.go
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-docchat/internal/services"
)

const defaultLLMPrompt = "Reply with one short sentence confirming you can read this."

func runLLMDiagnostic(cmd *cobra.Command, args []string) error {
	prompt := defaultLLMPrompt
	if len(args) == 1 {
		prompt = args[0]
	}

	provider, err := services.NewAIProvider(cfg, services.NewLogger("diagnostic"))
	if err != nil {
		return fmt.Errorf("initialize AI provider: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	log.Printf("--- Testing %s at %s ---", cfg.ChatModel, baseURL())

	start := time.Now()
	reply, err := provider.GetCompletion(ctx, cfg.ChatModel, prompt)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	log.Printf("[TIMING] Completion took %s", time.Since(start))
	log.Printf("Response: %s", reply)

	start = time.Now()
	var (
		firstDelta time.Duration
		deltas     int
		answer     strings.Builder
	)
	for delta, err := range provider.StreamCompletion(ctx, cfg.ChatModel, prompt) {
		if err != nil {
			return fmt.Errorf("streamed completion failed after %d deltas: %w", deltas, err)
		}
		if deltas == 0 {
			firstDelta = time.Since(start)
		}
		deltas++
		answer.WriteString(delta)
	}
	log.Printf("[TIMING] First delta after %s, %d deltas in %s", firstDelta, deltas, time.Since(start))
	log.Printf("Streamed response: %s", answer.String())
	return nil
}

func baseURL() string {
	if cfg.OpenAIBaseURL == "" {
		return "the default endpoint"
	}
	return cfg.OpenAIBaseURL
}
