// File: internal/services/chat/generator.go
package chat

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync/atomic"
)

// ErrAlreadyConsumed is yielded when a generation is ranged over twice.
var ErrAlreadyConsumed = errors.New("generation already consumed")

// StreamCompleter streams answer fragments for a prompt.
type StreamCompleter interface {
	StreamCompletion(ctx context.Context, model, prompt string) iter.Seq2[string, error]
}

// Generator streams an answer for a fully rendered prompt.
type Generator struct {
	completer StreamCompleter
	model     string
}

func NewGenerator(completer StreamCompleter, model string) *Generator {
	return &Generator{completer: completer, model: model}
}

func (g *Generator) Model() string { return g.model }

// Generate returns a finite, single-consumer sequence of text fragments. A
// non-nil error is always the last element.
func (g *Generator) Generate(ctx context.Context, prompt string) iter.Seq2[string, error] {
	var consumed atomic.Bool
	return func(yield func(string, error) bool) {
		if !consumed.CompareAndSwap(false, true) {
			yield("", ErrAlreadyConsumed)
			return
		}
		if strings.TrimSpace(prompt) == "" {
			yield("", NewInvalidInputError("generate", "prompt is empty"))
			return
		}
		for delta, err := range g.completer.StreamCompletion(ctx, g.model, prompt) {
			if err != nil {
				yield("", NewUpstreamError("generate", "answer stream failed", err))
				return
			}
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}
