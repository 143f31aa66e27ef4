package chat

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/iyunix/go-docchat/internal/domain"
	"github.com/iyunix/go-docchat/internal/services/vector"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) GetCompletion(ctx context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeCompleter) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// fakeStreamer yields deltas, then err if set. With block set it waits for
// release or ctx cancellation after the first delta (or before any, if
// there are none).
type fakeStreamer struct {
	mu      sync.Mutex
	deltas  []string
	err     error
	block   bool
	release chan struct{}
	prompts []string
}

func (f *fakeStreamer) StreamCompletion(ctx context.Context, model, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.mu.Lock()
		f.prompts = append(f.prompts, prompt)
		f.mu.Unlock()

		if ctx.Err() != nil {
			yield("", ctx.Err())
			return
		}
		for i, d := range f.deltas {
			if !yield(d, nil) {
				return
			}
			if i == 0 && f.block {
				if !f.wait(ctx) {
					yield("", ctx.Err())
					return
				}
			}
		}
		if len(f.deltas) == 0 && f.block && !f.wait(ctx) {
			yield("", ctx.Err())
			return
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func (f *fakeStreamer) wait(ctx context.Context) bool {
	select {
	case <-f.release:
		return true
	case <-ctx.Done():
		return false
	}
}

func (f *fakeStreamer) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeEmbedder struct {
	mu      sync.Mutex
	err     error
	queries []string
}

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

// fakeIndex returns every stored chunk regardless of scope so callers can
// prove they filter for themselves.
type fakeIndex struct {
	mu     sync.Mutex
	chunks []domain.Chunk
	err    error
	scopes []domain.Scope
	topKs  []int
}

func (f *fakeIndex) Query(ctx context.Context, v []float32, topK int, scope domain.Scope) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
	f.topKs = append(f.topKs, topK)
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Chunk(nil), f.chunks...), nil
}

func (f *fakeIndex) Upsert(ctx context.Context, records []vector.Record) error { return nil }
func (f *fakeIndex) Close() error                                              { return nil }

var errUpstream = errors.New("upstream exploded")
