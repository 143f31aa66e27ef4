package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

func newTestProvider(t *testing.T, handler http.Handler) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	cfg.EmbeddingBatchSize = 2
	cfg.RetryDelay = time.Millisecond
	cfg.Timeout = 5 * time.Second

	p, err := NewOpenAIProvider(cfg, nopLogger{})
	require.NoError(t, err)
	return p
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(DefaultConfig(), nopLogger{})
	require.Error(t, err)

	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, ErrTypeConfig, aiErr.Type)
}

func TestCreateEmbeddings_BatchesAndKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		for i, text := range req.Input {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{float32(len(text))}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": "m"})
	}))

	vectors, err := p.CreateEmbeddings(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1}, vectors[0])
	assert.Equal(t, []float32{2}, vectors[1])
	assert.Equal(t, []float32{3}, vectors[2])
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetCompletion_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"standalone?"}}]}`))
	}))

	reply, err := p.GetCompletion(context.Background(), "m", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "standalone?", reply)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetCompletion_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	}))

	_, err := p.GetCompletion(context.Background(), "m", "prompt")
	require.Error(t, err)

	var aiErr *AIError
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, http.StatusBadRequest, aiErr.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func writeChunks(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range deltas {
		chunk, _ := json.Marshal(map[string]any{
			"id":      "c",
			"object":  "chat.completion.chunk",
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": d}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestStreamCompletion_YieldsDeltas(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, "Hel", "lo", "!")
	}))

	var got []string
	for delta, err := range p.StreamCompletion(context.Background(), "m", "prompt") {
		require.NoError(t, err)
		got = append(got, delta)
	}
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)
}

func TestStreamCompletion_StopsEarly(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeChunks(w, "a", "b", "c")
	}))

	var got []string
	for delta, err := range p.StreamCompletion(context.Background(), "m", "prompt") {
		require.NoError(t, err)
		got = append(got, delta)
		break
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestStreamCompletion_OpenError(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"no key","type":"auth"}}`))
	}))

	var errs []error
	for _, err := range p.StreamCompletion(context.Background(), "m", "prompt") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var aiErr *AIError
	require.ErrorAs(t, errs[0], &aiErr)
	assert.Equal(t, http.StatusUnauthorized, aiErr.Code)
}
