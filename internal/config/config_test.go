package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("CHAT_MODEL", "gpt-4o")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 4, cfg.RetrievalTopK)
	assert.Equal(t, 5, cfg.HistoryWindow)
	assert.Equal(t, "documents", cfg.PromptProfile)
	assert.Equal(t, "gpt-4o", cfg.CondenseModel)
	assert.EqualValues(t, 5<<20, cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("RAG_TOPK", "8")
	t.Setenv("LAST_K_CHAT_HISTORY", "0")
	t.Setenv("VECTOR_BACKEND", "weaviate")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.RetrievalTopK)
	assert.Equal(t, 0, cfg.HistoryWindow)
	assert.Equal(t, VectorBackendWeaviate, cfg.VectorBackend)
	assert.Len(t, cfg.CORSAllowedOrigins, 2)
}

func TestParse_Rejects(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "chroma")
	_, err := Parse()
	assert.Error(t, err)

	t.Setenv("VECTOR_BACKEND", "pinecone")
	t.Setenv("LAST_K_CHAT_HISTORY", "1000")
	_, err = Parse()
	assert.Error(t, err)

	t.Setenv("LAST_K_CHAT_HISTORY", "5")
	t.Setenv("RAG_TOPK", "not-a-number")
	_, err = Parse()
	assert.Error(t, err)
}

func TestParse_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY")

	t.Setenv("JWT_SECRET_KEY", "s")
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("PINECONE_API_KEY", "p")
	t.Setenv("PINECONE_INDEX_HOST", "https://idx.example")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
