package weaviate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestParseChunks(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			"DocumentChunk": []interface{}{
				map[string]interface{}{
					"text":         "passage",
					"chatId":       "c1",
					"userId":       "u1",
					"fileName":     "u1/abc.pdf",
					"originalName": "report.pdf",
					"_additional":  map[string]interface{}{"id": "id-1", "certainty": 0.87},
				},
				map[string]interface{}{
					"text":        "other",
					"chatId":      "c1",
					"userId":      "u1",
					"source":      "notes.pdf",
					"_additional": map[string]interface{}{"id": "id-2", "certainty": 0.5},
				},
			},
		},
	}

	chunks, err := parseChunks(data, "DocumentChunk")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "id-1", chunks[0].ID)
	assert.Equal(t, "report.pdf", chunks[0].Source)
	assert.Equal(t, "u1/abc.pdf", chunks[0].DocumentID)
	assert.InDelta(t, 0.87, chunks[0].Score, 0.0001)
	assert.Equal(t, "notes.pdf", chunks[1].Source)
}

func TestParseChunks_MissingClass(t *testing.T) {
	chunks, err := parseChunks(map[string]models.JSONObject{"Get": map[string]interface{}{}}, "DocumentChunk")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.Host = "localhost:8080"
	assert.NoError(t, cfg.Validate())

	cfg.Scheme = "ftp"
	assert.Error(t, cfg.Validate())
}

func TestChunkClassScopePropertiesMatchWholeIDs(t *testing.T) {
	class := chunkClass("DocumentChunk")
	assert.Equal(t, "DocumentChunk", class.Class)
	assert.Equal(t, "none", class.Vectorizer)

	tokenization := make(map[string]string, len(class.Properties))
	for _, p := range class.Properties {
		tokenization[p.Name] = p.Tokenization
	}
	assert.Equal(t, "field", tokenization["chatId"])
	assert.Equal(t, "field", tokenization["userId"])
	assert.Empty(t, tokenization["text"])
	assert.Contains(t, tokenization, "chunkIndex")
}
