package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_Embed(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{0.5, -0.25, 1}},
			},
			"usage": map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	}))
	defer ts.Close()

	e := NewEmbedder("test-key", WithBaseURL(ts.URL), WithEmbeddingDimension(3))
	vec, err := e.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)
	assert.Equal(t, "hello world", got["input"])
	assert.Equal(t, float64(3), got["dimensions"])
	assert.Equal(t, DefaultEmbeddingModel, got["model"])
}

func TestEmbedder_EmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[],"model":"m","usage":{"prompt_tokens":0,"total_tokens":0}}`))
	}))
	defer ts.Close()

	e := NewEmbedder("k", WithBaseURL(ts.URL), WithEmbeddingModel("m"))
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, "m", e.ModelName())
}
