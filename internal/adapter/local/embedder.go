// Package local embeds text with a self-hosted OpenAI-compatible server
// (Ollama, llama.cpp, text-embeddings-inference).
package local

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// DefaultBaseURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultBaseURL = "http://localhost:11434/v1"

func NewEmbedder(baseURL, model string) (*Embedder, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Local servers ignore the token but the client requires one.
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "local-embedder"),
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.logger.DebugContext(ctx, "generating embedding", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to generate embedding", "error", err)
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedder returned empty result")
	}
	return vectors[0], nil
}
