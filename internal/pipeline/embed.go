package pipeline

import (
	"context"
	"fmt"

	"github.com/Nerdward/my-llm-twin/internal/models"
)

// Embedder maps text to a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingHandler attaches a vector to a chunk of its category.
type EmbeddingHandler interface {
	Embed(ctx context.Context, chunk models.ChunkRecord) (models.EmbeddedChunkRecord, error)
}

type postEmbeddingHandler struct{ embedder Embedder }

func (h postEmbeddingHandler) Embed(ctx context.Context, chunk models.ChunkRecord) (models.EmbeddedChunkRecord, error) {
	c, ok := chunk.(models.PostChunk)
	if !ok {
		return nil, mismatch(models.Posts, chunk)
	}
	vec, err := embed(ctx, h.embedder, c)
	if err != nil {
		return nil, err
	}
	return models.PostEmbeddedChunk{PostChunk: c, Embedding: vec}, nil
}

type articleEmbeddingHandler struct{ embedder Embedder }

func (h articleEmbeddingHandler) Embed(ctx context.Context, chunk models.ChunkRecord) (models.EmbeddedChunkRecord, error) {
	c, ok := chunk.(models.ArticleChunk)
	if !ok {
		return nil, mismatch(models.Articles, chunk)
	}
	vec, err := embed(ctx, h.embedder, c)
	if err != nil {
		return nil, err
	}
	return models.ArticleEmbeddedChunk{ArticleChunk: c, Embedding: vec}, nil
}

type repositoryEmbeddingHandler struct{ embedder Embedder }

func (h repositoryEmbeddingHandler) Embed(ctx context.Context, chunk models.ChunkRecord) (models.EmbeddedChunkRecord, error) {
	c, ok := chunk.(models.RepositoryChunk)
	if !ok {
		return nil, mismatch(models.Repositories, chunk)
	}
	vec, err := embed(ctx, h.embedder, c)
	if err != nil {
		return nil, err
	}
	return models.RepositoryEmbeddedChunk{RepositoryChunk: c, Embedding: vec}, nil
}

// embed never substitutes a placeholder vector for a failed call.
func embed(ctx context.Context, e Embedder, c models.ChunkRecord) ([]float32, error) {
	vec, err := e.Embed(ctx, c.Text())
	if err != nil {
		return nil, fmt.Errorf("%w: chunk %s: %v", models.ErrEmbeddingUnavailable, c.PointID(), err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: chunk %s: empty vector", models.ErrEmbeddingUnavailable, c.PointID())
	}
	return vec, nil
}
