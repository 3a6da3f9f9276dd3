package pipeline

import (
	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/text"
)

// ChunkingHandler splits a cleaned record into chunks of the same category.
type ChunkingHandler interface {
	Chunk(cleaned models.CleanedRecord) ([]models.ChunkRecord, error)
}

type postChunkingHandler struct{ chunker text.Chunker }

func (h postChunkingHandler) Chunk(cleaned models.CleanedRecord) ([]models.ChunkRecord, error) {
	c, ok := cleaned.(models.PostCleaned)
	if !ok {
		return nil, mismatch(models.Posts, cleaned)
	}
	var out []models.ChunkRecord
	for _, piece := range h.chunker.Split(c.CleanedContent) {
		out = append(out, models.PostChunk{
			ChunkBase: newChunkBase(c.Base, piece),
			Platform:  c.Platform,
			Image:     c.Image,
		})
	}
	return out, nil
}

type articleChunkingHandler struct{ chunker text.Chunker }

func (h articleChunkingHandler) Chunk(cleaned models.CleanedRecord) ([]models.ChunkRecord, error) {
	c, ok := cleaned.(models.ArticleCleaned)
	if !ok {
		return nil, mismatch(models.Articles, cleaned)
	}
	var out []models.ChunkRecord
	for _, piece := range h.chunker.Split(c.CleanedContent) {
		out = append(out, models.ArticleChunk{
			ChunkBase: newChunkBase(c.Base, piece),
			Platform:  c.Platform,
			Link:      c.Link,
		})
	}
	return out, nil
}

type repositoryChunkingHandler struct{ chunker text.Chunker }

func (h repositoryChunkingHandler) Chunk(cleaned models.CleanedRecord) ([]models.ChunkRecord, error) {
	c, ok := cleaned.(models.RepositoryCleaned)
	if !ok {
		return nil, mismatch(models.Repositories, cleaned)
	}
	var out []models.ChunkRecord
	for _, piece := range h.chunker.Split(c.CleanedContent) {
		out = append(out, models.RepositoryChunk{
			ChunkBase: newChunkBase(c.Base, piece),
			Name:      c.Name,
			Link:      c.Link,
		})
	}
	return out, nil
}

func newChunkBase(b models.Base, content string) models.ChunkBase {
	return models.ChunkBase{
		Base:         b,
		ChunkID:      text.ContentHash(content),
		ChunkContent: content,
	}
}
