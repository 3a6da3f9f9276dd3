package pipeline

import (
	"fmt"

	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/text"
)

// Factory selects the stage handler for a category. Every lookup fails with
// ErrUnsupportedCategory for a category outside the closed set.
type Factory struct {
	Filter   *text.RepoFilter
	Chunker  text.Chunker
	Embedder Embedder
}

func (f Factory) Cleaning(c models.Category) (CleaningHandler, error) {
	switch c {
	case models.Posts:
		return postCleaningHandler{}, nil
	case models.Articles:
		return articleCleaningHandler{}, nil
	case models.Repositories:
		return repositoryCleaningHandler{filter: f.Filter}, nil
	}
	return nil, unsupported(c)
}

func (f Factory) Chunking(c models.Category) (ChunkingHandler, error) {
	switch c {
	case models.Posts:
		return postChunkingHandler{chunker: f.Chunker}, nil
	case models.Articles:
		return articleChunkingHandler{chunker: f.Chunker}, nil
	case models.Repositories:
		return repositoryChunkingHandler{chunker: f.Chunker.WithoutSections()}, nil
	}
	return nil, unsupported(c)
}

func (f Factory) Embedding(c models.Category) (EmbeddingHandler, error) {
	var h EmbeddingHandler
	switch c {
	case models.Posts:
		h = postEmbeddingHandler{embedder: f.Embedder}
	case models.Articles:
		h = articleEmbeddingHandler{embedder: f.Embedder}
	case models.Repositories:
		h = repositoryEmbeddingHandler{embedder: f.Embedder}
	default:
		return nil, unsupported(c)
	}
	if f.Embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", models.ErrEmbeddingUnavailable)
	}
	return h, nil
}

func unsupported(c models.Category) error {
	return fmt.Errorf("%w: %q", models.ErrUnsupportedCategory, string(c))
}
