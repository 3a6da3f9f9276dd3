// Package pipeline implements the stream stages of the feature pipeline:
// raw dispatch, cleaning, chunking and embedding. Every stage is pure given
// its input; only embedding calls out, through the injected Embedder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Nerdward/my-llm-twin/internal/middleware"
	"github.com/Nerdward/my-llm-twin/internal/models"
)

// Result is everything one raw record produces for the sink.
type Result struct {
	Cleaned  models.CleanedRecord
	Embedded []models.EmbeddedChunkRecord
}

type Pipeline struct {
	factory Factory
	pool    *ants.Pool
	logger  *slog.Logger
}

// New builds a pipeline whose chunk embeddings run on a pool of poolSize goroutines.
func New(factory Factory, poolSize int) (*Pipeline, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		factory: factory,
		pool:    pool,
		logger:  slog.Default().With("component", "pipeline"),
	}, nil
}

func (p *Pipeline) Release() {
	p.pool.Release()
}

// Process runs one queue message through every stage.
func (p *Pipeline) Process(ctx context.Context, body []byte) (*Result, error) {
	raw, err := p.Decode(ctx, body)
	if err != nil {
		return nil, err
	}
	ctx = middleware.WithRecord(ctx, string(raw.Category()), raw.ID())

	cleaned, err := p.Clean(ctx, raw)
	if err != nil {
		return nil, err
	}
	chunks, err := p.Chunk(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	embedded, err := p.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	return &Result{Cleaned: cleaned, Embedded: embedded}, nil
}

func (p *Pipeline) Decode(ctx context.Context, body []byte) (models.RawRecord, error) {
	raw, err := DecodeRaw(body)
	if err != nil {
		p.logger.WarnContext(ctx, "raw message rejected", "error", err)
		return nil, err
	}
	p.logger.DebugContext(ctx, "raw message decoded", "type", raw.Category(), "entry_id", raw.ID())
	return raw, nil
}

func (p *Pipeline) Clean(ctx context.Context, raw models.RawRecord) (models.CleanedRecord, error) {
	h, err := p.factory.Cleaning(raw.Category())
	if err != nil {
		return nil, err
	}
	cleaned, err := h.Clean(raw)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "data cleaned successfully", "cleaned_content_len", len(cleaned.Text()))
	return cleaned, nil
}

func (p *Pipeline) Chunk(ctx context.Context, cleaned models.CleanedRecord) ([]models.ChunkRecord, error) {
	h, err := p.factory.Chunking(cleaned.Category())
	if err != nil {
		return nil, err
	}
	chunks, err := h.Chunk(cleaned)
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "cleaned content chunked successfully", "num", len(chunks))
	return chunks, nil
}

// Embed embeds chunks concurrently and returns them in input order. The
// first failure cancels the chunks not yet started and is returned.
func (p *Pipeline) Embed(ctx context.Context, chunks []models.ChunkRecord) ([]models.EmbeddedChunkRecord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]models.EmbeddedChunkRecord, len(chunks))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i, chunk := range chunks {
		h, err := p.factory.Embedding(chunk.Category())
		if err != nil {
			fail(err)
			break
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			e, err := h.Embed(ctx, chunk)
			if err != nil {
				fail(err)
				return
			}
			out[i] = e
			p.logger.DebugContext(ctx, "chunk embedded successfully", "chunk_id", chunk.PointID(), "embedding_len", len(e.Vector()))
		}
		if err := p.pool.Submit(task); err != nil {
			wg.Done()
			fail(errors.Join(models.ErrEmbeddingUnavailable, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}

	p.logger.InfoContext(ctx, "chunks embedded successfully", "num", len(out), "embedding_len", len(out[0].Vector()))
	return out, nil
}
