// Package worker consumes raw records from the queue and drives them through
// the feature pipeline into the sink.
package worker

import (
	"context"

	"github.com/Nerdward/my-llm-twin/features/job"
	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/pipeline"
)

// Processor runs a queue message through decode, clean, chunk and embed.
type Processor interface {
	Process(ctx context.Context, body []byte) (*pipeline.Result, error)
}

// Sink is implemented by both vector store adapters.
type Sink interface {
	UpsertCleaned(ctx context.Context, records []models.CleanedRecord) error
	UpsertEmbedded(ctx context.Context, records []models.EmbeddedChunkRecord) error
}

// FailedStore records messages the consumer gives up on.
type FailedStore interface {
	Save(ctx context.Context, j *job.Job) error
}
