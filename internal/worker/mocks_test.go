package worker_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Nerdward/my-llm-twin/features/job"
	"github.com/Nerdward/my-llm-twin/internal/models"
)

type MockSink struct{ mock.Mock }

func (m *MockSink) UpsertCleaned(ctx context.Context, records []models.CleanedRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockSink) UpsertEmbedded(ctx context.Context, records []models.EmbeddedChunkRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

type MockJobRepo struct{ mock.Mock }

func (m *MockJobRepo) Save(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// queue stands in for nsqd between the change source and the consumer.
type queue struct {
	mu     sync.Mutex
	bodies [][]byte
}

func (q *queue) Publish(topic string, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.bodies = append(q.bodies, body)
	return nil
}
