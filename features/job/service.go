package job

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrPublishTimeout is returned by Retry when the queue does not accept the
// message in time.
var ErrPublishTimeout = errors.New("timeout waiting for NSQ publish")

const publishTimeout = 5 * time.Second

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo    Repository
	pub     EventPublisher
	topic   string
	logger  *slog.Logger
	timeout time.Duration
}

// NewService replays jobs onto topic.
func NewService(repo Repository, pub EventPublisher, topic string, logger *slog.Logger) *Service {
	return &Service{repo: repo, pub: pub, topic: topic, logger: logger, timeout: publishTimeout}
}

func (s *Service) List(ctx context.Context, f Filter) ([]Job, error) {
	return s.repo.List(ctx, f)
}

// Retry publishes the stored message again and removes the job. The job is
// kept when publishing fails.
func (s *Service) Retry(ctx context.Context, id string) error {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.pub.Publish(s.topic, job.Payload)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-time.After(s.timeout):
		s.logger.ErrorContext(ctx, "publish timed out", "job_id", id, "topic", s.topic)
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "job republished", "job_id", id, "entry_id", job.EntryID, "topic", s.topic)
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
