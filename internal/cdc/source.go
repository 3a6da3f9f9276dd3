package cdc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Nerdward/my-llm-twin/internal/middleware"
	"github.com/Nerdward/my-llm-twin/internal/models"
)

// ErrStreamClosed is returned by Run when the change stream ends on its own.
var ErrStreamClosed = errors.New("change stream closed")

// ChangeStream yields inserts. Next returns io.EOF once the stream is closed
// and an ErrMalformedRecord-wrapped error for an event it could not decode.
type ChangeStream interface {
	Next(ctx context.Context) (Mutation, error)
	Close(ctx context.Context) error
}

// Publisher is satisfied by *nsq.Producer.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// Source forwards inserts of the watched collections to the queue. It keeps
// no resume token: inserts made while it is down are not replayed.
type Source struct {
	stream    ChangeStream
	pub       Publisher
	topic     string
	supported map[string]bool
}

func NewSource(stream ChangeStream, pub Publisher, topic string, collections []string) *Source {
	supported := make(map[string]bool, len(collections))
	for _, c := range collections {
		if cat, err := models.ParseCategory(strings.TrimSpace(c)); err == nil {
			supported[string(cat)] = true
		}
	}
	return &Source{stream: stream, pub: pub, topic: topic, supported: supported}
}

// Run consumes the stream until ctx is cancelled or the stream fails.
func (s *Source) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "change stream opened", "topic", s.topic)
	for {
		m, err := s.stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.InfoContext(ctx, "change stream stopped")
				return nil
			}
			if errors.Is(err, models.ErrMalformedRecord) {
				slog.WarnContext(ctx, "skipping undecodable change event", "error", err)
				continue
			}
			if errors.Is(err, io.EOF) {
				slog.ErrorContext(ctx, "change stream closed by server")
				return ErrStreamClosed
			}
			slog.ErrorContext(ctx, "change stream failed", "error", err)
			return fmt.Errorf("%w: %v", models.ErrConnectivity, err)
		}
		s.Handle(ctx, m)
	}
}

// Handle converts and publishes a single mutation. It reports whether the
// mutation was published.
func (s *Source) Handle(ctx context.Context, m Mutation) bool {
	if !s.supported[m.Collection] {
		slog.InfoContext(ctx, "unsupported data type", "type", m.Collection)
		return false
	}

	env, err := Convert(m)
	if err != nil {
		slog.WarnContext(ctx, "skipping malformed mutation", "type", m.Collection, "error", err)
		return false
	}

	correlationID := uuid.NewString()
	env[models.FieldCorrelationID] = correlationID
	ctx = middleware.WithCorrelationID(ctx, correlationID)
	ctx = middleware.WithRecord(ctx, env.Type(), env.EntryID())

	body, err := env.Marshal()
	if err != nil {
		slog.WarnContext(ctx, "skipping unserializable mutation", "error", err)
		return false
	}

	if err := s.pub.Publish(s.topic, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish change", "topic", s.topic, "error", err)
		return false
	}
	slog.InfoContext(ctx, "change published", "topic", s.topic, "bytes", len(body))
	return true
}

// Close releases the underlying stream.
func (s *Source) Close(ctx context.Context) error {
	return s.stream.Close(ctx)
}
