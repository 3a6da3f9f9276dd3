package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"github.com/Nerdward/my-llm-twin/features/job"
	"github.com/Nerdward/my-llm-twin/internal/middleware"
	"github.com/Nerdward/my-llm-twin/internal/models"
)

// HandlerName identifies this consumer in the failed job table.
const HandlerName = "feature-pipeline"

const messageTimeout = 2 * time.Minute

type FeatureConsumer struct {
	pipeline    Processor
	sink        Sink
	failed      FailedStore
	maxAttempts uint16
}

func NewFeatureConsumer(p Processor, s Sink, f FailedStore, maxAttempts uint16) *FeatureConsumer {
	return &FeatureConsumer{pipeline: p, sink: s, failed: f, maxAttempts: maxAttempts}
}

// HandleMessage returns nil to acknowledge and an error to have NSQ requeue.
// Poison pills and exhausted messages are acknowledged after being recorded.
func (h *FeatureConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(h.messageContext(m), messageTimeout)
	defer cancel()

	err := h.process(ctx, m.Body)
	if err == nil {
		return nil
	}

	if !models.IsRetryable(err) {
		slog.WarnContext(ctx, "poison pill: dropping message", "error", err, "attempts", m.Attempts)
		h.deadLetter(ctx, m, err)
		return nil
	}

	if h.maxAttempts > 0 && m.Attempts >= h.maxAttempts {
		slog.ErrorContext(ctx, "giving up on message", "error", err, "attempts", m.Attempts)
		h.deadLetter(ctx, m, err)
		return nil
	}

	slog.ErrorContext(ctx, "message failed, requeueing", "error", err, "attempts", m.Attempts)
	return err
}

func (h *FeatureConsumer) process(ctx context.Context, body []byte) error {
	res, err := h.pipeline.Process(ctx, body)
	if err != nil {
		return err
	}

	if err := h.sink.UpsertCleaned(ctx, []models.CleanedRecord{res.Cleaned}); err != nil {
		return err
	}
	if len(res.Embedded) > 0 {
		if err := h.sink.UpsertEmbedded(ctx, res.Embedded); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "record loaded", "chunks", len(res.Embedded))
	return nil
}

// messageContext carries the correlation id of the envelope, or the NSQ
// message id when the producer did not set one.
func (h *FeatureConsumer) messageContext(m *nsq.Message) context.Context {
	ctx := context.Background()

	var head struct {
		Type          string `json:"type"`
		EntryID       string `json:"entry_id"`
		CorrelationID string `json:"correlation_id"`
	}
	_ = json.Unmarshal(m.Body, &head)

	correlationID := head.CorrelationID
	if correlationID == "" {
		correlationID = string(m.ID[:])
	}
	ctx = middleware.WithCorrelationID(ctx, correlationID)
	if head.Type != "" || head.EntryID != "" {
		ctx = middleware.WithRecord(ctx, head.Type, head.EntryID)
	}
	return ctx
}

func (h *FeatureConsumer) deadLetter(ctx context.Context, m *nsq.Message, cause error) {
	if h.failed == nil {
		return
	}

	payload := json.RawMessage(m.Body)
	if !json.Valid(m.Body) {
		payload, _ = json.Marshal(string(m.Body))
	}
	_, entryID, _ := models.PeekType(m.Body)

	// Saving must not inherit the deadline of the message.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	failed := &job.Job{
		EntryID: entryID,
		Handler: HandlerName,
		Payload: payload,
		Error:   cause.Error(),
		Retries: int(m.Attempts),
	}
	if err := h.failed.Save(saveCtx, failed); err != nil {
		slog.ErrorContext(ctx, "failed to save failed job", "error", errors.Join(err, cause))
		return
	}
	slog.InfoContext(ctx, "saved failed job for retry", "job_id", failed.ID)
}
