package models

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedCategory is returned for a type outside the closed category set.
	ErrUnsupportedCategory = errors.New("unsupported category")
	// ErrMalformedRecord is returned when required fields are missing or ill-typed.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrConnectivity is returned when the source, queue or sink cannot be reached.
	ErrConnectivity = errors.New("connectivity failure")
	// ErrWriteFailed is returned when the sink rejects a batch.
	ErrWriteFailed = errors.New("sink write failed")
	// ErrEmbeddingUnavailable is returned when the embedding function fails.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrMixedBatch is returned when a batch spans more than one category.
	ErrMixedBatch = errors.New("batch mixes categories")
)

// IsRetryable reports whether redelivering the same message could succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectivity) ||
		errors.Is(err, ErrWriteFailed) ||
		errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
