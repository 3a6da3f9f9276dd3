// Package job keeps queue messages the feature worker gave up on, and lets
// an operator list and replay them.
package job

import (
	"encoding/json"
	"time"
)

// Job is a dead-lettered queue message.
type Job struct {
	ID        string          `json:"id"`
	EntryID   string          `json:"entry_id"`
	Handler   string          `json:"handler"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
}
