package models

import (
	"encoding/json"
	"fmt"
)

// Envelope is the canonical queue message: a flat JSON object whose "type"
// names the category and whose "entry_id" is the source identifier. Every
// value is already JSON-native; store-specific scalars are converted by the
// change source before publishing.
type Envelope map[string]any

func (e Envelope) Type() string {
	s, _ := e[FieldType].(string)
	return s
}

func (e Envelope) EntryID() string {
	s, _ := e[FieldEntryID].(string)
	return s
}

func (e Envelope) CorrelationID() string {
	s, _ := e[FieldCorrelationID].(string)
	return s
}

func (e Envelope) Marshal() ([]byte, error) {
	if e.Type() == "" {
		return nil, fmt.Errorf("%w: envelope without type", ErrMalformedRecord)
	}
	if e.EntryID() == "" {
		return nil, fmt.Errorf("%w: envelope without entry_id", ErrMalformedRecord)
	}
	return json.Marshal(map[string]any(e))
}

// PeekType reads the category and entry id of a message without decoding its content.
func PeekType(body []byte) (string, string, error) {
	var head struct {
		Type    string `json:"type"`
		EntryID string `json:"entry_id"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return head.Type, head.EntryID, nil
}
