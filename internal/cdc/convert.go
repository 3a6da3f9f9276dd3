// Package cdc turns inserts on the source document store into queue messages.
package cdc

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nerdward/my-llm-twin/internal/models"
)

// Mutation is one insert observed on the change stream.
type Mutation struct {
	Collection string
	Document   bson.M
}

// Convert builds the queue envelope of a mutation: the collection becomes
// "type", the document id becomes "entry_id" and every store-native value is
// replaced by its JSON form.
func Convert(m Mutation) (models.Envelope, error) {
	if m.Collection == "" {
		return nil, fmt.Errorf("%w: mutation without collection", models.ErrMalformedRecord)
	}
	id, ok := m.Document["_id"]
	if !ok || id == nil {
		return nil, fmt.Errorf("%w: %s document without _id", models.ErrMalformedRecord, m.Collection)
	}

	env := make(models.Envelope, len(m.Document)+1)
	for k, v := range m.Document {
		if k == "_id" {
			continue
		}
		env[k] = Coerce(v)
	}

	entryID, ok := Coerce(id).(string)
	if !ok {
		entryID = fmt.Sprint(Coerce(id))
	}
	env[models.FieldType] = m.Collection
	env[models.FieldEntryID] = entryID
	return env, nil
}

// Coerce maps BSON values onto JSON-native ones, recursing into documents and arrays.
func Coerce(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC().Format(time.RFC3339)
	case primitive.Binary:
		if t.Subtype == bson.TypeBinaryUUID || t.Subtype == bson.TypeBinaryUUIDOld {
			if len(t.Data) == 16 {
				return fmt.Sprintf("%x-%x-%x-%x-%x", t.Data[0:4], t.Data[4:6], t.Data[6:8], t.Data[8:10], t.Data[10:16])
			}
		}
		return base64.StdEncoding.EncodeToString(t.Data)
	case primitive.Decimal128:
		return t.String()
	case primitive.Regex:
		return t.String()
	case primitive.JavaScript:
		return string(t)
	case primitive.Symbol:
		return string(t)
	case primitive.Undefined, primitive.Null, primitive.MinKey, primitive.MaxKey:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Coerce(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = Coerce(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Coerce(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Coerce(e)
		}
		return out
	default:
		return v
	}
}
