package cdc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Nerdward/my-llm-twin/internal/models"
	"github.com/Nerdward/my-llm-twin/internal/pipeline"
)

func TestConvert_PostInsert(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("65a1f0c2e4b0a1b2c3d4e5f6")
	require.NoError(t, err)

	env, err := Convert(Mutation{
		Collection: "posts",
		Document: bson.M{
			"_id":       oid,
			"author_id": "u1",
			"platform":  "linkedin",
			"content":   bson.M{"text": "Hello 𝐰𝐨𝐫𝐥𝐝"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "posts", env.Type())
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", env.EntryID())
	assert.NotContains(t, env, "_id")

	body, err := env.Marshal()
	require.NoError(t, err)

	raw, err := pipeline.DecodeRaw(body)
	require.NoError(t, err)
	assert.Equal(t, models.Posts, raw.Category())
	assert.Equal(t, "65a1f0c2e4b0a1b2c3d4e5f6", raw.ID())
	assert.Equal(t, "u1", raw.Author())
}

func TestConvert_MissingID(t *testing.T) {
	_, err := Convert(Mutation{Collection: "posts", Document: bson.M{"platform": "x"}})
	assert.ErrorIs(t, err, models.ErrMalformedRecord)

	_, err = Convert(Mutation{Document: bson.M{"_id": "x"}})
	assert.ErrorIs(t, err, models.ErrMalformedRecord)
}

func TestConvert_StringID(t *testing.T) {
	env, err := Convert(Mutation{Collection: "articles", Document: bson.M{"_id": "custom-id"}})
	require.NoError(t, err)
	assert.Equal(t, "custom-id", env.EntryID())
}

func TestCoerce(t *testing.T) {
	oid := primitive.NewObjectID()
	when := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	dec, err := primitive.ParseDecimal128("12.50")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"object id", oid, oid.Hex()},
		{"datetime", primitive.NewDateTimeFromTime(when), "2024-03-01T12:30:00Z"},
		{"timestamp", primitive.Timestamp{T: uint32(when.Unix())}, "2024-03-01T12:30:00Z"},
		{"binary", primitive.Binary{Subtype: 0x00, Data: []byte("hi")}, "aGk="},
		{"uuid", primitive.Binary{Subtype: 0x04, Data: []byte{0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0, 0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0}}, "12345678-9abc-def0-1234-56789abcdef0"},
		{"decimal", dec, "12.50"},
		{"null", primitive.Null{}, nil},
		{"string", "plain", "plain"},
		{"int", int32(7), int32(7)},
		{"nested", bson.M{"at": primitive.NewDateTimeFromTime(when), "ids": bson.A{oid}}, map[string]any{"at": "2024-03-01T12:30:00Z", "ids": []any{oid.Hex()}}},
		{"ordered doc", bson.D{{Key: "a", Value: oid}}, map[string]any{"a": oid.Hex()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.in))
		})
	}
}

func TestConvert_ResultIsJSONNative(t *testing.T) {
	env, err := Convert(Mutation{
		Collection: "repositories",
		Document: bson.M{
			"_id":        primitive.NewObjectID(),
			"name":       "twin",
			"link":       "https://github.com/u/twin",
			"created_at": primitive.NewDateTimeFromTime(time.Now()),
			"content":    bson.M{"main.go": "package main", "docs": bson.M{"README.md": "# twin"}},
		},
	})
	require.NoError(t, err)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "$date")
	assert.NotContains(t, string(body), "$oid")
}
