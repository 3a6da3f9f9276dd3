package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestInsertPipeline(t *testing.T) {
	p := InsertPipeline()
	assert.Len(t, p, 1)

	raw, err := bson.MarshalExtJSON(bson.D{{Key: "pipeline", Value: p}}, false, false)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"pipeline":[{"$match":{"operationType":{"$in":["insert"]}}}]}`, string(raw))
}
