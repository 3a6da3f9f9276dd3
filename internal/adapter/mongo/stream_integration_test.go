package mongo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	mongoadapter "github.com/Nerdward/my-llm-twin/internal/adapter/mongo"
	"github.com/Nerdward/my-llm-twin/internal/testutils"
)

func TestStream_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongoadapter.Connect(ctx, s.MongoURI)
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("twin")
	stream, err := mongoadapter.Watch(ctx, db)
	require.NoError(t, err)
	defer stream.Close(context.Background())

	_, err = db.Collection("posts").InsertOne(ctx, bson.M{"platform": "linkedin", "content": bson.M{"text": "Hello"}})
	require.NoError(t, err)

	m, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "posts", m.Collection)
	assert.Equal(t, "linkedin", m.Document["platform"])
	assert.NotNil(t, m.Document["_id"])
}
