// Package mongo opens the insert change stream on the source database.
package mongo

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Nerdward/my-llm-twin/internal/cdc"
	"github.com/Nerdward/my-llm-twin/internal/models"
)

// InsertPipeline restricts a change stream to insert events.
func InsertPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert"}}}},
		}}},
	}
}

// Connect dials the store and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: connect mongo: %v", models.ErrConnectivity, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping mongo: %v", models.ErrConnectivity, err)
	}
	return client, nil
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	NS            struct {
		DB   string `bson:"db"`
		Coll string `bson:"coll"`
	} `bson:"ns"`
	FullDocument bson.M `bson:"fullDocument"`
}

// Stream adapts a database-wide change stream to cdc.ChangeStream.
type Stream struct {
	cs *mongo.ChangeStream
}

// Watch opens the insert stream over every collection of db.
func Watch(ctx context.Context, db *mongo.Database) (*Stream, error) {
	cs, err := db.Watch(ctx, InsertPipeline(), options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("%w: watch %s: %v", models.ErrConnectivity, db.Name(), err)
	}
	return &Stream{cs: cs}, nil
}

func (s *Stream) Next(ctx context.Context) (cdc.Mutation, error) {
	if !s.cs.Next(ctx) {
		if err := s.cs.Err(); err != nil {
			return cdc.Mutation{}, err
		}
		if err := ctx.Err(); err != nil {
			return cdc.Mutation{}, err
		}
		return cdc.Mutation{}, io.EOF
	}

	var ev changeEvent
	if err := s.cs.Decode(&ev); err != nil {
		return cdc.Mutation{}, fmt.Errorf("%w: decode change event: %v", models.ErrMalformedRecord, err)
	}
	if ev.FullDocument == nil {
		return cdc.Mutation{}, fmt.Errorf("%w: %s event on %s without full document",
			models.ErrMalformedRecord, ev.OperationType, ev.NS.Coll)
	}
	return cdc.Mutation{Collection: ev.NS.Coll, Document: ev.FullDocument}, nil
}

func (s *Stream) Close(ctx context.Context) error {
	return s.cs.Close(ctx)
}
