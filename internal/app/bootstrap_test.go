package app

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nerdward/my-llm-twin/internal/adapter/pgvector"
	wstore "github.com/Nerdward/my-llm-twin/internal/adapter/weaviate"
	"github.com/Nerdward/my-llm-twin/internal/config"
	"github.com/Nerdward/my-llm-twin/internal/vector"
)

func TestOpenDB_Unreachable(t *testing.T) {
	cfg := &config.Config{
		DBHost:                     "localhost",
		DBPort:                     54322,
		DBUser:                     "test",
		DBPass:                     "test",
		DBName:                     "test",
		BootstrapRetryAttempts:     1,
		BootstrapRetryDelaySeconds: 0,
	}

	start := time.Now()
	db, err := OpenDB(context.Background(), cfg)

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to ping db")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBootstrap_ConfigurationError(t *testing.T) {
	cfg := &config.Config{DBHost: "localhost", DBPort: 54322, BootstrapRetryAttempts: 1}
	deps, err := Bootstrap(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, deps)
}

func TestNewSink(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink, schema, err := NewSink(&config.Config{VectorBackend: "pgvector", EmbeddingSize: 768}, db)
	require.NoError(t, err)
	assert.IsType(t, &pgvector.Store{}, sink)
	assert.IsType(t, &pgvector.Schema{}, schema)

	sink, schema, err = NewSink(&config.Config{VectorBackend: "weaviate", WeaviateHost: "localhost:8080", WeaviateScheme: "http", EmbeddingSize: 768}, db)
	require.NoError(t, err)
	assert.IsType(t, &wstore.Store{}, sink)
	assert.IsType(t, &vector.WeaviateSchema{}, schema)

	_, _, err = NewSink(&config.Config{VectorBackend: "qdrant"}, db)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
