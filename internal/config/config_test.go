package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nerdward/my-llm-twin/internal/config"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGO_DATABASE", "twin-test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "twin-test", cfg.MongoDatabase)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "twin", cfg.MongoDatabase)
	assert.Equal(t, []string{"posts", "articles", "repositories"}, cfg.WatchedCollections)
	assert.Equal(t, config.TopicIngestRaw, cfg.QueueTopic)
	assert.Equal(t, config.ChannelFeature, cfg.QueueChannel)
	assert.Equal(t, 256, cfg.ChunkMaxTokens)
	assert.Equal(t, []string{".git", "*.toml", "*.lock", "*.png"}, cfg.RepositoryIgnore)
	assert.Equal(t, config.VectorBackendWeaviate, cfg.VectorBackend)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("QUEUE_TOPIC=from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "from-file", cfg.QueueTopic)
	os.Unsetenv("QUEUE_TOPIC")
}

func TestLoadConfig_Embedding(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_SIZE", "384")
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.EmbeddingProviderOpenAI, cfg.EmbeddingProvider)
	assert.Equal(t, 384, cfg.EmbeddingSize)
	assert.Equal(t, "test-key", cfg.OpenAIAPIKey)
}

func TestLoadConfig_InvalidBackend(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "qdrant")

	_, err := config.Load()
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestConfig_DSN(t *testing.T) {
	cfg := config.Config{DBHost: "db", DBPort: 5432, DBUser: "u", DBPass: "p", DBName: "twin"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=twin sslmode=disable", cfg.DSN())
}
