package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

const (
	EmbeddingProviderGemini = "gemini"
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderLocal  = "local"

	VectorBackendWeaviate = "weaviate"
	VectorBackendPGVector = "pgvector"

	TokenizerTiktoken = "tiktoken"
	TokenizerWords    = "words"
)

type Config struct {
	// Source of record
	MongoURI           string   `envconfig:"MONGO_URI" default:"mongodb://mongo1:30001,mongo2:30002,mongo3:30003/?replicaSet=my-replica-set"`
	MongoDatabase      string   `envconfig:"MONGO_DATABASE" default:"twin"`
	WatchedCollections []string `envconfig:"WATCHED_COLLECTIONS" default:"posts,articles,repositories"`

	// Queue
	NSQLookupd        string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost          string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP          string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	QueueTopic        string `envconfig:"QUEUE_TOPIC" default:"ingest.raw"`
	QueueChannel      string `envconfig:"QUEUE_CHANNEL" default:"feature"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"8"`
	MaxAttempts       uint16 `envconfig:"MAX_ATTEMPTS" default:"5"`

	// Sink
	VectorBackend  string `envconfig:"VECTOR_BACKEND" default:"weaviate"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateAPIKey string `envconfig:"WEAVIATE_API_KEY"`

	// Failed-message store, also the pgvector sink when selected
	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"twin"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"twin"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Embedding
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"models/text-embedding-004"`
	EmbeddingSize     int    `envconfig:"EMBEDDING_SIZE" default:"768"`
	EmbeddingBaseURL  string `envconfig:"EMBEDDING_BASE_URL"`
	EmbedPoolSize     int    `envconfig:"EMBED_POOL_SIZE" default:"4"`
	GeminiAPIKey      string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`

	// Chunking
	ChunkMaxTokens   int      `envconfig:"CHUNK_MAX_TOKENS" default:"256"`
	ChunkTokenizer   string   `envconfig:"CHUNK_TOKENIZER" default:"tiktoken"`
	RepositoryIgnore []string `envconfig:"REPOSITORY_IGNORE" default:".git,*.toml,*.lock,*.png"`

	// Server
	ServerPort int    `envconfig:"SERVER_PORT" default:"8081"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile reads envFile, if present, before processing the environment.
// Variables already set in the shell win.
func LoadFile(envFile string) (*Config, error) {
	_ = godotenv.Load(envFile)

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("%w: MONGO_URI", ErrMissingRequired)
	}
	if c.MongoDatabase == "" {
		return fmt.Errorf("%w: MONGO_DATABASE", ErrMissingRequired)
	}
	if c.QueueTopic == "" {
		return fmt.Errorf("%w: QUEUE_TOPIC", ErrMissingRequired)
	}
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}

	switch strings.ToLower(c.EmbeddingProvider) {
	case EmbeddingProviderGemini, EmbeddingProviderOpenAI, EmbeddingProviderLocal:
	default:
		return fmt.Errorf("%w: EMBEDDING_PROVIDER %q", ErrInvalid, c.EmbeddingProvider)
	}

	switch strings.ToLower(c.VectorBackend) {
	case VectorBackendWeaviate, VectorBackendPGVector:
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND %q", ErrInvalid, c.VectorBackend)
	}

	switch strings.ToLower(c.ChunkTokenizer) {
	case TokenizerTiktoken, TokenizerWords:
	default:
		return fmt.Errorf("%w: CHUNK_TOKENIZER %q", ErrInvalid, c.ChunkTokenizer)
	}

	if c.EmbeddingSize <= 0 {
		return fmt.Errorf("%w: EMBEDDING_SIZE must be positive", ErrInvalid)
	}
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("%w: CHUNK_MAX_TOKENS must be positive", ErrInvalid)
	}
	return nil
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
