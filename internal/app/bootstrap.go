package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"

	"github.com/Nerdward/my-llm-twin/internal/adapter/pgvector"
	wstore "github.com/Nerdward/my-llm-twin/internal/adapter/weaviate"
	"github.com/Nerdward/my-llm-twin/internal/config"
	"github.com/Nerdward/my-llm-twin/internal/vector"
)

type Dependencies struct {
	DB          *sql.DB
	Sink        Sink
	Schema      vector.Schema
	NSQProducer *nsq.Producer
}

// Bootstrap connects every backend the feature worker needs and makes sure
// the failed job table and the six sink collections exist.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second

	db, err := OpenDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, cfg.MigrationPath); err != nil {
		db.Close()
		return nil, err
	}

	sink, schema, err := NewSink(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := vector.EnsureCollectionsWithRetry(ctx, schema, cfg.EmbeddingSize, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		db.Close()
		return nil, fmt.Errorf("collection bootstrap error: %w", err)
	}

	producer, err := NewProducer(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	createTopics(cfg.NSQDHTTP, cfg.QueueTopic)

	return &Dependencies{
		DB:          db,
		Sink:        sink,
		Schema:      schema,
		NSQProducer: producer,
	}, nil
}

func (d *Dependencies) Close() {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
}

// OpenDB opens Postgres and pings it until it answers or the retry budget runs out.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		slog.WarnContext(ctx, "failed to ping db, retrying...", "attempt", i+1, "error", err)
		if i < cfg.BootstrapRetryAttempts-1 {
			time.Sleep(retryDelay)
		}
	}
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return db, nil
}

func Migrate(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	return nil
}

// NewSink selects the vector backend. pgvector shares the failed job database.
func NewSink(cfg *config.Config, db *sql.DB) (Sink, vector.Schema, error) {
	switch strings.ToLower(cfg.VectorBackend) {
	case config.VectorBackendPGVector:
		return pgvector.NewStore(db, cfg.EmbeddingSize), pgvector.NewSchema(db), nil
	case config.VectorBackendWeaviate, "":
		client, err := NewWeaviateClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		schema := vector.NewWeaviateSchema(vector.NewWeaviateClientAdapter(client))
		return wstore.NewStore(client, cfg.EmbeddingSize), schema, nil
	default:
		return nil, nil, fmt.Errorf("%w: VECTOR_BACKEND %q", config.ErrInvalid, cfg.VectorBackend)
	}
}

func NewWeaviateClient(cfg *config.Config) (*weaviate.Client, error) {
	wCfg := weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
	if cfg.WeaviateAPIKey != "" {
		wCfg.AuthConfig = auth.ApiKey{Value: cfg.WeaviateAPIKey}
	}
	client, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	return client, nil
}

func NewProducer(cfg *config.Config) (*nsq.Producer, error) {
	producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}
	return producer, nil
}

// createTopics asks nsqd to create topics up front so lookupd consumers do
// not start against a missing topic.
func createTopics(nsqdHTTP string, topics ...string) {
	create := func(topic string) {
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", topic, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}

	go func() {
		time.Sleep(2 * time.Second)
		for _, t := range topics {
			create(t)
		}
	}()
}
