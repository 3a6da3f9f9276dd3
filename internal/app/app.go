package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nsqio/go-nsq"

	"github.com/Nerdward/my-llm-twin/features/job"
	"github.com/Nerdward/my-llm-twin/features/stats"
	"github.com/Nerdward/my-llm-twin/internal/adapter/gemini"
	"github.com/Nerdward/my-llm-twin/internal/adapter/local"
	"github.com/Nerdward/my-llm-twin/internal/adapter/openai"
	"github.com/Nerdward/my-llm-twin/internal/config"
	"github.com/Nerdward/my-llm-twin/internal/middleware"
	"github.com/Nerdward/my-llm-twin/internal/pipeline"
	"github.com/Nerdward/my-llm-twin/internal/text"
	"github.com/Nerdward/my-llm-twin/internal/worker"
)

// Sink is a vector backend that can also report collection sizes.
type Sink interface {
	worker.Sink
	stats.PointCounter
}

// Options overrides collaborators, mostly for tests.
type Options struct {
	Embedder pipeline.Embedder
	Counter  text.Counter
}

type App struct {
	Handler  http.Handler
	Consumer *worker.FeatureConsumer
	Jobs     *job.Service

	cfg      *config.Config
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func New(ctx context.Context, cfg *config.Config, db *sql.DB, sink Sink, pub job.EventPublisher, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	a := &App{cfg: cfg}

	embedder := opts.Embedder
	if embedder == nil {
		e, closer, err := NewEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		embedder = e
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	counter := opts.Counter
	if counter == nil {
		c, err := NewCounter(cfg)
		if err != nil {
			return nil, err
		}
		counter = c
	}

	p, err := pipeline.New(pipeline.Factory{
		Filter:   text.NewRepoFilter(cfg.RepositoryIgnore),
		Chunker:  text.NewChunker(cfg.ChunkMaxTokens, counter),
		Embedder: embedder,
	}, cfg.EmbedPoolSize)
	if err != nil {
		return nil, fmt.Errorf("pipeline pool error: %w", err)
	}
	a.pipeline = p

	jobRepo := job.NewPostgresRepo(db)
	a.Jobs = job.NewService(jobRepo, pub, cfg.QueueTopic, slog.Default())
	a.Consumer = worker.NewFeatureConsumer(p, sink, jobRepo, cfg.MaxAttempts)

	apiMux := http.NewServeMux()
	job.NewHandler(a.Jobs).Register(apiMux)
	stats.NewHandler(jobRepo, sink).Register(apiMux)

	mux := http.NewServeMux()
	mux.Handle("/jobs/", middleware.CorrelationID(apiMux))
	mux.Handle("/stats", middleware.CorrelationID(apiMux))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	a.Handler = mux

	return a, nil
}

// NewEmbedder builds the embedding client for the configured provider. The
// returned closer may be nil.
func NewEmbedder(ctx context.Context, cfg *config.Config) (pipeline.Embedder, func() error, error) {
	switch strings.ToLower(cfg.EmbeddingProvider) {
	case config.EmbeddingProviderGemini:
		e, err := gemini.NewEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini embedder error: %w", err)
		}
		return e, e.Close, nil
	case config.EmbeddingProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("%w: OPENAI_API_KEY", config.ErrMissingRequired)
		}
		opts := []openai.EmbedderOption{
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.EmbeddingSize),
		}
		if cfg.EmbeddingBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.EmbeddingBaseURL))
		}
		return openai.NewEmbedder(cfg.OpenAIAPIKey, opts...), nil, nil
	case config.EmbeddingProviderLocal:
		e, err := local.NewEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("local embedder error: %w", err)
		}
		return e, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: EMBEDDING_PROVIDER %q", config.ErrInvalid, cfg.EmbeddingProvider)
	}
}

func NewCounter(cfg *config.Config) (text.Counter, error) {
	switch strings.ToLower(cfg.ChunkTokenizer) {
	case config.TokenizerWords:
		return text.WordCounter{}, nil
	case config.TokenizerTiktoken, "":
		c, err := text.NewTiktokenCounter()
		if err != nil {
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: CHUNK_TOKENIZER %q", config.ErrInvalid, cfg.ChunkTokenizer)
	}
}

// Run serves the HTTP API until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Consume attaches the feature consumer to the ingest topic and blocks until
// ctx is cancelled.
func (a *App) Consume(ctx context.Context) error {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = a.cfg.WorkerConcurrency
	nsqCfg.MaxAttempts = a.cfg.MaxAttempts

	consumer, err := nsq.NewConsumer(a.cfg.QueueTopic, a.cfg.QueueChannel, nsqCfg)
	if err != nil {
		return fmt.Errorf("nsq consumer error: %w", err)
	}
	consumer.SetLogger(nsqLogger{}, nsq.LogLevelWarning)
	consumer.AddConcurrentHandlers(a.Consumer, a.cfg.WorkerConcurrency)

	if err := consumer.ConnectToNSQLookupd(a.cfg.NSQLookupd); err != nil {
		return fmt.Errorf("%w: nsqlookupd: %v", ErrConsumerConnect, err)
	}
	slog.InfoContext(ctx, "feature consumer connected", "topic", a.cfg.QueueTopic, "channel", a.cfg.QueueChannel)

	<-ctx.Done()
	consumer.Stop()
	<-consumer.StopChan
	slog.Info("feature consumer stopped")
	return nil
}

// ErrConsumerConnect is returned by Consume when lookupd is unreachable.
var ErrConsumerConnect = errors.New("failed to connect consumer")

func (a *App) Close() {
	if a.pipeline != nil {
		a.pipeline.Release()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close embedder", "error", err)
		}
	}
}

// nsqLogger routes go-nsq's internal logging through slog.
type nsqLogger struct{}

func (nsqLogger) Output(calldepth int, s string) error {
	slog.Warn(s, "component", "nsq")
	return nil
}
