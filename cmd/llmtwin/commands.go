package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/Nerdward/my-llm-twin/features/job"
	"github.com/Nerdward/my-llm-twin/internal/app"
	"github.com/Nerdward/my-llm-twin/internal/config"
	"github.com/Nerdward/my-llm-twin/internal/logger"
)

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadFile(cmd.String("env"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.New(os.Stdout, cfg.LogLevel)
	return cfg, nil
}

func cdcAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	producer, err := app.NewProducer(cfg)
	if err != nil {
		return err
	}
	defer producer.Stop()

	return app.RunCDC(ctx, cfg, producer)
}

func featureAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	a, err := app.New(ctx, cfg, deps.DB, deps.Sink, deps.NSQProducer, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Consume(gctx) })
	if !cmd.Bool("no-http") {
		g.Go(func() error { return a.Run(gctx) })
	}
	return g.Wait()
}

func bootstrapAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	deps.Close()

	slog.InfoContext(ctx, "bootstrap complete", "vector_backend", cfg.VectorBackend, "dimension", cfg.EmbeddingSize)
	return nil
}

func jobService(ctx context.Context, cmd *cli.Command) (*job.Service, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	producer, err := app.NewProducer(cfg)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	cleanup := func() {
		producer.Stop()
		db.Close()
	}
	return job.NewService(job.NewPostgresRepo(db), producer, cfg.QueueTopic, slog.Default()), cleanup, nil
}

func failedListAction(ctx context.Context, cmd *cli.Command) error {
	svc, cleanup, err := jobService(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	jobs, err := svc.List(ctx, job.Filter{EntryID: cmd.String("entry-id"), Limit: int(cmd.Int("limit"))})
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("no failed messages")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Entry ID", "Handler", "Retries", "Error", "Created At")
	for _, j := range jobs {
		table.Append(
			j.ID,
			j.EntryID,
			j.Handler,
			strconv.Itoa(j.Retries),
			truncate(j.Error, 60),
			j.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return table.Render()
}

func failedRetryAction(ctx context.Context, cmd *cli.Command) error {
	svc, cleanup, err := jobService(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	id := cmd.String("id")
	if err := svc.Retry(ctx, id); err != nil {
		return fmt.Errorf("failed to retry job %s: %w", id, err)
	}
	fmt.Printf("job %s republished\n", id)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
