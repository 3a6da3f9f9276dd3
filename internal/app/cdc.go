package app

import (
	"context"
	"log/slog"

	mongoadapter "github.com/Nerdward/my-llm-twin/internal/adapter/mongo"
	"github.com/Nerdward/my-llm-twin/internal/cdc"
	"github.com/Nerdward/my-llm-twin/internal/config"
)

// RunCDC streams inserts from the source database to the ingest topic until
// ctx is cancelled or the stream fails.
func RunCDC(ctx context.Context, cfg *config.Config, pub cdc.Publisher) error {
	client, err := mongoadapter.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Warn("failed to disconnect mongo", "error", err)
		}
	}()
	slog.InfoContext(ctx, "connected to source store", "database", cfg.MongoDatabase)

	stream, err := mongoadapter.Watch(ctx, client.Database(cfg.MongoDatabase))
	if err != nil {
		return err
	}

	src := cdc.NewSource(stream, pub, cfg.QueueTopic, cfg.WatchedCollections)
	defer func() {
		if err := src.Close(context.Background()); err != nil {
			slog.Warn("failed to close change stream", "error", err)
		}
	}()
	return src.Run(ctx)
}
