package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "environment file path",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "llmtwin",
		Usage: "feature pipeline of the LLM twin: change capture, cleaning, chunking, embedding",
		Flags: []cli.Flag{envFlag},
		Commands: []*cli.Command{
			{
				Name:   "cdc",
				Usage:  "stream inserts from the source database to the ingest topic",
				Action: cdcAction,
			},
			{
				Name:  "feature",
				Usage: "consume the ingest topic and load cleaned documents and embedded chunks",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-http",
						Usage: "do not serve the failed job API",
					},
				},
				Action: featureAction,
			},
			{
				Name:   "bootstrap",
				Usage:  "run migrations and create the sink collections",
				Action: bootstrapAction,
			},
			{
				Name:  "failed",
				Usage: "inspect messages the feature worker gave up on",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list failed messages, newest first",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "entry-id",
								Usage: "only jobs for this source document",
							},
							&cli.IntFlag{
								Name:  "limit",
								Usage: "maximum number of jobs to show (0 for all)",
								Value: 50,
							},
						},
						Action: failedListAction,
					},
					{
						Name:  "retry",
						Usage: "publish a failed message again",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "id",
								Usage:    "failed job id",
								Required: true,
							},
						},
						Action: failedRetryAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
