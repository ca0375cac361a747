// Command backfill-embeddings enqueues embedding jobs for every candidate and
// position that has no embedding row yet. The API server's worker pool picks
// the jobs up; job uniqueness makes re-running the command safe.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/helliohr/recruit/internal/config"
	"github.com/helliohr/recruit/internal/jobs"
	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/internal/repository"
	"github.com/helliohr/recruit/pkg/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithAfterConnect(func(ctx context.Context, conn *pgx.Conn) error {
			//nolint:wrapcheck // pool surfaces this with connection context
			return pgxvector.RegisterTypes(ctx, conn)
		}),
	)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Insert-only client: no workers registered, the API server processes jobs.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		logger.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	stats, err := jobs.Backfill(ctx,
		repository.NewEmbeddingsRepository(db),
		jobs.NewRiverJobInserter(riverClient),
		jobs.BackfillOptions{
			BatchSize:  cfg.BackfillBatchSize,
			BatchDelay: cfg.BackfillBatchDelay,
		},
		logger,
	)
	if err != nil {
		logger.Error("Backfill aborted",
			"error", err,
			"candidatesEnqueued", stats.CandidatesEnqueued,
			"positionsEnqueued", stats.PositionsEnqueued,
			"errors", stats.Errors,
		)
		os.Exit(1)
	}

	logger.Info("Backfill complete",
		"candidatesEnqueued", stats.CandidatesEnqueued,
		"positionsEnqueued", stats.PositionsEnqueued,
		"errors", stats.Errors,
	)
}
