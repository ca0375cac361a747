// Command api runs the recruiting API server: document extraction, embedding
// jobs, match suggestions and explanations, and the natural-language query
// endpoint, backed by PostgreSQL with pgvector.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/helliohr/recruit/internal/config"
	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/pkg/database"
)

const shutdownTimeout = 30 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithMaxConns(cfg.DatabaseMaxConns),
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

	app, err := NewApp(ctx, cfg, db, logger)
	if err != nil {
		logger.Error("Failed to build application", "error", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := app.Run(runCtx)
	if runErr != nil {
		logger.Error("Component failed", "error", runErr)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown incomplete", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}
