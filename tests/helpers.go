// Package tests holds integration tests that run the repositories against a
// real PostgreSQL instance with pgvector, started via testcontainers.
package tests

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/helliohr/recruit/pkg/database"
)

// embeddingDims must match the vector column width in the schema.
const embeddingDims = 1024

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "pgvector/pgvector:pg16",
		tcpostgres.WithInitScripts(filepath.Join("..", "migrations", "001_initial_schema.sql")),
		tcpostgres.WithDatabase("recruit_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		// Tests skip individually when the pool is nil (e.g. no Docker on CI host).
		slog.Error("failed to start postgres container", "error", err)
		os.Exit(m.Run())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		testPool, err = database.NewPostgresPool(ctx, connStr,
			database.WithAfterConnect(func(ctx context.Context, conn *pgx.Conn) error {
				return pgxvector.RegisterTypes(ctx, conn)
			}),
		)
	}

	if err != nil {
		slog.Error("failed to connect to test database", "error", err)
	}

	code := m.Run()

	if testPool != nil {
		testPool.Close()
	}

	if err := container.Terminate(ctx); err != nil {
		slog.Error("failed to terminate postgres container", "error", err)
	}

	os.Exit(code)
}

// requireDB returns the shared pool, skipping the test when no database is
// available, and truncates all tables so tests start clean.
func requireDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testPool == nil {
		t.Skip("test database unavailable")
	}

	ctx := context.Background()
	_, err := testPool.Exec(ctx, `
		TRUNCATE candidates, positions, position_candidates, documents,
			entity_embeddings, match_explanations, retrieval_logs, llm_metrics
		CASCADE`)
	require.NoError(t, err)

	return testPool
}

// testVector builds a unit-ish embedding whose first two components carry the
// signal; cosine ordering between such vectors is predictable.
func testVector(a, b float32) []float32 {
	v := make([]float32, embeddingDims)
	v[0] = a
	v[1] = b

	return v
}

func insertCandidate(t *testing.T, db *pgxpool.Pool, name, status string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(), `
		INSERT INTO candidates (id, name, status) VALUES ($1, $2, $3)`,
		id, name, status)
	require.NoError(t, err)

	return id
}

func insertPosition(t *testing.T, db *pgxpool.Pool, title, status string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(), `
		INSERT INTO positions (id, title, status) VALUES ($1, $2, $3)`,
		id, title, status)
	require.NoError(t, err)

	return id
}

func insertDocument(t *testing.T, db *pgxpool.Pool, docType string, candidateID, positionID *uuid.UUID) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(context.Background(), `
		INSERT INTO documents (id, type, file_name, file_path, candidate_id, position_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, docType, fmt.Sprintf("%s.pdf", id), fmt.Sprintf("uploads/%s.pdf", id),
		candidateID, positionID)
	require.NoError(t, err)

	return id
}

func linkCandidate(t *testing.T, db *pgxpool.Pool, positionID, candidateID uuid.UUID) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO position_candidates (position_id, candidate_id) VALUES ($1, $2)`,
		positionID, candidateID)
	require.NoError(t, err)
}

// sourceTime returns a stable timestamp truncated to milliseconds so
// round-trips through timestamptz compare cleanly.
func sourceTime() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
