package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helliohr/recruit/internal/models"
)

// RetrievalLogsRepository handles the append-only retrieval_logs table.
type RetrievalLogsRepository struct {
	db *pgxpool.Pool
}

// NewRetrievalLogsRepository creates a new retrieval logs repository.
func NewRetrievalLogsRepository(db *pgxpool.Pool) *RetrievalLogsRepository {
	return &RetrievalLogsRepository{db: db}
}

// Insert appends one retrieval diagnostic record. The top-K hits are stored as
// JSONB since they are read only for diagnostics, never queried relationally.
func (r *RetrievalLogsRepository) Insert(ctx context.Context, log *models.RetrievalLog) error {
	topK, err := json.Marshal(log.TopK)
	if err != nil {
		return fmt.Errorf("marshal retrieval top-k: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO retrieval_logs (
			query_type, query_entity_id, top_k, filters_applied, final_count, elapsed_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.QueryType, log.QueryEntityID, topK, log.FiltersApplied, log.FinalCount,
		log.ElapsedMs, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert retrieval log: %w", err)
	}

	return nil
}
