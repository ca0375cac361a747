package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/helliohr/recruit/internal/models"
)

// ErrEmbeddingNotFound is returned when no embedding row exists for the entity
// ("entity not embedded yet"), which callers must distinguish from zero matches.
var ErrEmbeddingNotFound = errors.New("embedding not found for entity")

// EmbeddingsRepository handles data access for the entity_embeddings table.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// Upsert inserts or updates the embedding for (entity_id, entity_type). One row
// per entity; on conflict every generation field is replaced, so the stored
// record always reflects the latest generation.
func (r *EmbeddingsRepository) Upsert(ctx context.Context, record *models.EmbeddingRecord) error {
	vec := pgvector.NewVector(record.Embedding)
	now := time.Now()

	_, err := r.db.Exec(ctx, `
		INSERT INTO entity_embeddings (
			entity_id, entity_type, embedding, embedding_text, embedding_text_hash,
			embedding_version, model_name, source_updated_at, tokens_estimate,
			generation_latency_ms, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (entity_id, entity_type)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			embedding_text = EXCLUDED.embedding_text,
			embedding_text_hash = EXCLUDED.embedding_text_hash,
			embedding_version = EXCLUDED.embedding_version,
			model_name = EXCLUDED.model_name,
			source_updated_at = EXCLUDED.source_updated_at,
			tokens_estimate = EXCLUDED.tokens_estimate,
			generation_latency_ms = EXCLUDED.generation_latency_ms,
			updated_at = $11`,
		record.EntityID, record.EntityType, vec, record.EmbeddingText, record.EmbeddingTextHash,
		record.EmbeddingVersion, record.ModelName, record.SourceUpdatedAt, record.TokensEstimate,
		record.GenerationLatencyMs, now,
	)
	if err != nil {
		return fmt.Errorf("embeddings upsert: %w", err)
	}

	return nil
}

// GetByEntity returns the stored embedding record for the given entity, or
// ErrEmbeddingNotFound when the entity has not been embedded yet.
func (r *EmbeddingsRepository) GetByEntity(
	ctx context.Context, entityID uuid.UUID, entityType string,
) (*models.EmbeddingRecord, error) {
	var (
		record models.EmbeddingRecord
		vec    pgvector.Vector
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, entity_id, entity_type, embedding, embedding_text, embedding_text_hash,
			embedding_version, model_name, source_updated_at, tokens_estimate,
			generation_latency_ms, created_at, updated_at
		FROM entity_embeddings WHERE entity_id = $1 AND entity_type = $2`,
		entityID, entityType,
	).Scan(
		&record.ID, &record.EntityID, &record.EntityType, &vec, &record.EmbeddingText,
		&record.EmbeddingTextHash, &record.EmbeddingVersion, &record.ModelName,
		&record.SourceUpdatedAt, &record.TokensEstimate, &record.GenerationLatencyMs,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmbeddingNotFound
		}

		return nil, fmt.Errorf("get embedding: %w", err)
	}

	record.Embedding = vec.Slice()

	return &record, nil
}

// NearestEntities returns entity IDs with similarity (1 - cosine distance) and
// raw distance for the nearest neighbors to queryVector among embeddings of
// entityType, ordered by ascending distance. excludeEntityID optionally
// removes the query entity itself from the results.
func (r *EmbeddingsRepository) NearestEntities(
	ctx context.Context, entityType string, queryVector []float32, limit int, excludeEntityID *uuid.UUID,
) ([]models.EntityWithScore, error) {
	queryVec := pgvector.NewVector(queryVector)

	var (
		rows pgx.Rows
		err  error
	)

	if excludeEntityID == nil {
		rows, err = r.db.Query(ctx, `
			SELECT entity_id, (1 - (embedding <=> $1)) AS similarity, (embedding <=> $1) AS distance
			FROM entity_embeddings
			WHERE entity_type = $2
			ORDER BY embedding <=> $1
			LIMIT $3`, queryVec, entityType, limit)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT entity_id, (1 - (embedding <=> $1)) AS similarity, (embedding <=> $1) AS distance
			FROM entity_embeddings
			WHERE entity_type = $2 AND entity_id != $3
			ORDER BY embedding <=> $1
			LIMIT $4`, queryVec, entityType, *excludeEntityID, limit)
	}

	if err != nil {
		return nil, fmt.Errorf("nearest entities: %w", err)
	}

	defer rows.Close()

	var results []models.EntityWithScore

	for rows.Next() {
		var row models.EntityWithScore

		if err := rows.Scan(&row.EntityID, &row.Similarity, &row.Distance); err != nil {
			return nil, fmt.Errorf("scan entity with score: %w", err)
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest: %w", err)
	}

	return results, nil
}

// ListEntityIDsForBackfill returns IDs of entities of entityType that have no
// embedding row yet. Staleness of existing rows is checked by the pipeline's
// drift detection, not here.
func (r *EmbeddingsRepository) ListEntityIDsForBackfill(ctx context.Context, entityType string) ([]uuid.UUID, error) {
	table := "candidates"
	if entityType == models.EntityTypePosition {
		table = "positions"
	}

	rows, err := r.db.Query(ctx, `
		SELECT t.id FROM `+table+` t
		WHERE NOT EXISTS (
			SELECT 1 FROM entity_embeddings e
			WHERE e.entity_id = t.id AND e.entity_type = $1
		)`, entityType)
	if err != nil {
		return nil, fmt.Errorf("list entity ids for backfill: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}
