package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helliohr/recruit/internal/models"
)

// ErrExplanationNotFound is returned on a cache miss.
var ErrExplanationNotFound = errors.New("match explanation not found")

// ExplanationsRepository handles data access for the match_explanations cache
// table. Entries are write-once per composite key: a changed embedding hash or
// prompt version produces a new key and the old entry is simply orphaned.
type ExplanationsRepository struct {
	db *pgxpool.Pool
}

// NewExplanationsRepository creates a new explanations repository.
func NewExplanationsRepository(db *pgxpool.Pool) *ExplanationsRepository {
	return &ExplanationsRepository{db: db}
}

// Insert stores an explanation under its composite key. On conflict the
// existing entry wins (first writer wins, never overwritten).
func (r *ExplanationsRepository) Insert(ctx context.Context, entry *models.MatchExplanation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO match_explanations (
			candidate_id, position_id, candidate_embedding_hash, position_embedding_hash,
			prompt_version, explanation, similarity_score, model_name, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (candidate_id, position_id, candidate_embedding_hash, position_embedding_hash, prompt_version)
		DO NOTHING`,
		entry.CandidateID, entry.PositionID, entry.CandidateEmbeddingHash, entry.PositionEmbeddingHash,
		entry.PromptVersion, entry.Explanation, entry.SimilarityScore, entry.ModelName, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert match explanation: %w", err)
	}

	return nil
}

// Get returns the cached explanation for the exact composite key, or
// ErrExplanationNotFound on a miss.
func (r *ExplanationsRepository) Get(
	ctx context.Context,
	candidateID, positionID uuid.UUID,
	candidateHash, positionHash, promptVersion string,
) (*models.MatchExplanation, error) {
	var entry models.MatchExplanation

	err := r.db.QueryRow(ctx, `
		SELECT id, candidate_id, position_id, candidate_embedding_hash, position_embedding_hash,
			prompt_version, explanation, similarity_score, model_name, created_at
		FROM match_explanations
		WHERE candidate_id = $1 AND position_id = $2
			AND candidate_embedding_hash = $3 AND position_embedding_hash = $4
			AND prompt_version = $5`,
		candidateID, positionID, candidateHash, positionHash, promptVersion,
	).Scan(
		&entry.ID, &entry.CandidateID, &entry.PositionID, &entry.CandidateEmbeddingHash,
		&entry.PositionEmbeddingHash, &entry.PromptVersion, &entry.Explanation,
		&entry.SimilarityScore, &entry.ModelName, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExplanationNotFound
		}

		return nil, fmt.Errorf("get match explanation: %w", err)
	}

	return &entry, nil
}
