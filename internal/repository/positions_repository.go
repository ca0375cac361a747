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

// PositionsRepository handles data access for the positions table.
type PositionsRepository struct {
	db *pgxpool.Pool
}

// NewPositionsRepository creates a new positions repository.
func NewPositionsRepository(db *pgxpool.Pool) *PositionsRepository {
	return &PositionsRepository{db: db}
}

const positionColumns = `id, title, department, description, status,
	extracted_summary, extracted_requirements, extracted_responsibilities,
	extraction_method, extraction_status, last_extraction_date, extraction_prompt_version,
	created_at, updated_at`

func scanPosition(row pgx.Row) (*models.Position, error) {
	var p models.Position

	err := row.Scan(
		&p.ID, &p.Title, &p.Department, &p.Description, &p.Status,
		&p.ExtractedSummary, &p.ExtractedRequirements, &p.ExtractedResponsibilities,
		&p.ExtractionMethod, &p.ExtractionStatus, &p.LastExtractionDate, &p.ExtractionPromptVersion,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPositionNotFound
		}

		return nil, fmt.Errorf("scan position: %w", err)
	}

	return &p, nil
}

// GetByID returns the position with the given ID, or ErrPositionNotFound.
func (r *PositionsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE id = $1`, id)

	return scanPosition(row)
}

// PositionExtractionUpdate carries the extraction fields persisted after a
// successful job-description pipeline run.
type PositionExtractionUpdate struct {
	Summary          string
	Requirements     string
	Responsibilities string
	Method           string
	PromptVersion    string
}

// UpdateExtraction persists extraction output for a position. As with
// candidates, extraction_method and extraction_status=success move together.
func (r *PositionsRepository) UpdateExtraction(
	ctx context.Context, id uuid.UUID, update PositionExtractionUpdate,
) error {
	now := time.Now()

	tag, err := r.db.Exec(ctx, `
		UPDATE positions SET
			extracted_summary = NULLIF($2, ''),
			extracted_requirements = NULLIF($3, ''),
			extracted_responsibilities = NULLIF($4, ''),
			extraction_method = $5,
			extraction_status = 'success',
			last_extraction_date = $6,
			extraction_prompt_version = $7,
			updated_at = $6
		WHERE id = $1`,
		id, update.Summary, update.Requirements, update.Responsibilities,
		update.Method, now, update.PromptVersion,
	)
	if err != nil {
		return fmt.Errorf("update position extraction: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrPositionNotFound
	}

	return nil
}

// MarkExtractionFailed records a failed extraction without touching the
// previously extracted fields.
func (r *PositionsRepository) MarkExtractionFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE positions SET extraction_status = 'failed', updated_at = $2
		WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("mark position extraction failed: %w", err)
	}

	return nil
}

// ListIDs returns all position IDs, used by the embedding backfill job.
func (r *PositionsRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM positions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list position ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// LinkedPositionIDs returns the position IDs the candidate is already linked
// to. Suggestions must exclude these.
func (r *PositionsRepository) LinkedPositionIDs(ctx context.Context, candidateID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT position_id FROM position_candidates WHERE candidate_id = $1`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list linked position ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// StatusByIDs returns a map of position ID to status for the given IDs.
func (r *PositionsRepository) StatusByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, status FROM positions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("position statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[uuid.UUID]string, len(ids))

	for rows.Next() {
		var (
			id     uuid.UUID
			status string
		)

		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan position status: %w", err)
		}

		statuses[id] = status
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating position statuses: %w", err)
	}

	return statuses, nil
}
