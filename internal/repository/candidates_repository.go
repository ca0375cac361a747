// Package repository provides pgx-based data access for the recruiting schema.
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

// Sentinel errors shared by the entity repositories.
var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrDocumentNotFound  = errors.New("document not found")
)

// CandidatesRepository handles data access for the candidates table.
type CandidatesRepository struct {
	db *pgxpool.Pool
}

// NewCandidatesRepository creates a new candidates repository.
func NewCandidatesRepository(db *pgxpool.Pool) *CandidatesRepository {
	return &CandidatesRepository{db: db}
}

const candidateColumns = `id, name, email, phone, skills, status,
	extracted_summary, extracted_experience, extracted_education,
	extraction_method, extraction_status, last_extraction_date, extraction_prompt_version,
	created_at, updated_at`

func scanCandidate(row pgx.Row) (*models.Candidate, error) {
	var c models.Candidate

	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Skills, &c.Status,
		&c.ExtractedSummary, &c.ExtractedExperience, &c.ExtractedEducation,
		&c.ExtractionMethod, &c.ExtractionStatus, &c.LastExtractionDate, &c.ExtractionPromptVersion,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}

		return nil, fmt.Errorf("scan candidate: %w", err)
	}

	return &c, nil
}

// GetByID returns the candidate with the given ID, or ErrCandidateNotFound.
func (r *CandidatesRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)

	return scanCandidate(row)
}

// CandidateExtractionUpdate carries the extraction fields persisted after a
// successful pipeline run. Contact fields are only written when non-empty so
// an LLM-only run never blanks a heuristic-sourced email.
type CandidateExtractionUpdate struct {
	Name          string
	Email         string
	Phone         string
	Skills        []string
	Summary       string
	Experience    string
	Education     string
	Method        string
	PromptVersion string
}

// UpdateExtraction persists extraction output. extraction_status is always set
// to success together with extraction_method, keeping the two in lockstep.
func (r *CandidatesRepository) UpdateExtraction(
	ctx context.Context, id uuid.UUID, update CandidateExtractionUpdate,
) error {
	now := time.Now()

	tag, err := r.db.Exec(ctx, `
		UPDATE candidates SET
			name = COALESCE(NULLIF($2, ''), name),
			email = COALESCE(NULLIF($3, ''), email),
			phone = COALESCE(NULLIF($4, ''), phone),
			skills = CASE WHEN cardinality($5::text[]) > 0 THEN $5 ELSE skills END,
			extracted_summary = NULLIF($6, ''),
			extracted_experience = NULLIF($7, ''),
			extracted_education = NULLIF($8, ''),
			extraction_method = $9,
			extraction_status = 'success',
			last_extraction_date = $10,
			extraction_prompt_version = $11,
			updated_at = $10
		WHERE id = $1`,
		id, update.Name, update.Email, update.Phone, update.Skills,
		update.Summary, update.Experience, update.Education,
		update.Method, now, update.PromptVersion,
	)
	if err != nil {
		return fmt.Errorf("update candidate extraction: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrCandidateNotFound
	}

	return nil
}

// MarkExtractionFailed records a failed extraction without touching the
// previously extracted fields or extraction_method.
func (r *CandidatesRepository) MarkExtractionFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE candidates SET extraction_status = 'failed', updated_at = $2
		WHERE id = $1`, id, time.Now())
	if err != nil {
		return fmt.Errorf("mark candidate extraction failed: %w", err)
	}

	return nil
}

// ListIDs returns all candidate IDs, used by the embedding backfill job.
func (r *CandidatesRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM candidates ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list candidate ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// LinkedCandidateIDs returns the candidate IDs already linked to the position
// (applications, shortlists). Suggestions must exclude these.
func (r *CandidatesRepository) LinkedCandidateIDs(ctx context.Context, positionID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT candidate_id FROM position_candidates WHERE position_id = $1`, positionID)
	if err != nil {
		return nil, fmt.Errorf("list linked candidate ids: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// StatusByIDs returns a map of candidate ID to status for the given IDs.
func (r *CandidatesRepository) StatusByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, status FROM candidates WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("candidate statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[uuid.UUID]string, len(ids))

	for rows.Next() {
		var (
			id     uuid.UUID
			status string
		)

		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan candidate status: %w", err)
		}

		statuses[id] = status
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidate statuses: %w", err)
	}

	return statuses, nil
}

func scanIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ids: %w", err)
	}

	return ids, nil
}
