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

// DocumentsRepository handles data access for the documents table.
type DocumentsRepository struct {
	db *pgxpool.Pool
}

// NewDocumentsRepository creates a new documents repository.
func NewDocumentsRepository(db *pgxpool.Pool) *DocumentsRepository {
	return &DocumentsRepository{db: db}
}

const documentColumns = `id, type, file_name, file_path, raw_text,
	processing_status, candidate_id, position_id, processed_at, created_at, updated_at`

// GetByID returns the document with the given ID, or ErrDocumentNotFound.
func (r *DocumentsRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var d models.Document

	err := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id,
	).Scan(
		&d.ID, &d.Type, &d.FileName, &d.FilePath, &d.RawText,
		&d.ProcessingStatus, &d.CandidateID, &d.PositionID, &d.ProcessedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}

		return nil, fmt.Errorf("get document: %w", err)
	}

	return &d, nil
}

// SetRawText caches the parsed text on the document and advances the
// processing status to extracted, so re-processing skips re-parsing.
func (r *DocumentsRepository) SetRawText(ctx context.Context, id uuid.UUID, rawText string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE documents SET raw_text = $2, processing_status = 'extracted', updated_at = $3
		WHERE id = $1`, id, rawText, time.Now())
	if err != nil {
		return fmt.Errorf("set document raw text: %w", err)
	}

	return nil
}

// MarkEnriched advances the processing status to enriched and stamps processed_at.
func (r *DocumentsRepository) MarkEnriched(ctx context.Context, id uuid.UUID) error {
	now := time.Now()

	_, err := r.db.Exec(ctx, `
		UPDATE documents SET processing_status = 'enriched', processed_at = $2, updated_at = $2
		WHERE id = $1`, id, now)
	if err != nil {
		return fmt.Errorf("mark document enriched: %w", err)
	}

	return nil
}
