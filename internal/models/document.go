package models

import (
	"time"

	"github.com/google/uuid"
)

// Document types.
const (
	DocumentTypeCV             = "CV"
	DocumentTypeJobDescription = "JOB_DESCRIPTION"
)

// Document processing statuses, advanced strictly forward by the pipeline:
// pending -> extracted (raw text parsed) -> enriched (extraction persisted).
const (
	ProcessingStatusPending   = "pending"
	ProcessingStatusExtracted = "extracted"
	ProcessingStatusEnriched  = "enriched"
)

// Document is one uploaded file, owned by exactly one candidate or position.
// RawText is populated on first parse so re-processing skips re-parsing.
type Document struct {
	ID               uuid.UUID  `json:"id"`
	Type             string     `json:"type"`
	FileName         string     `json:"file_name"`
	FilePath         string     `json:"file_path"`
	RawText          *string    `json:"raw_text"`
	ProcessingStatus string     `json:"processing_status"`
	CandidateID      *uuid.UUID `json:"candidate_id"`
	PositionID       *uuid.UUID `json:"position_id"`
	ProcessedAt      *time.Time `json:"processed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
