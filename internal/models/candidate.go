// Package models defines the core domain types shared across repositories and services.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Candidate status values.
const (
	CandidateStatusActive   = "ACTIVE"
	CandidateStatusInactive = "INACTIVE"
	CandidateStatusHired    = "HIRED"
)

// Extraction methods. Hybrid means both heuristic and LLM fields contributed.
const (
	ExtractionMethodHeuristic = "heuristic"
	ExtractionMethodLLM       = "llm"
	ExtractionMethodHybrid    = "hybrid"
)

// Extraction statuses.
const (
	ExtractionStatusPending = "pending"
	ExtractionStatusSuccess = "success"
	ExtractionStatusPartial = "partial"
	ExtractionStatusFailed  = "failed"
)

// Candidate is an applicant record. Extraction fields are written only by the
// extraction pipeline; the row itself is created by the intake layer.
type Candidate struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  *string   `json:"email"`
	Phone  *string   `json:"phone"`
	Skills []string  `json:"skills"`
	Status string    `json:"status"`

	ExtractedSummary    *string `json:"extracted_summary"`
	ExtractedExperience *string `json:"extracted_experience"`
	ExtractedEducation  *string `json:"extracted_education"`

	// ExtractionMethod is set only together with ExtractionStatus == "success".
	ExtractionMethod        *string    `json:"extraction_method"`
	ExtractionStatus        string     `json:"extraction_status"`
	LastExtractionDate      *time.Time `json:"last_extraction_date"`
	ExtractionPromptVersion *string    `json:"extraction_prompt_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
