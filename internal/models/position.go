package models

import (
	"time"

	"github.com/google/uuid"
)

// Position status values.
const (
	PositionStatusOpen   = "OPEN"
	PositionStatusClosed = "CLOSED"
)

// Position is an open role. Extraction fields are written only by the extraction
// pipeline from the position's job description document.
type Position struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Department  *string   `json:"department"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`

	ExtractedSummary          *string `json:"extracted_summary"`
	ExtractedRequirements     *string `json:"extracted_requirements"`
	ExtractedResponsibilities *string `json:"extracted_responsibilities"`

	// ExtractionMethod is set only together with ExtractionStatus == "success".
	ExtractionMethod        *string    `json:"extraction_method"`
	ExtractionStatus        string     `json:"extraction_status"`
	LastExtractionDate      *time.Time `json:"last_extraction_date"`
	ExtractionPromptVersion *string    `json:"extraction_prompt_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
