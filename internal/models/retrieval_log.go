package models

import (
	"time"

	"github.com/google/uuid"
)

// Retrieval query types.
const (
	QueryTypeCandidatesForPosition = "candidates_for_position"
	QueryTypePositionsForCandidate = "positions_for_candidate"
)

// RetrievalHit is one raw nearest-neighbor result recorded in a retrieval log.
type RetrievalHit struct {
	EntityID   uuid.UUID `json:"entity_id"`
	Similarity float64   `json:"similarity"`
}

// RetrievalLog is an append-only diagnostic record of one similarity-search call,
// written regardless of whether any results survived filtering.
type RetrievalLog struct {
	ID             uuid.UUID      `json:"id"`
	QueryType      string         `json:"query_type"`
	QueryEntityID  uuid.UUID      `json:"query_entity_id"`
	TopK           []RetrievalHit `json:"top_k"`
	FiltersApplied []string       `json:"filters_applied"`
	FinalCount     int            `json:"final_count"`
	ElapsedMs      int64          `json:"elapsed_ms"`
	CreatedAt      time.Time      `json:"created_at"`
}
