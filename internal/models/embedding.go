package models

import (
	"time"

	"github.com/google/uuid"
)

// Entity types that can be embedded.
const (
	EntityTypeCandidate = "candidate"
	EntityTypePosition  = "position"
)

// EmbeddingRecord is one embedding row per (entity_id, entity_type). Regeneration
// is forced when any of SourceUpdatedAt, EmbeddingVersion, or EmbeddingTextHash
// no longer matches the owning entity's current state.
type EmbeddingRecord struct {
	ID                  uuid.UUID `json:"id"`
	EntityID            uuid.UUID `json:"entity_id"`
	EntityType          string    `json:"entity_type"`
	Embedding           []float32 `json:"embedding"`
	EmbeddingText       string    `json:"embedding_text"`
	EmbeddingTextHash   string    `json:"embedding_text_hash"`
	EmbeddingVersion    string    `json:"embedding_version"`
	ModelName           string    `json:"model_name"`
	SourceUpdatedAt     time.Time `json:"source_updated_at"`
	TokensEstimate      int       `json:"tokens_estimate"`
	GenerationLatencyMs int64     `json:"generation_latency_ms"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// EntityWithScore is a nearest-neighbor search hit: entity ID plus cosine
// similarity (1 - distance) and the raw distance.
type EntityWithScore struct {
	EntityID   uuid.UUID `json:"entity_id"`
	Similarity float64   `json:"similarity"`
	Distance   float64   `json:"distance"`
}

// Suggestion is one ranked match surfaced to a recruiter.
type Suggestion struct {
	EntityID   uuid.UUID `json:"entity_id"`
	Similarity float64   `json:"similarity"`
	Rank       int       `json:"rank"`
}
