package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchExplanation is a cached LLM explanation of why a candidate matches a
// position. The composite key includes both sides' embedding text hashes and the
// prompt version, so any content or prompt change produces a new key; stale keys
// are orphaned, never overwritten.
type MatchExplanation struct {
	ID                     uuid.UUID `json:"id"`
	CandidateID            uuid.UUID `json:"candidate_id"`
	PositionID             uuid.UUID `json:"position_id"`
	CandidateEmbeddingHash string    `json:"candidate_embedding_hash"`
	PositionEmbeddingHash  string    `json:"position_embedding_hash"`
	PromptVersion          string    `json:"prompt_version"`
	Explanation            string    `json:"explanation"`
	SimilarityScore        float64   `json:"similarity_score"`
	ModelName              string    `json:"model_name"`
	CreatedAt              time.Time `json:"created_at"`
}
