// Package jobs provides River job workers for async processing tasks.
package jobs

import "github.com/google/uuid"

// EmbeddingJobArgs identifies one entity whose embedding should be generated
// or refreshed. The worker re-reads the entity at execution time, so a stale
// job after further edits still produces the current embedding.
type EmbeddingJobArgs struct {
	// EntityID is the candidate or position to embed.
	EntityID uuid.UUID `json:"entity_id"`

	// EntityType is "candidate" or "position".
	EntityType string `json:"entity_type"`
}

// Kind returns the job type identifier for River.
func (EmbeddingJobArgs) Kind() string { return "entity_embedding" }
