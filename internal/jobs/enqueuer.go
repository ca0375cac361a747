package jobs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/observability"
)

// EntityEnqueuer adapts a JobInserter to the enqueue interface the extraction
// pipeline expects, recording enqueue metrics along the way. Metrics may be nil.
type EntityEnqueuer struct {
	inserter JobInserter
	metrics  observability.EmbeddingMetrics
	logger   *slog.Logger
}

// NewEntityEnqueuer creates an EntityEnqueuer.
func NewEntityEnqueuer(inserter JobInserter, metrics observability.EmbeddingMetrics, logger *slog.Logger) *EntityEnqueuer {
	if logger == nil {
		logger = slog.Default()
	}

	return &EntityEnqueuer{inserter: inserter, metrics: metrics, logger: logger}
}

// EnqueueEntity enqueues an embedding job for one entity.
func (e *EntityEnqueuer) EnqueueEntity(ctx context.Context, entityType string, entityID uuid.UUID) error {
	err := e.inserter.InsertEmbeddingJob(ctx, EmbeddingJobArgs{
		EntityID:   entityID,
		EntityType: entityType,
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordEnqueueError(ctx)
		}

		//nolint:wrapcheck // inserter errors carry context already
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordJobsEnqueued(ctx, 1)
	}

	e.logger.Debug("embedding job enqueued", "entityType", entityType, "entityId", entityID.String())

	return nil
}
