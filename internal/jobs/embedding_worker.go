package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/internal/service"
)

// EntityEmbedder generates or refreshes the embedding for one entity.
type EntityEmbedder interface {
	EmbedEntity(ctx context.Context, entityType string, entityID uuid.UUID) (string, error)
}

// EmbeddingWorkerDeps holds the dependencies for the embedding worker.
// RateLimiter and Metrics may be nil.
type EmbeddingWorkerDeps struct {
	Embedder    EntityEmbedder
	RateLimiter *rate.Limiter
	Metrics     observability.EmbeddingMetrics
	Logger      *slog.Logger
}

// EmbeddingWorker processes embedding generation jobs. The embedder itself
// skips entities whose embedding is already current, so replaying a job is
// harmless.
type EmbeddingWorker struct {
	river.WorkerDefaults[EmbeddingJobArgs]
	deps EmbeddingWorkerDeps
}

// NewEmbeddingWorker creates a new embedding worker with the given dependencies.
func NewEmbeddingWorker(deps EmbeddingWorkerDeps) *EmbeddingWorker {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &EmbeddingWorker{deps: deps}
}

// Work processes an embedding job.
func (w *EmbeddingWorker) Work(ctx context.Context, job *river.Job[EmbeddingJobArgs]) error {
	args := job.Args

	w.deps.Logger.Debug("processing embedding job",
		"jobId", job.ID,
		"entityType", args.EntityType,
		"entityId", args.EntityID.String(),
	)

	if w.deps.RateLimiter != nil {
		if err := w.deps.RateLimiter.Wait(ctx); err != nil {
			//nolint:wrapcheck // context errors must stay matchable for River
			return err
		}
	}

	outcome, err := w.deps.Embedder.EmbedEntity(ctx, args.EntityType, args.EntityID)
	if err == nil {
		w.deps.Logger.Info("embedding job completed",
			"jobId", job.ID,
			"entityType", args.EntityType,
			"entityId", args.EntityID.String(),
			"outcome", outcome,
		)

		return nil
	}

	// A malformed job won't be fixed by retrying.
	if errors.Is(err, service.ErrUnknownEntityType) {
		w.deps.Logger.Error("embedding job has unknown entity type",
			"jobId", job.ID, "entityType", args.EntityType)

		return nil
	}

	// Entity deleted between enqueue and execution: complete the job.
	if errors.Is(err, service.ErrCandidateNotFound) || errors.Is(err, service.ErrPositionNotFound) {
		w.deps.Logger.Info("entity deleted before embedding job completed",
			"jobId", job.ID,
			"entityType", args.EntityType,
			"entityId", args.EntityID.String(),
		)

		return nil
	}

	status := service.EmbedOutcomeRetry
	if job.Attempt >= job.MaxAttempts {
		status = service.EmbedOutcomeFailedFinal
	}

	if w.deps.Metrics != nil {
		w.deps.Metrics.RecordOutcome(ctx, status)
	}

	w.deps.Logger.Error("embedding job failed",
		"jobId", job.ID,
		"entityType", args.EntityType,
		"entityId", args.EntityID.String(),
		"attempt", job.Attempt,
		"maxAttempts", job.MaxAttempts,
		"status", status,
		"error", err,
	)

	//nolint:wrapcheck // River needs the raw error for retry classification
	return err
}
