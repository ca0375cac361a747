package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/models"
)

// BackfillStats holds statistics from a backfill operation.
type BackfillStats struct {
	CandidatesEnqueued int
	PositionsEnqueued  int
	Errors             int
}

// BackfillLister returns the entity IDs that are missing embeddings.
type BackfillLister interface {
	ListEntityIDsForBackfill(ctx context.Context, entityType string) ([]uuid.UUID, error)
}

// BackfillOptions throttles the enqueue loop. A zero BatchSize enqueues
// everything in one pass; a zero BatchDelay never sleeps.
type BackfillOptions struct {
	BatchSize  int
	BatchDelay time.Duration
}

// Backfill enqueues embedding jobs for every candidate and position that has
// no embedding row yet. Individual enqueue failures are counted and skipped,
// so one bad row never aborts the run.
func Backfill(ctx context.Context, lister BackfillLister, inserter JobInserter, opts BackfillOptions, logger *slog.Logger) (*BackfillStats, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stats := &BackfillStats{}

	candidates, err := backfillEntityType(ctx, lister, inserter, models.EntityTypeCandidate, opts, logger, &stats.Errors)
	if err != nil {
		return stats, err
	}

	stats.CandidatesEnqueued = candidates

	positions, err := backfillEntityType(ctx, lister, inserter, models.EntityTypePosition, opts, logger, &stats.Errors)
	if err != nil {
		return stats, err
	}

	stats.PositionsEnqueued = positions

	return stats, nil
}

func backfillEntityType(ctx context.Context, lister BackfillLister, inserter JobInserter, entityType string, opts BackfillOptions, logger *slog.Logger, errCount *int) (int, error) {
	ids, err := lister.ListEntityIDsForBackfill(ctx, entityType)
	if err != nil {
		return 0, fmt.Errorf("list %ss for backfill: %w", entityType, err)
	}

	count := 0

	for i, id := range ids {
		if opts.BatchSize > 0 && i > 0 && i%opts.BatchSize == 0 && opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return count, ctx.Err()
			case <-time.After(opts.BatchDelay):
			}
		}

		if err := inserter.InsertEmbeddingJob(ctx, EmbeddingJobArgs{EntityID: id, EntityType: entityType}); err != nil {
			logger.Error("failed to enqueue backfill embedding job",
				"entityType", entityType, "entityId", id.String(), "error", err)

			*errCount++

			continue
		}

		count++
	}

	return count, nil
}
