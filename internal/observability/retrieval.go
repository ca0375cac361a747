package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RetrievalMetrics records semantic retrieval metrics with bounded cardinality (query type).
type RetrievalMetrics interface {
	RecordRetrieval(ctx context.Context, queryType string, resultCount int, duration time.Duration)
}

// retrievalMetrics implements RetrievalMetrics.
type retrievalMetrics struct {
	retrievals metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewRetrievalMetrics creates RetrievalMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewRetrievalMetrics(meter metric.Meter) (RetrievalMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	retrievals, err := meter.Int64Counter(
		MetricNameRetrievals,
		metric.WithDescription("Total semantic retrievals by query type (candidates_for_position, positions_for_candidate) and whether any results returned"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrievals counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameRetrievalDuration,
		metric.WithDescription("Semantic retrieval duration including similarity search and filtering (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create retrieval duration histogram: %w", err)
	}

	return &retrievalMetrics{retrievals: retrievals, duration: duration}, nil
}

func (r *retrievalMetrics) RecordRetrieval(ctx context.Context, queryType string, resultCount int, duration time.Duration) {
	queryType = NormalizeLabel(queryType, allowedQueryTypes)

	outcome := "hit"
	if resultCount == 0 {
		outcome = "empty"
	}

	r.retrievals.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrQueryType, queryType),
		attribute.String("outcome", outcome),
	))
	r.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrQueryType, queryType)))
}
