package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LLMMetrics records per-call LLM usage with bounded cardinality (model, operation, status).
type LLMMetrics interface {
	RecordCall(ctx context.Context, model, operation, status string, promptTokens, completionTokens int64, costUSD float64, duration time.Duration)
}

// llmMetrics implements LLMMetrics.
type llmMetrics struct {
	calls    metric.Int64Counter
	tokens   metric.Int64Counter
	cost     metric.Float64Counter
	duration metric.Float64Histogram
}

// NewLLMMetrics creates LLMMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewLLMMetrics(meter metric.Meter) (LLMMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	calls, err := meter.Int64Counter(
		MetricNameLLMCalls,
		metric.WithDescription("Total LLM calls by model, operation (extraction, explanation, sql_generation, answer) and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm calls counter: %w", err)
	}

	tokens, err := meter.Int64Counter(
		MetricNameLLMTokens,
		metric.WithDescription("Total LLM tokens consumed, labeled by direction (prompt, completion)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm tokens counter: %w", err)
	}

	cost, err := meter.Float64Counter(
		MetricNameLLMCost,
		metric.WithDescription("Estimated LLM spend in USD"),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm cost counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameLLMCallDuration,
		metric.WithDescription("LLM call duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm duration histogram: %w", err)
	}

	return &llmMetrics{calls: calls, tokens: tokens, cost: cost, duration: duration}, nil
}

func (l *llmMetrics) RecordCall(ctx context.Context, model, operation, status string, promptTokens, completionTokens int64, costUSD float64, duration time.Duration) {
	operation = NormalizeLabel(operation, allowedLLMOperations)

	callAttrs := attribute.NewSet(
		attribute.String(AttrModel, model),
		attribute.String(AttrOperation, operation),
		attribute.String(AttrStatus, status),
	)
	l.calls.Add(ctx, 1, metric.WithAttributeSet(callAttrs))

	modelOp := attribute.NewSet(
		attribute.String(AttrModel, model),
		attribute.String(AttrOperation, operation),
	)
	l.tokens.Add(ctx, promptTokens, metric.WithAttributes(
		attribute.String(AttrModel, model),
		attribute.String(AttrOperation, operation),
		attribute.String("direction", "prompt"),
	))
	l.tokens.Add(ctx, completionTokens, metric.WithAttributes(
		attribute.String(AttrModel, model),
		attribute.String(AttrOperation, operation),
		attribute.String("direction", "completion"),
	))
	l.cost.Add(ctx, costUSD, metric.WithAttributeSet(modelOp))
	l.duration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(modelOp))
}
