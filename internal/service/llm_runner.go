// Package service contains the extraction, embedding, matching, and SQL-RAG
// orchestration built on the repository and provider layers.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/llm"
	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/observability"
)

// LLMMetricsRecorder persists one row per LLM call.
type LLMMetricsRecorder interface {
	Insert(ctx context.Context, metric *models.LLMMetric) error
}

// LLMCallContext attributes one LLM call for the metrics trail. Operation is a
// bounded label (extraction, explanation, sql_generation, answer); the entity
// and document references are optional.
type LLMCallContext struct {
	Operation     string
	PromptVersion string
	EntityType    *string
	EntityID      *uuid.UUID
	DocumentID    *uuid.UUID
}

// MeteredLLM wraps an llm.Client so that every call, including failures, is
// recorded in the llm_metrics table and the OTel counters. Services go through
// this wrapper instead of calling the client directly, which keeps the
// record-every-call rule in one place.
type MeteredLLM struct {
	client      llm.Client
	metricsRepo LLMMetricsRecorder
	llmMetrics  observability.LLMMetrics
	logger      *slog.Logger
}

// NewMeteredLLM creates a MeteredLLM. llmMetrics may be nil (metrics disabled);
// metricsRepo must not be.
func NewMeteredLLM(client llm.Client, metricsRepo LLMMetricsRecorder, llmMetrics observability.LLMMetrics, logger *slog.Logger) *MeteredLLM {
	if logger == nil {
		logger = slog.Default()
	}

	return &MeteredLLM{
		client:      client,
		metricsRepo: metricsRepo,
		llmMetrics:  llmMetrics,
		logger:      logger,
	}
}

// ModelName returns the wrapped client's model identifier.
func (m *MeteredLLM) ModelName() string {
	return m.client.ModelName()
}

// Generate performs one call and records it. On failure the metric row carries
// zeroed usage, success=false, and the error text; the error is returned to the
// caller unchanged so sentinel checks still work.
func (m *MeteredLLM) Generate(ctx context.Context, call LLMCallContext, req llm.GenerateRequest) (*llm.GenerateResult, error) {
	return m.generate(ctx, call, req, nil)
}

// GenerateJSON generates and parses the response (Markdown fences stripped)
// into out. A parse failure still records real token usage but marks the call
// failed, since the caller cannot use the output.
func (m *MeteredLLM) GenerateJSON(ctx context.Context, call LLMCallContext, req llm.GenerateRequest, out any) (*llm.GenerateResult, error) {
	return m.generate(ctx, call, req, func(result *llm.GenerateResult) error {
		if err := json.Unmarshal([]byte(stripMarkdownFences(result.Text)), out); err != nil {
			return fmt.Errorf("parse llm json response: %w", err)
		}

		return nil
	})
}

func (m *MeteredLLM) generate(ctx context.Context, call LLMCallContext, req llm.GenerateRequest, parse func(*llm.GenerateResult) error) (*llm.GenerateResult, error) {
	start := time.Now()
	result, err := m.client.Generate(ctx, req)
	elapsed := time.Since(start)

	modelName := m.client.ModelName()
	if req.Model != "" {
		modelName = req.Model
	}

	metric := &models.LLMMetric{
		ID:            uuid.New(),
		EntityType:    call.EntityType,
		EntityID:      call.EntityID,
		DocumentID:    call.DocumentID,
		Operation:     call.Operation,
		ModelName:     modelName,
		PromptVersion: call.PromptVersion,
		LatencyMs:     elapsed.Milliseconds(),
		CreatedAt:     time.Now(),
	}

	status := "success"

	if err == nil {
		metric.PromptTokens = result.Usage.PromptTokens
		metric.CompletionTokens = result.Usage.CompletionTokens
		metric.TotalTokens = result.Usage.TotalTokens
		metric.EstimatedCostUSD = llm.GetCostEstimate(result.ModelID, result.Usage)

		if result.LatencyMs > 0 {
			metric.LatencyMs = result.LatencyMs
		}

		if parse != nil {
			err = parse(result)
		}
	}

	if err != nil {
		status = "error"
		msg := err.Error()
		metric.Error = &msg
	} else {
		metric.Success = true
	}

	// A failed metric insert must not mask the call outcome.
	if insertErr := m.metricsRepo.Insert(ctx, metric); insertErr != nil {
		m.logger.Error("record llm metric failed", "error", insertErr, "operation", call.Operation, "model", metric.ModelName)
	}

	if m.llmMetrics != nil {
		m.llmMetrics.RecordCall(ctx, metric.ModelName, call.Operation, status,
			int64(metric.PromptTokens), int64(metric.CompletionTokens), metric.EstimatedCostUSD, elapsed)
	}

	return result, err
}

// StageMetrics is the per-stage usage summary surfaced in SQL-RAG traces.
type StageMetrics struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	LatencyMs        int64   `json:"latency_ms"`
}

func stageMetricsFromResult(result *llm.GenerateResult) StageMetrics {
	return StageMetrics{
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		EstimatedCostUSD: llm.GetCostEstimate(result.ModelID, result.Usage),
		LatencyMs:        result.LatencyMs,
	}
}
