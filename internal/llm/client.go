// Package llm provides a uniform text-generation contract over a real LLM
// provider or a deterministic mock, selected by configuration.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrEmptyPrompt is returned when Generate is called with an empty prompt.
	ErrEmptyPrompt = errors.New("llm: prompt is empty")
	// ErrNoChoicesInResponse is returned when the API response contains no completion.
	ErrNoChoicesInResponse = errors.New("llm: no choices in response")
)

// GenerateRequest is one text-generation call. Model, when set, overrides the
// client's configured model for this call only.
type GenerateRequest struct {
	SystemPrompt string
	Prompt       string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// Usage is the token accounting for one call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResult is the completion text plus usage and timing.
type GenerateResult struct {
	Text      string `json:"text"`
	Usage     Usage  `json:"usage"`
	ModelID   string `json:"model_id"`
	LatencyMs int64  `json:"latency_ms"`
}

// Client generates text. Implementations must fill Usage and LatencyMs on
// success; callers record both in metrics.
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// ModelName returns the configured model identifier, used for metric
	// attribution and cost estimation.
	ModelName() string
}
