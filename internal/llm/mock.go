package llm

import (
	"context"
	"strings"
	"time"
)

// MockClient is a deterministic Client for local development and tests.
// It never calls a network and always succeeds.
type MockClient struct {
	model   string
	respond func(req GenerateRequest) string
}

// MockOption configures the MockClient.
type MockOption func(*MockClient)

// WithMockResponder overrides the response function.
func WithMockResponder(respond func(req GenerateRequest) string) MockOption {
	return func(c *MockClient) {
		c.respond = respond
	}
}

// NewMockClient creates a mock client. The default responder returns an empty
// JSON object, which downstream JSON parsing accepts as "no fields extracted".
func NewMockClient(opts ...MockOption) *MockClient {
	client := &MockClient{
		model:   "mock",
		respond: func(GenerateRequest) string { return "{}" },
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ModelName returns "mock".
func (c *MockClient) ModelName() string {
	return c.model
}

// Generate returns the deterministic response with usage estimated from text
// lengths (roughly 4 characters per token, matching the provider heuristic).
func (c *MockClient) Generate(_ context.Context, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	start := time.Now()
	text := c.respond(req)

	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	promptTokens := EstimateTokens(req.SystemPrompt + req.Prompt)
	completionTokens := EstimateTokens(text)

	return &GenerateResult{
		Text: text,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		ModelID:   model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// EstimateTokens approximates the token count of text at 4 characters per
// token, the usual rule of thumb for English prose.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	return (len(text) + 3) / 4
}
