package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCostEstimate(t *testing.T) {
	usage := Usage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000}

	t.Run("known model uses table rates", func(t *testing.T) {
		cost := GetCostEstimate("gpt-4o-mini", usage)
		assert.InDelta(t, 0.00015+0.0006, cost, 1e-9)
	})

	t.Run("dated snapshot resolves to its family by longest prefix", func(t *testing.T) {
		cost := GetCostEstimate("gpt-4o-mini-2024-07-18", usage)
		assert.InDelta(t, 0.00015+0.0006, cost, 1e-9)
	})

	t.Run("plain gpt-4o is not priced as mini", func(t *testing.T) {
		cost := GetCostEstimate("gpt-4o", usage)
		assert.InDelta(t, 0.0025+0.01, cost, 1e-9)
	})

	t.Run("unknown model is zero cost", func(t *testing.T) {
		assert.Zero(t, GetCostEstimate("some-exotic-model", usage))
	})
}

func TestMockClient(t *testing.T) {
	t.Run("empty prompt is rejected", func(t *testing.T) {
		_, err := NewMockClient().Generate(context.Background(), GenerateRequest{Prompt: "  "})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("deterministic response with estimated usage", func(t *testing.T) {
		client := NewMockClient(WithMockResponder(func(GenerateRequest) string {
			return `{"summary":"test"}`
		}))

		res, err := client.Generate(context.Background(), GenerateRequest{Prompt: "analyze this"})
		require.NoError(t, err)
		assert.Equal(t, `{"summary":"test"}`, res.Text)
		assert.Equal(t, res.Usage.PromptTokens+res.Usage.CompletionTokens, res.Usage.TotalTokens)
		assert.Positive(t, res.Usage.TotalTokens)
	})
}

func TestNewClientFactory(t *testing.T) {
	t.Run("mock provider", func(t *testing.T) {
		client, err := NewClient(ProviderMock, "", "")
		require.NoError(t, err)
		assert.Equal(t, "mock", client.ModelName())
	})

	t.Run("openai without key fails", func(t *testing.T) {
		_, err := NewClient(ProviderOpenAI, "", "gpt-4o-mini")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("unknown provider fails", func(t *testing.T) {
		_, err := NewClient("claude-web", "key", "")
		assert.Error(t, err)
	})
}
