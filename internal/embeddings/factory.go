package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/helliohr/recruit/internal/googleai"
	"github.com/helliohr/recruit/internal/openai"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
	ProviderMock   = "mock"
)

// ErrMissingAPIKey is returned when a real provider is selected without a key.
var ErrMissingAPIKey = errors.New("embeddings: provider requires an API key")

// NewClient selects an embedding Client implementation by provider name.
func NewClient(ctx context.Context, provider, apiKey, model string, dimensions int) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}

		return openai.NewClient(apiKey,
			openai.WithModel(model),
			openai.WithDimensions(dimensions),
		), nil

	case ProviderGoogle:
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}

		client, err := googleai.NewClient(ctx, apiKey,
			googleai.WithModel(model),
			googleai.WithDimensions(dimensions),
		)
		if err != nil {
			return nil, fmt.Errorf("google embedding client: %w", err)
		}

		return client, nil

	case ProviderMock, "":
		return NewMockClientWithDimensions(dimensions), nil

	default:
		return nil, fmt.Errorf("embeddings: unknown provider %q", provider)
	}
}
