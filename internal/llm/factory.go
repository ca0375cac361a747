package llm

import (
	"errors"
	"fmt"
)

// Provider names accepted by NewClient.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ErrMissingAPIKey is returned when a real provider is selected without a key.
var ErrMissingAPIKey = errors.New("llm: provider requires an API key")

// NewClient selects a Client implementation by provider name. The choice is
// made once at construction; there is no runtime provider switching.
func NewClient(provider, apiKey, model string) (Client, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}

		return NewOpenAIClient(apiKey, WithModel(model)), nil

	case ProviderMock, "":
		return NewMockClient(), nil

	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}
