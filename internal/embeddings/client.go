// Package embeddings defines the embedding-provider contract and its
// deterministic mock, plus the configuration-driven factory.
package embeddings

import "context"

// Client generates text embeddings. Implementations return the vector and the
// provider-billed (or estimated) token count for the call.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, int, error)

	// ModelName returns the provider model identifier stored alongside each
	// embedding for drift detection.
	ModelName() string
}
