package embeddings

import (
	"context"
	"crypto/sha256"
	"errors"

	pkgembeddings "github.com/helliohr/recruit/pkg/embeddings"
)

// ErrEmptyText is returned when the mock is asked to embed empty text.
var ErrEmptyText = errors.New("embeddings: text cannot be empty")

const defaultMockDimensions = 1024

// MockClient generates deterministic embeddings from the input text hash.
// Identical text always yields the identical unit-length vector, which makes
// drift detection and similarity tests reproducible without a provider.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock embedding client with the default dimensions.
func NewMockClient() *MockClient {
	return &MockClient{dimensions: defaultMockDimensions}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// ModelName returns "mock".
func (c *MockClient) ModelName() string {
	return "mock"
}

// CreateEmbedding returns a normalized deterministic vector derived from the
// SHA-256 of text, with a token count estimated at 4 characters per token.
func (c *MockClient) CreateEmbedding(_ context.Context, text string) ([]float32, int, error) {
	if text == "" {
		return nil, 0, ErrEmptyText
	}

	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, c.dimensions)

	for i := 0; i < c.dimensions; i++ {
		byteIdx := i % len(hash)
		vector[i] = (float32(hash[byteIdx]) / 127.5) - 1.0
	}

	pkgembeddings.NormalizeL2(vector)

	return vector, (len(text) + 3) / 4, nil
}
