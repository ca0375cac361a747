package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

type mockEmbeddingsRepoForPipeline struct {
	getByEntityFunc func(ctx context.Context, entityID uuid.UUID, entityType string) (*models.EmbeddingRecord, error)
	upsertFunc      func(ctx context.Context, record *models.EmbeddingRecord) error
	upserts         []*models.EmbeddingRecord
}

func (m *mockEmbeddingsRepoForPipeline) GetByEntity(ctx context.Context, entityID uuid.UUID, entityType string) (*models.EmbeddingRecord, error) {
	if m.getByEntityFunc != nil {
		return m.getByEntityFunc(ctx, entityID, entityType)
	}

	return nil, repository.ErrEmbeddingNotFound
}

func (m *mockEmbeddingsRepoForPipeline) Upsert(ctx context.Context, record *models.EmbeddingRecord) error {
	m.upserts = append(m.upserts, record)

	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, record)
	}

	return nil
}

type mockVectorClient struct {
	createFunc func(ctx context.Context, text string) ([]float32, int, error)
	calls      int
}

func (m *mockVectorClient) CreateEmbedding(ctx context.Context, text string) ([]float32, int, error) {
	m.calls++

	if m.createFunc != nil {
		return m.createFunc(ctx, text)
	}

	return []float32{0.6, 0.8}, 12, nil
}

func (m *mockVectorClient) ModelName() string { return "mock-embed" }

type mockCandidatesForEmbedding struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
}

func (m *mockCandidatesForEmbedding) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	summary := "Frontend engineer."

	return &models.Candidate{
		ID:               id,
		Name:             "Alice",
		Skills:           []string{"JavaScript", "React"},
		ExtractedSummary: &summary,
		UpdatedAt:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

type mockPositionsForEmbedding struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Position, error)
}

func (m *mockPositionsForEmbedding) GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	return &models.Position{ID: id, Title: "Frontend Engineer", UpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func newTestPipeline(client *mockVectorClient, repo *mockEmbeddingsRepoForPipeline, enabled bool) *EmbeddingPipeline {
	return NewEmbeddingPipeline(EmbeddingPipelineParams{
		Client:     client,
		Embeddings: repo,
		Candidates: &mockCandidatesForEmbedding{},
		Positions:  &mockPositionsForEmbedding{},
		Enabled:    enabled,
		Version:    "v2",
	})
}

func TestEmbeddingPipeline_EmbedCandidate(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		client := &mockVectorClient{}
		outcome, err := newTestPipeline(client, &mockEmbeddingsRepoForPipeline{}, false).EmbedCandidate(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, EmbedOutcomeSkipped, outcome)
		assert.Zero(t, client.calls)
	})

	t.Run("missing record generates and upserts", func(t *testing.T) {
		client := &mockVectorClient{}
		repo := &mockEmbeddingsRepoForPipeline{}
		outcome, err := newTestPipeline(client, repo, true).EmbedCandidate(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, EmbedOutcomeSuccess, outcome)

		require.Len(t, repo.upserts, 1)
		record := repo.upserts[0]
		assert.Equal(t, models.EntityTypeCandidate, record.EntityType)
		assert.Equal(t, "v2", record.EmbeddingVersion)
		assert.Equal(t, "mock-embed", record.ModelName)
		assert.Equal(t, 12, record.TokensEstimate)
		assert.Equal(t, HashEmbeddingText(record.EmbeddingText), record.EmbeddingTextHash)
		assert.Contains(t, record.EmbeddingText, "SUMMARY")
		assert.Contains(t, record.EmbeddingText, "(No education available)")
	})

	t.Run("up-to-date record skips the provider", func(t *testing.T) {
		client := &mockVectorClient{}
		repo := &mockEmbeddingsRepoForPipeline{}
		pipeline := newTestPipeline(client, repo, true)
		candidateID := uuid.New()

		// Fake an existing record that exactly matches current entity state.
		candidate, err := (&mockCandidatesForEmbedding{}).GetByID(context.Background(), candidateID)
		require.NoError(t, err)

		text := BuildCandidateEmbeddingText(candidate)
		repo.getByEntityFunc = func(_ context.Context, _ uuid.UUID, _ string) (*models.EmbeddingRecord, error) {
			return &models.EmbeddingRecord{
				EmbeddingTextHash: HashEmbeddingText(text),
				EmbeddingVersion:  "v2",
				SourceUpdatedAt:   candidate.UpdatedAt,
			}, nil
		}

		outcome, err := pipeline.EmbedCandidate(context.Background(), candidateID)
		require.NoError(t, err)
		assert.Equal(t, EmbedOutcomeSkipped, outcome)
		assert.Zero(t, client.calls, "drift check must run before any provider call")
		assert.Empty(t, repo.upserts)
	})

	t.Run("provider errors propagate", func(t *testing.T) {
		boom := errors.New("rate limited")
		client := &mockVectorClient{createFunc: func(_ context.Context, _ string) ([]float32, int, error) {
			return nil, 0, boom
		}}

		_, err := newTestPipeline(client, &mockEmbeddingsRepoForPipeline{}, true).EmbedCandidate(context.Background(), uuid.New())
		assert.ErrorIs(t, err, boom)
	})
}

func TestEmbeddingPipeline_EmbedEntity(t *testing.T) {
	t.Run("dispatches by entity type", func(t *testing.T) {
		repo := &mockEmbeddingsRepoForPipeline{}
		pipeline := newTestPipeline(&mockVectorClient{}, repo, true)

		_, err := pipeline.EmbedEntity(context.Background(), models.EntityTypePosition, uuid.New())
		require.NoError(t, err)
		require.Len(t, repo.upserts, 1)
		assert.Equal(t, models.EntityTypePosition, repo.upserts[0].EntityType)
	})

	t.Run("unknown entity type is rejected", func(t *testing.T) {
		pipeline := newTestPipeline(&mockVectorClient{}, &mockEmbeddingsRepoForPipeline{}, true)

		_, err := pipeline.EmbedEntity(context.Background(), "team", uuid.New())
		assert.ErrorIs(t, err, ErrUnknownEntityType)
	})
}

func TestShouldRegenerate(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	current := &models.EmbeddingRecord{
		SourceUpdatedAt:   base,
		EmbeddingVersion:  "v2",
		EmbeddingTextHash: "abc",
	}

	tests := []struct {
		name            string
		existing        *models.EmbeddingRecord
		sourceUpdatedAt time.Time
		version         string
		hash            string
		expected        bool
	}{
		{"no existing record", nil, base, "v2", "abc", true},
		{"all unchanged", current, base, "v2", "abc", false},
		{"source advanced", current, base.Add(time.Minute), "v2", "abc", true},
		{"version changed", current, base, "v3", "abc", true},
		{"hash changed", current, base, "v2", "def", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShouldRegenerate(tt.existing, tt.sourceUpdatedAt, tt.version, tt.hash))
		})
	}
}

func TestBuildEmbeddingText_Deterministic(t *testing.T) {
	summary := "Frontend engineer."
	candidate := &models.Candidate{Skills: []string{"JavaScript", "React"}, ExtractedSummary: &summary}

	first := BuildCandidateEmbeddingText(candidate)
	second := BuildCandidateEmbeddingText(candidate)
	assert.Equal(t, first, second)

	// Fixed section order with explicit placeholders for empty sections.
	assert.Less(t, strings.Index(first, "SUMMARY"), strings.Index(first, "SKILLS"))
	assert.Less(t, strings.Index(first, "SKILLS"), strings.Index(first, "EXPERIENCE"))
	assert.Less(t, strings.Index(first, "EXPERIENCE"), strings.Index(first, "EDUCATION"))
	assert.Contains(t, first, "(No experience available)")

	position := &models.Position{Title: "Backend Engineer"}
	posText := BuildPositionEmbeddingText(position)
	assert.Contains(t, posText, "Backend Engineer")
	assert.Contains(t, posText, "(No requirements available)")
}
