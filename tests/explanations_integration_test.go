package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/repository"
)

func TestExplanationsRepository_InsertAndGet(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewExplanationsRepository(db)

	candidateID := uuid.New()
	positionID := uuid.New()

	entry := &models.MatchExplanation{
		CandidateID:            candidateID,
		PositionID:             positionID,
		CandidateEmbeddingHash: "cand-hash",
		PositionEmbeddingHash:  "pos-hash",
		PromptVersion:          "v2",
		Explanation:            "Alice has hands-on React experience matching the frontend requirements.",
		SimilarityScore:        0.87,
		ModelName:              "mock",
	}
	require.NoError(t, repo.Insert(ctx, entry))

	got, err := repo.Get(ctx, candidateID, positionID, "cand-hash", "pos-hash", "v2")
	require.NoError(t, err)
	assert.Equal(t, entry.Explanation, got.Explanation)
	assert.InDelta(t, 0.87, got.SimilarityScore, 1e-9)
	assert.Equal(t, "mock", got.ModelName)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestExplanationsRepository_Get_MissesOnChangedKey(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewExplanationsRepository(db)

	candidateID := uuid.New()
	positionID := uuid.New()

	require.NoError(t, repo.Insert(ctx, &models.MatchExplanation{
		CandidateID:            candidateID,
		PositionID:             positionID,
		CandidateEmbeddingHash: "cand-hash",
		PositionEmbeddingHash:  "pos-hash",
		PromptVersion:          "v2",
		Explanation:            "Strong overall match.",
		SimilarityScore:        0.8,
		ModelName:              "mock",
	}))

	// A changed embedding hash or prompt version is a different key.
	_, err := repo.Get(ctx, candidateID, positionID, "other-hash", "pos-hash", "v2")
	assert.ErrorIs(t, err, repository.ErrExplanationNotFound)

	_, err = repo.Get(ctx, candidateID, positionID, "cand-hash", "pos-hash", "v3")
	assert.ErrorIs(t, err, repository.ErrExplanationNotFound)
}

func TestExplanationsRepository_Insert_FirstWriterWins(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	repo := repository.NewExplanationsRepository(db)

	candidateID := uuid.New()
	positionID := uuid.New()

	first := &models.MatchExplanation{
		CandidateID:            candidateID,
		PositionID:             positionID,
		CandidateEmbeddingHash: "cand-hash",
		PositionEmbeddingHash:  "pos-hash",
		PromptVersion:          "v2",
		Explanation:            "First explanation.",
		SimilarityScore:        0.8,
		ModelName:              "mock",
	}
	require.NoError(t, repo.Insert(ctx, first))

	second := *first
	second.Explanation = "Second explanation."
	require.NoError(t, repo.Insert(ctx, &second))

	got, err := repo.Get(ctx, candidateID, positionID, "cand-hash", "pos-hash", "v2")
	require.NoError(t, err)
	assert.Equal(t, "First explanation.", got.Explanation)
}
