package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/embeddings"
	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/internal/repository"
)

// Embedding job outcomes (also metric labels).
const (
	EmbedOutcomeSuccess     = "success"
	EmbedOutcomeSkipped     = "skipped"
	EmbedOutcomeRetry       = "retry"
	EmbedOutcomeFailedFinal = "failed_final"
)

// ErrUnknownEntityType is returned for an entity type outside candidate/position.
var ErrUnknownEntityType = errors.New("unknown entity type")

// EmbeddingsRepositoryForPipeline provides the embedding row operations the pipeline needs.
type EmbeddingsRepositoryForPipeline interface {
	GetByEntity(ctx context.Context, entityID uuid.UUID, entityType string) (*models.EmbeddingRecord, error)
	Upsert(ctx context.Context, record *models.EmbeddingRecord) error
}

// CandidatesRepositoryForEmbedding loads the candidate being embedded.
type CandidatesRepositoryForEmbedding interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
}

// PositionsRepositoryForEmbedding loads the position being embedded.
type PositionsRepositoryForEmbedding interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error)
}

// EmbeddingPipeline turns entity state into embedding rows. The drift check
// runs before the provider is called: an embedding is regenerated only when
// the source timestamp advanced, the version changed, or the text hash differs.
type EmbeddingPipeline struct {
	client     embeddings.Client
	embeddings EmbeddingsRepositoryForPipeline
	candidates CandidatesRepositoryForEmbedding
	positions  PositionsRepositoryForEmbedding

	enabled bool
	version string

	metrics observability.EmbeddingMetrics
	logger  *slog.Logger
}

// EmbeddingPipelineParams configures EmbeddingPipeline. Metrics may be nil.
type EmbeddingPipelineParams struct {
	Client     embeddings.Client
	Embeddings EmbeddingsRepositoryForPipeline
	Candidates CandidatesRepositoryForEmbedding
	Positions  PositionsRepositoryForEmbedding

	Enabled bool
	Version string

	Metrics observability.EmbeddingMetrics
	Logger  *slog.Logger
}

// NewEmbeddingPipeline creates an EmbeddingPipeline.
func NewEmbeddingPipeline(p EmbeddingPipelineParams) *EmbeddingPipeline {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingPipeline{
		client:     p.Client,
		embeddings: p.Embeddings,
		candidates: p.Candidates,
		positions:  p.Positions,
		enabled:    p.Enabled,
		version:    p.Version,
		metrics:    p.Metrics,
		logger:     logger,
	}
}

// EmbedEntity embeds one entity by type. Returns the outcome label; provider
// errors propagate to the caller, which decides whether to retry or continue.
func (p *EmbeddingPipeline) EmbedEntity(ctx context.Context, entityType string, entityID uuid.UUID) (string, error) {
	switch entityType {
	case models.EntityTypeCandidate:
		return p.EmbedCandidate(ctx, entityID)
	case models.EntityTypePosition:
		return p.EmbedPosition(ctx, entityID)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
}

// EmbedCandidate regenerates the candidate's embedding when drift is detected.
func (p *EmbeddingPipeline) EmbedCandidate(ctx context.Context, id uuid.UUID) (string, error) {
	if !p.enabled {
		return EmbedOutcomeSkipped, nil
	}

	candidate, err := p.candidates.GetByID(ctx, id)
	if err != nil {
		//nolint:wrapcheck // sentinel must stay matchable
		return "", err
	}

	text := BuildCandidateEmbeddingText(candidate)

	return p.embed(ctx, models.EntityTypeCandidate, id, text, candidate.UpdatedAt)
}

// EmbedPosition regenerates the position's embedding when drift is detected.
func (p *EmbeddingPipeline) EmbedPosition(ctx context.Context, id uuid.UUID) (string, error) {
	if !p.enabled {
		return EmbedOutcomeSkipped, nil
	}

	position, err := p.positions.GetByID(ctx, id)
	if err != nil {
		//nolint:wrapcheck // sentinel must stay matchable
		return "", err
	}

	text := BuildPositionEmbeddingText(position)

	return p.embed(ctx, models.EntityTypePosition, id, text, position.UpdatedAt)
}

func (p *EmbeddingPipeline) embed(ctx context.Context, entityType string, entityID uuid.UUID, text string, sourceUpdatedAt time.Time) (string, error) {
	hash := HashEmbeddingText(text)

	existing, err := p.embeddings.GetByEntity(ctx, entityID, entityType)
	if err != nil && !errors.Is(err, repository.ErrEmbeddingNotFound) {
		//nolint:wrapcheck // repository errors carry context already
		return "", err
	}

	if !ShouldRegenerate(existing, sourceUpdatedAt, p.version, hash) {
		p.logger.Debug("embedding up to date", "entityType", entityType, "entityId", entityID.String())

		if p.metrics != nil {
			p.metrics.RecordOutcome(ctx, EmbedOutcomeSkipped)
		}

		return EmbedOutcomeSkipped, nil
	}

	start := time.Now()

	vector, tokens, err := p.client.CreateEmbedding(ctx, text)
	if err != nil {
		return "", fmt.Errorf("create embedding for %s %s: %w", entityType, entityID, err)
	}

	elapsed := time.Since(start)

	record := &models.EmbeddingRecord{
		EntityID:            entityID,
		EntityType:          entityType,
		Embedding:           vector,
		EmbeddingText:       text,
		EmbeddingTextHash:   hash,
		EmbeddingVersion:    p.version,
		ModelName:           p.client.ModelName(),
		SourceUpdatedAt:     sourceUpdatedAt,
		TokensEstimate:      tokens,
		GenerationLatencyMs: elapsed.Milliseconds(),
	}

	if err := p.embeddings.Upsert(ctx, record); err != nil {
		//nolint:wrapcheck // repository errors carry context already
		return "", err
	}

	if p.metrics != nil {
		p.metrics.RecordOutcome(ctx, EmbedOutcomeSuccess)
		p.metrics.RecordGenerationDuration(ctx, elapsed, EmbedOutcomeSuccess)
	}

	p.logger.Info("embedding regenerated",
		"entityType", entityType, "entityId", entityID.String(),
		"tokens", tokens, "latencyMs", elapsed.Milliseconds())

	return EmbedOutcomeSuccess, nil
}

// ShouldRegenerate reports whether the stored embedding is stale. The three
// checks are independent; any single one forces regeneration.
func ShouldRegenerate(existing *models.EmbeddingRecord, sourceUpdatedAt time.Time, version, textHash string) bool {
	if existing == nil {
		return true
	}

	if sourceUpdatedAt.After(existing.SourceUpdatedAt) {
		return true
	}

	if existing.EmbeddingVersion != version {
		return true
	}

	return existing.EmbeddingTextHash != textHash
}

// HashEmbeddingText returns the SHA-256 hex digest of the standardized text.
func HashEmbeddingText(text string) string {
	sum := sha256.Sum256([]byte(text))

	return hex.EncodeToString(sum[:])
}

// BuildCandidateEmbeddingText renders a candidate in a fixed section order with
// explicit placeholders for empty sections, so the same entity state always
// hashes identically.
func BuildCandidateEmbeddingText(c *models.Candidate) string {
	var b strings.Builder

	writeSection(&b, "SUMMARY", derefOr(c.ExtractedSummary, ""), "(No summary available)")
	writeSection(&b, "SKILLS", strings.Join(c.Skills, ", "), "(No skills available)")
	writeSection(&b, "EXPERIENCE", derefOr(c.ExtractedExperience, ""), "(No experience available)")
	writeSection(&b, "EDUCATION", derefOr(c.ExtractedEducation, ""), "(No education available)")

	return strings.TrimRight(b.String(), "\n")
}

// BuildPositionEmbeddingText renders a position in a fixed section order,
// mirroring BuildCandidateEmbeddingText.
func BuildPositionEmbeddingText(p *models.Position) string {
	var b strings.Builder

	writeSection(&b, "TITLE", p.Title, "(No title available)")
	writeSection(&b, "SUMMARY", derefOr(p.ExtractedSummary, ""), "(No summary available)")
	writeSection(&b, "REQUIREMENTS", derefOr(p.ExtractedRequirements, ""), "(No requirements available)")
	writeSection(&b, "RESPONSIBILITIES", derefOr(p.ExtractedResponsibilities, ""), "(No responsibilities available)")

	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, header, content, placeholder string) {
	b.WriteString(header)
	b.WriteByte('\n')

	content = strings.TrimSpace(content)
	if content == "" {
		content = placeholder
	}

	b.WriteString(content)
	b.WriteString("\n\n")
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}

	return *s
}
