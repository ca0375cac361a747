package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/helliohr/recruit/internal/models"
	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/internal/repository"
)

// ErrEmbeddingNotFound is returned when the query entity has no embedding yet.
// Callers must be able to tell this apart from zero matches.
var ErrEmbeddingNotFound = repository.ErrEmbeddingNotFound

// EmbeddingsRepositoryForSuggestions provides the vector operations suggestions need.
type EmbeddingsRepositoryForSuggestions interface {
	GetByEntity(ctx context.Context, entityID uuid.UUID, entityType string) (*models.EmbeddingRecord, error)
	NearestEntities(ctx context.Context, entityType string, queryVector []float32, limit int, excludeEntityID *uuid.UUID) ([]models.EntityWithScore, error)
}

// CandidatesRepositoryForSuggestions provides candidate link/status lookups.
type CandidatesRepositoryForSuggestions interface {
	LinkedCandidateIDs(ctx context.Context, positionID uuid.UUID) ([]uuid.UUID, error)
	StatusByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// PositionsRepositoryForSuggestions provides position link/status lookups.
type PositionsRepositoryForSuggestions interface {
	LinkedPositionIDs(ctx context.Context, candidateID uuid.UUID) ([]uuid.UUID, error)
	StatusByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// RetrievalLogger appends one diagnostic record per suggestion call.
type RetrievalLogger interface {
	Insert(ctx context.Context, log *models.RetrievalLog) error
}

// SuggestionMetadata describes one retrieval for the response envelope.
type SuggestionMetadata struct {
	QueryEntityID  uuid.UUID `json:"query_entity_id"`
	Fetched        int       `json:"fetched"`
	FiltersApplied []string  `json:"filters_applied"`
	FinalCount     int       `json:"final_count"`
	ElapsedMs      int64     `json:"elapsed_ms"`
}

// SuggestionResult is the ranked suggestion list plus retrieval metadata.
type SuggestionResult struct {
	Suggestions []models.Suggestion `json:"suggestions"`
	Metadata    SuggestionMetadata  `json:"metadata"`
}

// SuggestionService turns vector neighbors into ranked suggestions. It
// over-fetches, hard-filters (status, existing links, and for positions a
// similarity floor), re-sorts, and truncates; filtering after retrieval can
// legitimately return fewer than TopK results.
type SuggestionService struct {
	embeddings EmbeddingsRepositoryForSuggestions
	candidates CandidatesRepositoryForSuggestions
	positions  PositionsRepositoryForSuggestions
	logs       RetrievalLogger

	fetchLimit          int
	topK                int
	similarityThreshold float64

	metrics observability.RetrievalMetrics
	logger  *slog.Logger
}

// SuggestionServiceParams configures SuggestionService. Metrics may be nil.
type SuggestionServiceParams struct {
	Embeddings EmbeddingsRepositoryForSuggestions
	Candidates CandidatesRepositoryForSuggestions
	Positions  PositionsRepositoryForSuggestions
	Logs       RetrievalLogger

	FetchLimit          int
	TopK                int
	SimilarityThreshold float64

	Metrics observability.RetrievalMetrics
	Logger  *slog.Logger
}

// NewSuggestionService creates a SuggestionService.
func NewSuggestionService(p SuggestionServiceParams) *SuggestionService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SuggestionService{
		embeddings:          p.Embeddings,
		candidates:          p.Candidates,
		positions:           p.Positions,
		logs:                p.Logs,
		fetchLimit:          p.FetchLimit,
		topK:                p.TopK,
		similarityThreshold: p.SimilarityThreshold,
		metrics:             p.Metrics,
		logger:              logger,
	}
}

// SuggestCandidatesForPosition returns the best unlinked ACTIVE candidates for
// a position. Returns ErrEmbeddingNotFound when the position is not embedded yet.
func (s *SuggestionService) SuggestCandidatesForPosition(ctx context.Context, positionID uuid.UUID) (*SuggestionResult, error) {
	start := time.Now()

	queryEmb, err := s.embeddings.GetByEntity(ctx, positionID, models.EntityTypePosition)
	if err != nil {
		//nolint:wrapcheck // ErrEmbeddingNotFound must stay matchable
		return nil, err
	}

	hits, err := s.embeddings.NearestEntities(ctx, models.EntityTypeCandidate, queryEmb.Embedding, s.fetchLimit, nil)
	if err != nil {
		return nil, err
	}

	linked, err := s.candidates.LinkedCandidateIDs(ctx, positionID)
	if err != nil {
		return nil, err
	}

	statuses, err := s.candidates.StatusByIDs(ctx, hitIDs(hits))
	if err != nil {
		return nil, err
	}

	linkedSet := idSet(linked)
	filters := []string{"status=ACTIVE", "exclude_linked"}

	var survivors []models.EntityWithScore

	for _, hit := range hits {
		if statuses[hit.EntityID] != models.CandidateStatusActive {
			continue
		}

		if _, isLinked := linkedSet[hit.EntityID]; isLinked {
			continue
		}

		survivors = append(survivors, hit)
	}

	suggestions := rankSuggestions(survivors, s.topK)
	elapsed := time.Since(start)

	s.record(ctx, models.QueryTypeCandidatesForPosition, positionID, hits, filters, len(suggestions), elapsed)

	return &SuggestionResult{
		Suggestions: suggestions,
		Metadata: SuggestionMetadata{
			QueryEntityID:  positionID,
			Fetched:        len(hits),
			FiltersApplied: filters,
			FinalCount:     len(suggestions),
			ElapsedMs:      elapsed.Milliseconds(),
		},
	}, nil
}

// SuggestPositionsForCandidate returns the best OPEN positions for a candidate.
// On top of the link/status filters it drops positions below the similarity
// threshold entirely rather than padding the result.
func (s *SuggestionService) SuggestPositionsForCandidate(ctx context.Context, candidateID uuid.UUID) (*SuggestionResult, error) {
	start := time.Now()

	queryEmb, err := s.embeddings.GetByEntity(ctx, candidateID, models.EntityTypeCandidate)
	if err != nil {
		//nolint:wrapcheck // ErrEmbeddingNotFound must stay matchable
		return nil, err
	}

	hits, err := s.embeddings.NearestEntities(ctx, models.EntityTypePosition, queryEmb.Embedding, s.fetchLimit, nil)
	if err != nil {
		return nil, err
	}

	linked, err := s.positions.LinkedPositionIDs(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	statuses, err := s.positions.StatusByIDs(ctx, hitIDs(hits))
	if err != nil {
		return nil, err
	}

	linkedSet := idSet(linked)
	filters := []string{"status=OPEN", "exclude_linked", "min_similarity"}

	var survivors []models.EntityWithScore

	for _, hit := range hits {
		if statuses[hit.EntityID] != models.PositionStatusOpen {
			continue
		}

		if _, isLinked := linkedSet[hit.EntityID]; isLinked {
			continue
		}

		if hit.Similarity < s.similarityThreshold {
			continue
		}

		survivors = append(survivors, hit)
	}

	suggestions := rankSuggestions(survivors, s.topK)
	elapsed := time.Since(start)

	s.record(ctx, models.QueryTypePositionsForCandidate, candidateID, hits, filters, len(suggestions), elapsed)

	return &SuggestionResult{
		Suggestions: suggestions,
		Metadata: SuggestionMetadata{
			QueryEntityID:  candidateID,
			Fetched:        len(hits),
			FiltersApplied: filters,
			FinalCount:     len(suggestions),
			ElapsedMs:      elapsed.Milliseconds(),
		},
	}, nil
}

// rankSuggestions re-sorts survivors by similarity descending, truncates to
// topK, and assigns dense ranks 1..N.
func rankSuggestions(survivors []models.EntityWithScore, topK int) []models.Suggestion {
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Similarity > survivors[j].Similarity
	})

	if len(survivors) > topK {
		survivors = survivors[:topK]
	}

	suggestions := make([]models.Suggestion, 0, len(survivors))
	for i, hit := range survivors {
		suggestions = append(suggestions, models.Suggestion{
			EntityID:   hit.EntityID,
			Similarity: hit.Similarity,
			Rank:       i + 1,
		})
	}

	return suggestions
}

// record writes the retrieval log and metrics. The log is written on every
// call that performed a search, zero survivors included; a write failure is
// logged but never fails the suggestion call.
func (s *SuggestionService) record(
	ctx context.Context, queryType string, queryEntityID uuid.UUID,
	hits []models.EntityWithScore, filters []string, finalCount int, elapsed time.Duration,
) {
	topK := make([]models.RetrievalHit, 0, len(hits))
	for _, hit := range hits {
		topK = append(topK, models.RetrievalHit{EntityID: hit.EntityID, Similarity: hit.Similarity})
	}

	entry := &models.RetrievalLog{
		ID:             uuid.New(),
		QueryType:      queryType,
		QueryEntityID:  queryEntityID,
		TopK:           topK,
		FiltersApplied: filters,
		FinalCount:     finalCount,
		ElapsedMs:      elapsed.Milliseconds(),
	}

	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Error("write retrieval log failed", "queryType", queryType, "queryEntityId", queryEntityID.String(), "error", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRetrieval(ctx, queryType, finalCount, elapsed)
	}
}

func hitIDs(hits []models.EntityWithScore) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.EntityID)
	}

	return ids
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}
