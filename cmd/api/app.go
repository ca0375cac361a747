package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"golang.org/x/time/rate"

	"github.com/helliohr/recruit/internal/api/handlers"
	"github.com/helliohr/recruit/internal/api/middleware"
	"github.com/helliohr/recruit/internal/config"
	"github.com/helliohr/recruit/internal/docparse"
	"github.com/helliohr/recruit/internal/embeddings"
	"github.com/helliohr/recruit/internal/jobs"
	"github.com/helliohr/recruit/internal/llm"
	"github.com/helliohr/recruit/internal/observability"
	"github.com/helliohr/recruit/internal/repository"
	"github.com/helliohr/recruit/internal/service"
)

const (
	explanationCacheEntries = 1024
	embeddingJobTimeout     = 60 * time.Second
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg           *config.Config
	db            *pgxpool.Pool
	server        *http.Server
	river         *river.Client[pgx.Tx]
	meterProvider observability.MeterProviderShutdown
	logger        *slog.Logger
}

// llmAPIKey picks the credential matching the configured chat provider.
func llmAPIKey(cfg *config.Config) string {
	if cfg.LLMProvider == llm.ProviderOpenAI {
		return cfg.OpenAIAPIKey
	}

	return ""
}

// embeddingAPIKey picks the credential matching the configured embedding provider.
func embeddingAPIKey(cfg *config.Config) string {
	switch cfg.EmbeddingProvider {
	case embeddings.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	case embeddings.ProviderGoogle:
		return cfg.GoogleAPIKey
	default:
		return ""
	}
}

// NewApp builds and wires all components. It does not start the HTTP server or
// River; call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool, logger *slog.Logger) (*App, error) {
	meterProvider, metricsHandler, apiMetrics, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
	if err != nil {
		return nil, fmt.Errorf("create meter provider: %w", err)
	}

	meter := observability.Meter(meterProvider)

	llmMetrics, err := observability.NewLLMMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create llm metrics: %w", err)
	}

	embeddingMetrics, err := observability.NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create embedding metrics: %w", err)
	}

	cacheMetrics, err := observability.NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create cache metrics: %w", err)
	}

	retrievalMetrics, err := observability.NewRetrievalMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("create retrieval metrics: %w", err)
	}

	documentsRepo := repository.NewDocumentsRepository(db)
	candidatesRepo := repository.NewCandidatesRepository(db)
	positionsRepo := repository.NewPositionsRepository(db)
	embeddingsRepo := repository.NewEmbeddingsRepository(db)
	explanationsRepo := repository.NewExplanationsRepository(db)
	retrievalLogsRepo := repository.NewRetrievalLogsRepository(db)
	llmMetricsRepo := repository.NewLLMMetricsRepository(db)

	chatClient, err := llm.NewClient(cfg.LLMProvider, llmAPIKey(cfg), cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	meteredLLM := service.NewMeteredLLM(chatClient, llmMetricsRepo, llmMetrics, logger)

	embeddingClient, err := embeddings.NewClient(ctx,
		cfg.EmbeddingProvider, embeddingAPIKey(cfg), cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	pipeline := service.NewEmbeddingPipeline(service.EmbeddingPipelineParams{
		Client:     embeddingClient,
		Embeddings: embeddingsRepo,
		Candidates: candidatesRepo,
		Positions:  positionsRepo,
		Enabled:    cfg.EmbeddingsEnabled,
		Version:    cfg.EmbeddingVersion,
		Metrics:    embeddingMetrics,
		Logger:     logger,
	})

	riverClient, err := newRiverClient(cfg, db, pipeline, embeddingMetrics, logger)
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	enqueuer := jobs.NewEntityEnqueuer(jobs.NewRiverJobInserter(riverClient), embeddingMetrics, logger)

	extractionService := service.NewExtractionService(service.ExtractionServiceParams{
		Documents:         documentsRepo,
		Candidates:        candidatesRepo,
		Positions:         positionsRepo,
		Parser:            docparse.NewParser(),
		LLM:               meteredLLM,
		Enqueuer:          enqueuer,
		FreshnessWindow:   cfg.ExtractionFreshnessWindow,
		PromptVersion:     cfg.ExtractionPromptVersion,
		EmbeddingsEnabled: cfg.EmbeddingsEnabled,
		Logger:            logger,
	})

	suggestionService := service.NewSuggestionService(service.SuggestionServiceParams{
		Embeddings:          embeddingsRepo,
		Candidates:          candidatesRepo,
		Positions:           positionsRepo,
		Logs:                retrievalLogsRepo,
		FetchLimit:          cfg.SuggestionFetchLimit,
		TopK:                cfg.SuggestionTopK,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Metrics:             retrievalMetrics,
		Logger:              logger,
	})

	memCache, err := service.NewExplanationMemCache(explanationCacheEntries)
	if err != nil {
		return nil, fmt.Errorf("create explanation cache: %w", err)
	}

	explanationService := service.NewExplanationService(service.ExplanationServiceParams{
		LLM:           meteredLLM,
		Explanations:  explanationsRepo,
		Embeddings:    embeddingsRepo,
		Candidates:    candidatesRepo,
		Positions:     positionsRepo,
		MemCache:      memCache,
		CacheMetrics:  cacheMetrics,
		PromptVersion: cfg.ExplanationPromptVersion,
		Timeout:       cfg.ExplanationTimeout,
		Logger:        logger,
	})

	sqlRagService := service.NewSQLRagService(service.SQLRagServiceParams{
		LLM:      meteredLLM,
		Executor: service.NewReadOnlyExecutor(db),
		MaxRows:  cfg.SQLMaxRows,
		Logger:   logger,
	})

	metricsService := service.NewMetricsService(llmMetricsRepo)

	server := newHTTPServer(cfg, apiMetrics, metricsHandler, routeHandlers{
		health:       handlers.NewHealthHandler(db),
		documents:    handlers.NewDocumentsHandler(extractionService, logger),
		suggestions:  handlers.NewSuggestionsHandler(suggestionService, logger),
		explanations: handlers.NewExplanationsHandler(explanationService, logger),
		ask:          handlers.NewAskHandler(sqlRagService, logger),
		metrics:      handlers.NewMetricsHandler(metricsService, logger),
	})

	return &App{
		cfg:           cfg,
		db:            db,
		server:        server,
		river:         riverClient,
		meterProvider: meterProvider,
		logger:        logger,
	}, nil
}

// newRiverClient registers the embedding worker and builds the queue client.
func newRiverClient(
	cfg *config.Config,
	db *pgxpool.Pool,
	pipeline *service.EmbeddingPipeline,
	embeddingMetrics observability.EmbeddingMetrics,
	logger *slog.Logger,
) (*river.Client[pgx.Tx], error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.NewEmbeddingWorker(jobs.EmbeddingWorkerDeps{
		Embedder:    pipeline,
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1),
		Metrics:     embeddingMetrics,
		Logger:      logger,
	}))

	//nolint:wrapcheck // caller wraps with context
	return river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.EmbeddingWorkers},
		},
		Workers:      workers,
		ErrorHandler: &jobs.ErrorHandler{Logger: logger},
		JobTimeout:   embeddingJobTimeout,
		MaxAttempts:  cfg.EmbeddingMaxAttempts,
	})
}

type routeHandlers struct {
	health       *handlers.HealthHandler
	documents    *handlers.DocumentsHandler
	suggestions  *handlers.SuggestionsHandler
	explanations *handlers.ExplanationsHandler
	ask          *handlers.AskHandler
	metrics      *handlers.MetricsHandler
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and
// /metrics, API key on /v1/). Handler chain outermost-first:
// RequestID -> Metrics -> Logging -> mux; protected routes additionally pass
// Auth -> MaxBody.
func newHTTPServer(
	cfg *config.Config,
	apiMetrics observability.APIMetrics,
	metricsHandler http.Handler,
	h routeHandlers,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", h.health.Check)
	public.Handle("GET /metrics", metricsHandler)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/documents/{id}/process", h.documents.Process)
	protected.HandleFunc("GET /v1/positions/{id}/suggestions", h.suggestions.CandidatesForPosition)
	protected.HandleFunc("GET /v1/candidates/{id}/suggestions", h.suggestions.PositionsForCandidate)
	protected.HandleFunc("POST /v1/matches/explain", h.explanations.Explain)
	protected.HandleFunc("POST /v1/ask", h.ask.Ask)
	protected.HandleFunc("GET /v1/metrics/summary", h.metrics.Summary)

	var protectedHandler http.Handler = protected
	protectedHandler = middleware.MaxBody(cfg.MaxRequestBodyBytes)(protectedHandler)
	protectedHandler = middleware.Auth(cfg.APIKey)(protectedHandler)

	mux := http.NewServeMux()
	mux.Handle("/v1/", protectedHandler)
	mux.Handle("/", public)

	handler := middleware.Logging(mux)
	handler = middleware.Metrics(apiMetrics)(handler)
	handler = middleware.RequestID(handler)

	const (
		readTimeout  = 15 * time.Second
		writeTimeout = 30 * time.Second
		idleTimeout  = 60 * time.Second
	)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts River and the HTTP server, then blocks until ctx is cancelled or
// a component fails. Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	riverCtx, cancelRiver := context.WithCancel(ctx)
	defer cancelRiver()

	go func() {
		if err := a.river.Start(riverCtx); err != nil && !errors.Is(err, context.Canceled) {
			select {
			case runErr <- fmt.Errorf("river: %w", err):
			default:
			}
		}
	}()

	go func() {
		a.logger.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case runErr <- fmt.Errorf("server: %w", err):
			default:
			}
		}
	}()

	select {
	case err := <-runErr:
		cancelRiver()

		return err
	case <-ctx.Done():
		cancelRiver()

		return nil
	}
}

// Shutdown stops the server, River, and the meter provider in order. Call
// after Run returns.
func (a *App) Shutdown(ctx context.Context) error {
	var first error

	if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		first = fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.river.Stop(ctx); err != nil && first == nil {
		first = fmt.Errorf("river stop: %w", err)
	}

	if err := a.meterProvider.Shutdown(ctx); err != nil {
		if first == nil {
			first = fmt.Errorf("meter provider shutdown: %w", err)
		} else {
			a.logger.Error("meter provider shutdown", "error", err)
		}
	}

	return first
}
