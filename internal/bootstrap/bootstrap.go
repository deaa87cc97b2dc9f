package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/movie-recommender/internal/config"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
	"github.com/kirillkom/movie-recommender/internal/core/usecase"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/catalog/jsonfile"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/catalog/tmdb"
	indexfile "github.com/kirillkom/movie-recommender/internal/infrastructure/index/jsonfile"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/llm/openai"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/queue/nats"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/resilience"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/vector/badger"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/websearch/serpapi"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/workerpool"
)

type App struct {
	Config   config.Config
	Executor *resilience.Executor

	// Queue is nil when NATS_URL is empty.
	Queue ports.MessageQueue

	Planner     *usecase.QueryPlanner
	RecommendUC *usecase.RecommendUseCase
	OfferUC     *usecase.OfferUseCase
	BuildUC     *usecase.CatalogBuildUseCase
	ExtractUC   *usecase.CatalogExtractUseCase
	ListUC      *usecase.CatalogListUseCase

	indexStore ports.IndexStore
	vectors    ports.VectorStore
	closers    []func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	ready := false
	defer func() {
		if !ready {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		BreakerEnabled:      cfg.BreakerEnabled,
		RetryOverrides: map[string]resilience.RetryOverride{
			// TMDB throttles bursts with 429; give it more room than local services.
			"tmdb": {MaxAttempts: cfg.RetryMaxAttempts + 2, InitialBackoff: 500 * time.Millisecond},
		},
	})
	app.Executor = executor

	storage, err := localfs.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	catalogSource := jsonfile.New(storage, cfg.CatalogPath)
	app.indexStore = indexfile.New(storage)

	var repo ports.CatalogRepository
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closers = append(app.closers, func() { _ = db.Close() })
		catalogRepo := postgres.NewCatalogRepository(db)
		if err := catalogRepo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		repo = catalogRepo
	}

	if strings.TrimSpace(cfg.NATSURL) != "" {
		queue, err := nats.New(cfg.NATSURL, nats.Options{
			RebuildSubject:     cfg.NATSRebuildSubject,
			RebuiltSubject:     cfg.NATSRebuiltSubject,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectors, err := newVectorStore(cfg, executor)
	if err != nil {
		return nil, err
	}
	if closer, ok := vectors.(interface{ Close() error }); ok {
		app.closers = append(app.closers, func() { _ = closer.Close() })
	}
	app.vectors = vectors

	reranker, err := newReranker(cfg, ollamaClient)
	if err != nil {
		return nil, err
	}

	searchPool, err := workerpool.New(cfg.SearchWorkers)
	if err != nil {
		return nil, fmt.Errorf("init search pool: %w", err)
	}
	app.closers = append(app.closers, searchPool.Release)
	offerPool, err := workerpool.New(cfg.OfferWorkers)
	if err != nil {
		return nil, fmt.Errorf("init offer pool: %w", err)
	}
	app.closers = append(app.closers, offerPool.Release)

	var webSearcher ports.WebSearcher
	if strings.TrimSpace(cfg.SerpAPIKey) != "" {
		webSearcher = serpapi.New(cfg.SerpAPIURL, cfg.SerpAPIKey, cfg.OfferCountry)
	} else {
		slog.Info("offer_search_disabled", "reason", "SERPAPI_KEY is empty")
	}

	tmdbClient := tmdb.New(tmdb.Config{
		BaseURL:           cfg.TMDBAPIURL,
		Token:             cfg.TMDBAPIToken,
		RequestsPerSecond: cfg.TMDBRateRPS,
		Burst:             cfg.TMDBRateBurst,
	}, executor)

	app.Planner = usecase.NewQueryPlanner(nil, embedder, vectors, usecase.PlannerOptions{
		SemanticTopK: cfg.SemanticTopK,
		DefaultLimit: cfg.SearchResultLimit,
		Pool:         searchPool,
	})
	app.RecommendUC = usecase.NewRecommendUseCase(app.Planner, reranker, cfg.RerankTimeout)
	app.OfferUC = usecase.NewOfferUseCase(webSearcher, offerPool, cfg.OfferTimeout)
	app.BuildUC = usecase.NewCatalogBuildUseCase(catalogSource, app.indexStore, embedder, vectors, repo, cfg.EmbedBatchSize)
	app.ExtractUC = usecase.NewCatalogExtractUseCase(tmdbClient, catalogSource)
	app.ListUC = usecase.NewCatalogListUseCase(repo, catalogSource)

	slog.Info("bootstrap_ready",
		"vector_backend", cfg.VectorBackend,
		"rerank_provider", cfg.RerankProvider,
		"postgres", repo != nil,
		"nats", app.Queue != nil,
		"offers", webSearcher != nil,
	)
	ready = true
	return app, nil
}

// LoadQueryEngine checks the vector collection and loads the index snapshot.
// A missing collection is fatal for query serving; missing index files are not.
func (a *App) LoadQueryEngine(ctx context.Context) error {
	if err := a.vectors.EnsureReady(ctx); err != nil {
		return fmt.Errorf("vector collection not ready: %w", err)
	}
	return a.ReloadIndexes(ctx)
}

// ReloadIndexes swaps in a freshly loaded index snapshot.
func (a *App) ReloadIndexes(ctx context.Context) error {
	indexes, err := a.indexStore.Load(ctx)
	if err != nil {
		return fmt.Errorf("load indexes: %w", err)
	}
	a.Planner.ReplaceIndexes(indexes)
	slog.Info("indexes_loaded", "keys", indexes.Stats())
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// EmbeddedVectorBackend reports whether vectors live in a Badger directory
// that only one process can open at a time.
func EmbeddedVectorBackend(cfg config.Config) bool {
	return strings.EqualFold(strings.TrimSpace(cfg.VectorBackend), "badger")
}

func newVectorStore(cfg config.Config, executor *resilience.Executor) (ports.VectorStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.VectorBackend)) {
	case "", "qdrant":
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, executor), nil
	case "badger":
		store, err := badger.Open(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open badger vector store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}

func newReranker(cfg config.Config, client *ollama.Client) (ports.Reranker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.RerankProvider)) {
	case "", "ollama":
		return ollama.NewReranker(client), nil
	case "openai":
		reranker, err := openai.NewReranker(openai.Config{
			BaseURL:     cfg.OpenAIBaseURL,
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.RerankTemperature,
			MaxTokens:   cfg.RerankMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai reranker: %w", err)
		}
		return reranker, nil
	default:
		return nil, errors.New("unknown RERANK_PROVIDER " + cfg.RerankProvider)
	}
}
