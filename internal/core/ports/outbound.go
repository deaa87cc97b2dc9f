package ports

import (
	"context"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

// IndexStore persists the five inverted indexes.
type IndexStore interface {
	Load(ctx context.Context) (*domain.IndexSet, error)
	Save(ctx context.Context, set *domain.IndexSet) error
}

// CatalogSource reads and writes the raw catalog.
type CatalogSource interface {
	LoadMovies(ctx context.Context) ([]domain.Movie, error)
	SaveMovies(ctx context.Context, movies []domain.Movie) error
}

// MovieFetcher pulls movies from the upstream catalog API.
type MovieFetcher interface {
	FetchMovies(ctx context.Context, maxPages int) ([]domain.Movie, error)
}

// CatalogRepository stores catalog rows for listing and export.
type CatalogRepository interface {
	UpsertMovies(ctx context.Context, movies []domain.Movie) (int, error)
	ListMovies(ctx context.Context, offset, limit int) ([]domain.Movie, int, error)
}

// Embedder builds vectors for movie texts and query clauses. The same
// implementation must be used for indexing and querying.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the persistent collection used for semantic clauses.
type VectorStore interface {
	// EnsureReady fails with domain.ErrCollectionNotFound when the collection is absent.
	EnsureReady(ctx context.Context) error
	Reset(ctx context.Context) error
	Upsert(ctx context.Context, entries []domain.VectorEntry) error
	Query(ctx context.Context, vector []float32, k int) ([]domain.Movie, error)
}

// Reranker asks a generative model to pick and explain recommendations. It
// returns the raw model payload; parsing happens in the reconciler.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.Movie) (string, error)
}

// WebSearcher returns ranked web snippets for a search string.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]domain.SearchSnippet, error)
}

// MessageQueue carries catalog rebuild requests and completion notices.
type MessageQueue interface {
	PublishCatalogRebuild(ctx context.Context, requestID string) error
	SubscribeCatalogRebuild(ctx context.Context, handler func(context.Context, string) error) error
	PublishCatalogRebuilt(ctx context.Context, requestID string) error
	SubscribeCatalogRebuilt(ctx context.Context, handler func(context.Context, string) error) error
}

// TaskPool runs independent tasks concurrently.
type TaskPool interface {
	Submit(task func()) error
}
