package ports

import (
	"context"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

// MovieSearcher is the inbound contract of the hybrid query planner.
type MovieSearcher interface {
	Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error)
}

// MovieRecommender runs search, re-ranking and reconciliation for one query.
type MovieRecommender interface {
	Recommend(ctx context.Context, query string, limit int) (*domain.RecommendationResult, error)
}

// OfferAnnotator looks up where a title can be watched.
type OfferAnnotator interface {
	Offers(ctx context.Context, title string) []domain.Offer
	// AttachOffers fills each recommendation's Offers in place.
	AttachOffers(ctx context.Context, recs []domain.Recommendation)
}

// CatalogBuilder rebuilds indexes, vectors and catalog rows from the catalog.
type CatalogBuilder interface {
	Rebuild(ctx context.Context) (*domain.BuildReport, error)
}

// CatalogExtractor pulls the catalog from the upstream movie API.
type CatalogExtractor interface {
	Extract(ctx context.Context, maxPages int) (int, error)
}

// CatalogReader is the read model for the catalog listing.
type CatalogReader interface {
	ListMovies(ctx context.Context, offset, limit int) (*domain.MoviePage, error)
}
