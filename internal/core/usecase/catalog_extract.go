package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

type CatalogExtractUseCase struct {
	fetcher ports.MovieFetcher
	source  ports.CatalogSource
}

func NewCatalogExtractUseCase(fetcher ports.MovieFetcher, source ports.CatalogSource) *CatalogExtractUseCase {
	return &CatalogExtractUseCase{fetcher: fetcher, source: source}
}

// Extract pulls the upstream catalog and overwrites the local catalog file.
func (uc *CatalogExtractUseCase) Extract(ctx context.Context, maxPages int) (int, error) {
	movies, err := uc.fetcher.FetchMovies(ctx, maxPages)
	if err != nil {
		return 0, fmt.Errorf("fetch movies: %w", err)
	}
	movies = dedupeByKey(movies)
	if err := uc.source.SaveMovies(ctx, movies); err != nil {
		return 0, fmt.Errorf("save catalog: %w", err)
	}
	slog.Info("catalog_extracted", "movies", len(movies), "max_pages", maxPages)
	return len(movies), nil
}
