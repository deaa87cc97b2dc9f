package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// CatalogListUseCase pages through the catalog. It reads from the repository
// when one is configured and from the catalog file otherwise.
type CatalogListUseCase struct {
	repo   ports.CatalogRepository
	source ports.CatalogSource
}

func NewCatalogListUseCase(repo ports.CatalogRepository, source ports.CatalogSource) *CatalogListUseCase {
	return &CatalogListUseCase{repo: repo, source: source}
}

func (uc *CatalogListUseCase) ListMovies(ctx context.Context, offset, limit int) (*domain.MoviePage, error) {
	if offset < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list movies", fmt.Errorf("offset must be >= 0"))
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	if uc.repo != nil {
		movies, total, err := uc.repo.ListMovies(ctx, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("list catalog rows: %w", err)
		}
		return &domain.MoviePage{Movies: orEmpty(movies), Total: total, Offset: offset, Limit: limit}, nil
	}

	if uc.source == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "list movies", fmt.Errorf("no catalog configured"))
	}
	all, err := uc.source.LoadMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	page := &domain.MoviePage{Movies: []domain.Movie{}, Total: len(all), Offset: offset, Limit: limit}
	if offset < len(all) {
		page.Movies = all[offset:min(offset+limit, len(all))]
	}
	return page, nil
}
