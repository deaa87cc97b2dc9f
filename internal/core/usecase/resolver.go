package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const defaultSemanticTopK = 5

// ClauseResolver turns a classified clause into the set of movies it selects.
type ClauseResolver struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
	topK     int
}

func NewClauseResolver(embedder ports.Embedder, vectors ports.VectorStore, topK int) *ClauseResolver {
	if topK <= 0 {
		topK = defaultSemanticTopK
	}
	return &ClauseResolver{
		embedder: embedder,
		vectors:  vectors,
		topK:     topK,
	}
}

// ResolveStructured looks a structured clause up in the index snapshot. A
// missing key yields an empty result, never an error.
func (r *ClauseResolver) ResolveStructured(indexes *domain.IndexSet, clause domain.Clause) []domain.Movie {
	switch clause.Kind {
	case domain.ClauseActor:
		return dedupeByKey(indexes.Facet(domain.FacetActor).Lookup(clause.Value))
	case domain.ClauseDirector:
		return dedupeByKey(indexes.Facet(domain.FacetDirector).Lookup(clause.Value))
	case domain.ClauseCompany:
		return dedupeByKey(indexes.Facet(domain.FacetCompany).Lookup(clause.Value))
	case domain.ClauseGenre:
		return dedupeByKey(indexes.Facet(domain.FacetGenre).Lookup(clause.Value))
	case domain.ClauseYear:
		return dedupeByKey(resolveYear(indexes.Facet(domain.FacetYear), clause))
	default:
		return nil
	}
}

func resolveYear(index *domain.InvertedIndex, clause domain.Clause) []domain.Movie {
	var (
		out     []domain.Movie
		skipped int
	)
	index.Each(func(key string, movies []domain.Movie) bool {
		year, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			skipped++
			return true
		}
		if clause.Relation.Matches(year, clause.Year) {
			out = append(out, movies...)
		}
		return true
	})
	if skipped > 0 {
		slog.Debug("year_keys_skipped", "clause", clause.Text, "skipped", skipped)
	}
	return out
}

// ResolveSemantic embeds the clause text and returns its nearest neighbours.
func (r *ClauseResolver) ResolveSemantic(ctx context.Context, clause domain.Clause) ([]domain.Movie, error) {
	vector, err := r.embedder.EmbedQuery(ctx, clause.Value)
	if err != nil {
		return nil, fmt.Errorf("embed clause: %w", err)
	}
	if len(vector) == 0 {
		return nil, nil
	}
	movies, err := r.vectors.Query(ctx, vector, r.topK)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}
	return dedupeByKey(movies), nil
}
