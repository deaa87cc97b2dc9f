package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const defaultResultLimit = 5

type PlannerOptions struct {
	SemanticTopK int
	DefaultLimit int
	// Pool resolves semantic clauses concurrently. Nil resolves them inline.
	Pool ports.TaskPool
}

// QueryPlanner splits a natural-language query into clauses, resolves each
// one against the inverted indexes or the vector store and intersects the
// results.
type QueryPlanner struct {
	indexes      atomic.Pointer[domain.IndexSet]
	resolver     *ClauseResolver
	pool         ports.TaskPool
	defaultLimit int
}

func NewQueryPlanner(indexes *domain.IndexSet, embedder ports.Embedder, vectors ports.VectorStore, opts PlannerOptions) *QueryPlanner {
	if indexes == nil {
		indexes = domain.NewIndexSet()
	}
	limit := opts.DefaultLimit
	if limit <= 0 {
		limit = defaultResultLimit
	}
	p := &QueryPlanner{
		resolver:     NewClauseResolver(embedder, vectors, opts.SemanticTopK),
		pool:         opts.Pool,
		defaultLimit: limit,
	}
	p.indexes.Store(indexes)
	return p
}

// ReplaceIndexes swaps the index snapshot. Queries already running keep the
// snapshot they started with.
func (p *QueryPlanner) ReplaceIndexes(indexes *domain.IndexSet) {
	if indexes == nil {
		return
	}
	p.indexes.Store(indexes)
}

func (p *QueryPlanner) Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error) {
	started := time.Now()
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = p.defaultLimit
	}

	clauses := PlanClauses(query)
	result := &domain.SearchResult{
		Query:   query,
		Movies:  []domain.Movie{},
		Clauses: make([]domain.ClauseTrace, len(clauses)),
	}
	defer func() {
		result.SetDuration(time.Since(started))
		slog.Debug("query_planned",
			"query", query,
			"clauses", len(result.Clauses),
			"merge", result.Merge,
			"movies", len(result.Movies),
			"took_ms", result.TookMillis,
		)
	}()

	snapshot := p.indexes.Load()
	var (
		structured [][]domain.Movie
		semantic   []int
	)
	for i, clause := range clauses {
		result.Clauses[i] = domain.ClauseTrace{Clause: clause}
		if !clause.Kind.Structured() {
			semantic = append(semantic, i)
			continue
		}
		movies := p.resolver.ResolveStructured(snapshot, clause)
		result.Clauses[i].Matches = len(movies)
		if len(movies) == 0 {
			aborted := clause
			result.AbortedBy = &aborted
			slog.Info("query_clause_empty", "query", query, "clause", clause.Text, "kind", clause.Kind)
			return result, nil
		}
		structured = append(structured, movies)
	}

	if len(semantic) == 0 {
		result.Merge = domain.MergeStructured
		result.Movies = orEmpty(truncateMovies(intersectByKey(structured), limit))
		return result, nil
	}

	semanticSets, err := p.resolveSemantic(ctx, clauses, semantic)
	if err != nil {
		return nil, err
	}
	for n, i := range semantic {
		result.Clauses[i].Matches = len(semanticSets[n])
		if len(semanticSets[n]) == 0 {
			aborted := clauses[i]
			result.AbortedBy = &aborted
			slog.Info("query_clause_empty", "query", query, "clause", aborted.Text, "kind", aborted.Kind)
			return result, nil
		}
	}

	// Semantic clauses take precedence: structured sets only gate the query.
	result.Merge = domain.MergeSemantic
	result.Movies = orEmpty(truncateMovies(intersectByKey(semanticSets), limit))
	return result, nil
}

func (p *QueryPlanner) resolveSemantic(ctx context.Context, clauses []domain.Clause, positions []int) ([][]domain.Movie, error) {
	sets := make([][]domain.Movie, len(positions))
	errs := make([]error, len(positions))

	var wg sync.WaitGroup
	for n, i := range positions {
		clause := clauses[i]
		task := func() {
			defer wg.Done()
			sets[n], errs[n] = p.resolver.ResolveSemantic(ctx, clause)
		}
		wg.Add(1)
		if p.pool == nil || len(positions) == 1 {
			task()
			continue
		}
		if err := p.pool.Submit(task); err != nil {
			slog.Warn("semantic_clause_pool_rejected", "clause", clause.Text, "error", err)
			task()
		}
	}
	wg.Wait()

	for n, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("resolve semantic clause %q: %w", clauses[positions[n]].Text, err)
		}
	}
	return sets, nil
}

func orEmpty(movies []domain.Movie) []domain.Movie {
	if movies == nil {
		return []domain.Movie{}
	}
	return movies
}
