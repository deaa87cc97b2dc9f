package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const defaultEmbedBatchSize = 20

// CatalogBuildUseCase derives every read model from the catalog file: the
// five inverted indexes, the vector collection and, when configured, the
// catalog rows used for listing.
type CatalogBuildUseCase struct {
	source     ports.CatalogSource
	indexStore ports.IndexStore
	embedder   ports.Embedder
	vectors    ports.VectorStore
	repo       ports.CatalogRepository
	batchSize  int
}

func NewCatalogBuildUseCase(
	source ports.CatalogSource,
	indexStore ports.IndexStore,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	repo ports.CatalogRepository,
	batchSize int,
) *CatalogBuildUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	return &CatalogBuildUseCase{
		source:     source,
		indexStore: indexStore,
		embedder:   embedder,
		vectors:    vectors,
		repo:       repo,
		batchSize:  batchSize,
	}
}

func (uc *CatalogBuildUseCase) Rebuild(ctx context.Context) (*domain.BuildReport, error) {
	movies, err := uc.source.LoadMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	movies = dedupeByKey(movies)
	if len(movies) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rebuild catalog", fmt.Errorf("catalog is empty"))
	}

	indexes := BuildIndexes(movies)
	if err := uc.indexStore.Save(ctx, indexes); err != nil {
		return nil, fmt.Errorf("save indexes: %w", err)
	}
	report := &domain.BuildReport{
		Movies:    len(movies),
		IndexKeys: indexes.Stats(),
	}
	slog.Info("catalog_indexes_built", "movies", len(movies), "keys", report.IndexKeys)

	if err := uc.vectors.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset vector store: %w", err)
	}
	for start := 0; start < len(movies); start += uc.batchSize {
		end := min(start+uc.batchSize, len(movies))
		indexed, err := uc.indexBatch(ctx, movies[start:end])
		if err != nil {
			return nil, err
		}
		report.VectorsIndexed += indexed
		report.VectorsSkipped += end - start - indexed
	}
	if report.VectorsIndexed == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "rebuild catalog",
			fmt.Errorf("no vectors indexed for %d movies", report.Movies))
	}

	if uc.repo != nil {
		rows, err := uc.repo.UpsertMovies(ctx, movies)
		if err != nil {
			return nil, fmt.Errorf("persist catalog rows: %w", err)
		}
		report.RowsPersisted = rows
	}

	slog.Info("catalog_rebuilt",
		"movies", report.Movies,
		"vectors_indexed", report.VectorsIndexed,
		"vectors_skipped", report.VectorsSkipped,
		"rows_persisted", report.RowsPersisted,
	)
	return report, nil
}

// indexBatch embeds and upserts one batch. Embedding failures skip the batch;
// storage failures abort the rebuild.
func (uc *CatalogBuildUseCase) indexBatch(ctx context.Context, batch []domain.Movie) (int, error) {
	texts := make([]string, len(batch))
	for i, movie := range batch {
		texts[i] = movie.EmbeddingText()
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		slog.Warn("embed_batch_failed", "first_title", batch[0].Title, "size", len(batch), "error", err)
		return 0, nil
	}
	if len(vectors) != len(batch) {
		slog.Warn("embed_batch_size_mismatch", "expected", len(batch), "got", len(vectors))
		return 0, nil
	}

	entries := make([]domain.VectorEntry, 0, len(batch))
	for i, movie := range batch {
		if len(vectors[i]) == 0 {
			continue
		}
		entries = append(entries, domain.VectorEntry{
			ID:     movie.VectorID(),
			Vector: vectors[i],
			Movie:  movie,
			Text:   texts[i],
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := uc.vectors.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}
	return len(entries), nil
}
