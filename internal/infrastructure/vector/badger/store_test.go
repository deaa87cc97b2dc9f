package badger

import (
	"context"
	"testing"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func entry(title string, vector ...float32) domain.VectorEntry {
	movie := domain.Movie{Title: title, ReleaseDate: "2000-01-01"}
	return domain.VectorEntry{ID: movie.VectorID(), Vector: vector, Movie: movie, Text: "Title: " + title}
}

func TestStoreEnsureReadyBeforeBuild(t *testing.T) {
	store := openTestStore(t)
	if err := store.EnsureReady(context.Background()); !domain.IsKind(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected collection not found, got %v", err)
	}
	if err := store.Upsert(context.Background(), []domain.VectorEntry{entry("A", 1, 0)}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.EnsureReady(context.Background()); err != nil {
		t.Fatalf("EnsureReady() after upsert error = %v", err)
	}
}

func TestStoreQueryRanksByCosine(t *testing.T) {
	store := openTestStore(t)
	err := store.Upsert(context.Background(), []domain.VectorEntry{
		entry("East", 1, 0),
		entry("North", 0, 1),
		entry("NorthEast", 1, 1),
		entry("Mismatched", 1, 0, 0),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	movies, err := store.Query(context.Background(), []float32{2, 0.1}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(movies) != 2 || movies[0].Title != "East" || movies[1].Title != "NorthEast" {
		t.Fatalf("unexpected ranking %+v", movies)
	}
}

func TestStoreUpsertOverwritesByID(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 3; i++ {
		if err := store.Upsert(context.Background(), []domain.VectorEntry{entry("Same", 1, 0)}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	movies, err := store.Query(context.Background(), []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected one entry after repeated upserts, got %d", len(movies))
	}
}

func TestStoreResetDropsCollection(t *testing.T) {
	store := openTestStore(t)
	_ = store.Upsert(context.Background(), []domain.VectorEntry{entry("A", 1, 0)})
	if err := store.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	movies, _ := store.Query(context.Background(), []float32{1, 0}, 5)
	if len(movies) != 0 {
		t.Fatalf("expected empty store after reset, got %d", len(movies))
	}
	if err := store.EnsureReady(context.Background()); !domain.IsKind(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected collection not found after reset, got %v", err)
	}
}
