package jsonfile

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/infrastructure/storage/localfs"
)

func TestStoreRoundTripPreservesKeyOrder(t *testing.T) {
	storage, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New() error = %v", err)
	}
	store := New(storage)

	set := domain.NewIndexSet()
	years := set.Facet(domain.FacetYear)
	for _, key := range []string{"2014", "1997", "2010"} {
		years.Add(key, domain.Movie{Title: "m" + key, ReleaseDate: key + "-01-01"})
	}
	set.Facet(domain.FacetActor).Add("tom hanks", domain.Movie{Title: "Big", ReleaseDate: "1988-06-03"})

	if err := store.Save(context.Background(), set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var order []string
	loaded.Facet(domain.FacetYear).Each(func(key string, _ []domain.Movie) bool {
		order = append(order, key)
		return true
	})
	if strings.Join(order, ",") != "2014,1997,2010" {
		t.Fatalf("year key order not preserved: %v", order)
	}
	if got := loaded.Facet(domain.FacetActor).Lookup("tom hanks"); len(got) != 1 || got[0].Title != "Big" {
		t.Fatalf("unexpected actor lookup %+v", got)
	}
}

func TestStoreLoadMissingFilesYieldsEmptyIndexes(t *testing.T) {
	storage, _ := localfs.New(t.TempDir())
	if err := storage.Save(context.Background(), FileName(domain.FacetGenre), strings.NewReader(`{"drama":[{"title":"Titanic","release_date":"1997-11-18"}]}`)); err != nil {
		t.Fatalf("seed genre index: %v", err)
	}

	loaded, err := New(storage).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Facet(domain.FacetActor).Len() != 0 {
		t.Fatalf("expected empty actor index")
	}
	if got := loaded.Facet(domain.FacetGenre).Lookup("drama"); len(got) != 1 {
		t.Fatalf("expected seeded genre entry, got %+v", got)
	}
}

func TestStoreLoadCorruptFileFails(t *testing.T) {
	storage, _ := localfs.New(t.TempDir())
	_ = storage.Save(context.Background(), FileName(domain.FacetActor), strings.NewReader(`{not json`))
	if _, err := New(storage).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}
