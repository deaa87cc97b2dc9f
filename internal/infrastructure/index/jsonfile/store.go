// Package jsonfile persists the inverted indexes as one JSON object per facet.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

// ObjectStorage is the file layer the store reads and writes through.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Store struct {
	storage ObjectStorage
}

func New(storage ObjectStorage) *Store {
	return &Store{storage: storage}
}

// FileName is the storage key of a facet's index file.
func FileName(facet domain.Facet) string {
	return string(facet) + "_index.json"
}

// Load reads all five index files. A missing file yields an empty index for
// that facet; a corrupt file is an error.
func (s *Store) Load(ctx context.Context) (*domain.IndexSet, error) {
	set := domain.NewIndexSet()
	for _, facet := range domain.Facets {
		idx, err := s.loadFacet(ctx, facet)
		if err != nil {
			return nil, err
		}
		set.Put(facet, idx)
	}
	return set, nil
}

func (s *Store) loadFacet(ctx context.Context, facet domain.Facet) (*domain.InvertedIndex, error) {
	rc, err := s.storage.Open(ctx, FileName(facet))
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			slog.Warn("index_file_missing", "facet", facet, "file", FileName(facet))
			return domain.NewInvertedIndex(), nil
		}
		return nil, fmt.Errorf("open %s index: %w", facet, err)
	}
	defer rc.Close()

	idx := domain.NewInvertedIndex()
	if err := json.NewDecoder(rc).Decode(idx); err != nil {
		return nil, fmt.Errorf("decode %s index: %w", facet, err)
	}
	return idx, nil
}

func (s *Store) Save(ctx context.Context, set *domain.IndexSet) error {
	for _, facet := range domain.Facets {
		var buf bytes.Buffer
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(set.Facet(facet)); err != nil {
			return fmt.Errorf("encode %s index: %w", facet, err)
		}
		if err := s.storage.Save(ctx, FileName(facet), &buf); err != nil {
			return fmt.Errorf("save %s index: %w", facet, err)
		}
	}
	return nil
}
