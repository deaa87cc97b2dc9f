// Package jsonfile stores the movie catalog as a single JSON array.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

const DefaultFileName = "tmdb_movies_full_credits.json"

type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Source struct {
	storage ObjectStorage
	key     string
}

func New(storage ObjectStorage, key string) *Source {
	if key == "" {
		key = DefaultFileName
	}
	return &Source{storage: storage, key: key}
}

func (s *Source) LoadMovies(ctx context.Context) ([]domain.Movie, error) {
	rc, err := s.storage.Open(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer rc.Close()

	var movies []domain.Movie
	if err := json.NewDecoder(rc).Decode(&movies); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", s.key, err)
	}
	return movies, nil
}

func (s *Source) SaveMovies(ctx context.Context, movies []domain.Movie) error {
	if movies == nil {
		movies = []domain.Movie{}
	}
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(movies); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.storage.Save(ctx, s.key, &buf); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
