// Package badger is an embedded vector store for single-node deployments.
// Similarity search is a brute-force cosine scan, which is adequate for a
// catalog of a few thousand movies.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

const (
	vectorPrefix  = "vec:"
	collectionKey = "meta:collection"
)

type Store struct {
	db *badger.DB
}

type loggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*loggerAdapter)(nil)

func (l *loggerAdapter) Errorf(msg string, items ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (l *loggerAdapter) Warningf(msg string, items ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (l *loggerAdapter) Infof(msg string, items ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

func (l *loggerAdapter) Debugf(msg string, items ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(msg, items...)))
}

// Open opens the store at path. An empty path opens an in-memory store.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &loggerAdapter{logger: slog.Default().With("component", "badger")}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureReady(context.Context) error {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(collectionKey))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.WrapError(domain.ErrCollectionNotFound, "badger ensure ready", errors.New("vector collection has not been built"))
	}
	return err
}

func (s *Store) Reset(context.Context) error {
	if err := s.db.DropPrefix([]byte(vectorPrefix)); err != nil {
		return fmt.Errorf("drop vectors: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(collectionKey))
	})
}

func (s *Store) Upsert(_ context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = entry.Movie.VectorID()
		}
		value, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode vector entry: %w", err)
		}
		if err := batch.Set([]byte(vectorPrefix+entry.ID), value); err != nil {
			return fmt.Errorf("write vector entry: %w", err)
		}
	}
	if err := batch.Set([]byte(collectionKey), []byte("1")); err != nil {
		return fmt.Errorf("mark collection: %w", err)
	}
	if err := batch.Flush(); err != nil {
		return fmt.Errorf("flush vectors: %w", err)
	}
	return nil
}

type scored struct {
	id    string
	score float64
	movie domain.Movie
}

// Query returns the k entries with highest cosine similarity. Equal scores
// are ordered by id so results are stable across runs.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]domain.Movie, error) {
	if len(vector) == 0 || k <= 0 {
		return nil, nil
	}
	queryNorm := norm(vector)
	if queryNorm == 0 {
		return nil, nil
	}

	var hits []scored
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry domain.VectorEntry
			if err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				return fmt.Errorf("decode vector entry: %w", err)
			}
			if len(entry.Vector) != len(vector) {
				continue
			}
			hits = append(hits, scored{
				id:    entry.ID,
				score: cosine(vector, entry.Vector, queryNorm),
				movie: entry.Movie,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return strings.Compare(a.id, b.id)
		}
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]domain.Movie, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.movie)
	}
	return out, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(query, candidate []float32, queryNorm float64) float64 {
	candidateNorm := norm(candidate)
	if candidateNorm == 0 {
		return 0
	}
	var dot float64
	for i := range query {
		dot += float64(query[i]) * float64(candidate[i])
	}
	return dot / (queryNorm * candidateNorm)
}
