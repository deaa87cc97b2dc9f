package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

// CatalogRepository mirrors the movie catalog into a movies table so the
// API can page and export it without reading the catalog file.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS movies (
	title TEXT NOT NULL,
	release_date TEXT NOT NULL DEFAULT '',
	genres JSONB NOT NULL DEFAULT '[]'::jsonb,
	director TEXT NOT NULL DEFAULT '',
	actors JSONB NOT NULL DEFAULT '[]'::jsonb,
	production_companies JSONB NOT NULL DEFAULT '[]'::jsonb,
	rating DOUBLE PRECISION NOT NULL DEFAULT 0,
	popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
	runtime INTEGER NOT NULL DEFAULT 0,
	overview TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (title, release_date)
);

CREATE INDEX IF NOT EXISTS idx_movies_popularity ON movies(popularity DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// UpsertMovies writes all movies in one transaction and returns how many
// rows were written.
func (r *CatalogRepository) UpsertMovies(ctx context.Context, movies []domain.Movie) (int, error) {
	if len(movies) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO movies (
	title, release_date, genres, director, actors, production_companies, rating, popularity, runtime, overview, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
ON CONFLICT (title, release_date) DO UPDATE SET
	genres = EXCLUDED.genres,
	director = EXCLUDED.director,
	actors = EXCLUDED.actors,
	production_companies = EXCLUDED.production_companies,
	rating = EXCLUDED.rating,
	popularity = EXCLUDED.popularity,
	runtime = EXCLUDED.runtime,
	overview = EXCLUDED.overview,
	updated_at = now()
`)
	if err != nil {
		return 0, fmt.Errorf("prepare movie upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, movie := range movies {
		genres, err := marshalList(movie.Genres)
		if err != nil {
			return written, fmt.Errorf("marshal genres: %w", err)
		}
		actors, err := marshalList(movie.Actors)
		if err != nil {
			return written, fmt.Errorf("marshal actors: %w", err)
		}
		companies, err := marshalList(movie.ProductionCompanies)
		if err != nil {
			return written, fmt.Errorf("marshal companies: %w", err)
		}

		if _, err := stmt.ExecContext(ctx,
			movie.Title, movie.ReleaseDate, genres, movie.Director, actors, companies,
			movie.Rating, movie.Popularity, movie.Runtime, movie.Overview,
		); err != nil {
			return written, fmt.Errorf("upsert movie %q: %w", movie.Title, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert tx: %w", err)
	}
	return written, nil
}

func (r *CatalogRepository) ListMovies(ctx context.Context, offset, limit int) ([]domain.Movie, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM movies`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movies: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT title, release_date, genres, director, actors, production_companies, rating, popularity, runtime, overview
FROM movies
ORDER BY popularity DESC, title ASC, release_date ASC
OFFSET $1 LIMIT $2
`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	movies := make([]domain.Movie, 0, limit)
	for rows.Next() {
		var movie domain.Movie
		var genresRaw, actorsRaw, companiesRaw []byte
		if err := rows.Scan(
			&movie.Title, &movie.ReleaseDate, &genresRaw, &movie.Director, &actorsRaw, &companiesRaw,
			&movie.Rating, &movie.Popularity, &movie.Runtime, &movie.Overview,
		); err != nil {
			return nil, 0, fmt.Errorf("scan movie: %w", err)
		}
		if movie.Genres, err = unmarshalList(genresRaw); err != nil {
			return nil, 0, fmt.Errorf("unmarshal genres: %w", err)
		}
		if movie.Actors, err = unmarshalList(actorsRaw); err != nil {
			return nil, 0, fmt.Errorf("unmarshal actors: %w", err)
		}
		if movie.ProductionCompanies, err = unmarshalList(companiesRaw); err != nil {
			return nil, 0, fmt.Errorf("unmarshal companies: %w", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movies: %w", err)
	}
	return movies, total, nil
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func unmarshalList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
