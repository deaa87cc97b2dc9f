package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &CatalogRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS movies").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertMoviesWritesEveryRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	movies := []domain.Movie{
		{Title: "Inception", ReleaseDate: "2010-07-15", Genres: []string{"Action"}, Director: "Christopher Nolan"},
		{Title: "Titanic", ReleaseDate: "1997-11-18"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO movies")
	prep.ExpectExec().
		WithArgs("Inception", "2010-07-15", []byte(`["Action"]`), "Christopher Nolan", []byte(`[]`), []byte(`[]`), 0.0, 0.0, 0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("Titanic", "1997-11-18", []byte(`[]`), "", []byte(`[]`), []byte(`[]`), 0.0, 0.0, 0, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	written, err := repo.UpsertMovies(context.Background(), movies)
	if err != nil {
		t.Fatalf("UpsertMovies() error = %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 rows written, got %d", written)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertMoviesRollsBackOnFailure(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO movies")
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	if _, err := repo.UpsertMovies(context.Background(), []domain.Movie{{Title: "Broken"}}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertMoviesEmptyIsNoop(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	written, err := repo.UpsertMovies(context.Background(), nil)
	if err != nil || written != 0 {
		t.Fatalf("UpsertMovies(nil) = %d, %v", written, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListMoviesReturnsPageAndTotal(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT title, release_date").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"title", "release_date", "genres", "director", "actors", "production_companies",
			"rating", "popularity", "runtime", "overview",
		}).
			AddRow("Inception", "2010-07-15", []byte(`["Action","Science Fiction"]`), "Christopher Nolan",
				[]byte(`["Leonardo DiCaprio"]`), []byte(`["Legendary Pictures"]`), 8.4, 90.1, 148, "Dreams").
			AddRow("Titanic", "1997-11-18", []byte(`[]`), "James Cameron", nil, []byte(`[]`), 7.9, 80.0, 194, ""))

	movies, total, err := repo.ListMovies(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("ListMovies() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(movies) != 2 || movies[0].Title != "Inception" || movies[1].Title != "Titanic" {
		t.Fatalf("unexpected movies: %+v", movies)
	}
	if len(movies[0].Genres) != 2 || movies[0].Actors[0] != "Leonardo DiCaprio" {
		t.Fatalf("lists not decoded: %+v", movies[0])
	}
	if movies[1].Actors == nil || len(movies[1].Actors) != 0 {
		t.Fatalf("NULL list should decode to empty slice, got %#v", movies[1].Actors)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
