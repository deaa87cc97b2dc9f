package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

var (
	inception = domain.Movie{
		Title:               "Inception",
		Genres:              []string{"Action", "Science Fiction"},
		Director:            "Christopher Nolan",
		Actors:              []string{"Leonardo DiCaprio", "Joseph Gordon-Levitt"},
		ProductionCompanies: []string{"Warner Bros. Pictures", "Legendary Pictures"},
		ReleaseDate:         "2010-07-15",
		Rating:              8.4,
	}
	interstellar = domain.Movie{
		Title:               "Interstellar",
		Genres:              []string{"Adventure", "Drama", "Science Fiction"},
		Director:            "Christopher Nolan",
		Actors:              []string{"Matthew McConaughey", "Anne Hathaway"},
		ProductionCompanies: []string{"Paramount Pictures", "Warner Bros. Pictures"},
		ReleaseDate:         "2014-11-05",
		Rating:              8.4,
	}
	wolfOfWallStreet = domain.Movie{
		Title:               "The Wolf of Wall Street",
		Genres:              []string{"Crime", "Drama", "Comedy"},
		Director:            "Martin Scorsese",
		Actors:              []string{"Leonardo DiCaprio", "Jonah Hill"},
		ProductionCompanies: []string{"Paramount Pictures"},
		ReleaseDate:         "2013-12-25",
		Rating:              8.0,
	}
	titanic = domain.Movie{
		Title:               "Titanic",
		Genres:              []string{"Drama", "Romance"},
		Director:            "James Cameron",
		Actors:              []string{"Leonardo DiCaprio", "Kate Winslet"},
		ProductionCompanies: []string{"Paramount Pictures", "20th Century Fox"},
		ReleaseDate:         "1997-11-18",
		Rating:              7.9,
	}
	oppenheimer = domain.Movie{
		Title:               "Oppenheimer",
		Genres:              []string{"Drama", "History"},
		Director:            "Christopher Nolan",
		Actors:              []string{"Cillian Murphy", "Emily Blunt"},
		ProductionCompanies: []string{"Universal Pictures"},
		ReleaseDate:         "2023-07-19",
		Rating:              8.1,
	}
)

func testCatalog() []domain.Movie {
	return []domain.Movie{inception, interstellar, wolfOfWallStreet, titanic, oppenheimer}
}

func titles(movies []domain.Movie) []string {
	out := make([]string, 0, len(movies))
	for _, movie := range movies {
		out = append(out, movie.Title)
	}
	return out
}

func sameTitles(got []domain.Movie, want ...string) bool {
	names := titles(got)
	if len(names) != len(want) {
		return false
	}
	for i := range names {
		if names[i] != want[i] {
			return false
		}
	}
	return true
}

// semanticFake plays both embedder and vector store: each embedded query text
// gets a vector holding its position, and Query returns the hits registered
// for that text.
type semanticFake struct {
	mu       sync.Mutex
	hits     map[string][]domain.Movie
	texts    []string
	embedErr error
	queryErr error
	topK     int
}

func (f *semanticFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *semanticFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.texts = append(f.texts, text)
	return []float32{float32(len(f.texts) - 1)}, nil
}

func (f *semanticFake) EnsureReady(context.Context) error { return nil }
func (f *semanticFake) Reset(context.Context) error       { return nil }
func (f *semanticFake) Upsert(context.Context, []domain.VectorEntry) error {
	return nil
}

func (f *semanticFake) Query(_ context.Context, vector []float32, k int) ([]domain.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.topK = k
	text := f.texts[int(vector[0])]
	hits := f.hits[text]
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (f *semanticFake) embedded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type goroutinePool struct {
	reject bool
}

func (p goroutinePool) Submit(task func()) error {
	if p.reject {
		return errors.New("pool overloaded")
	}
	go task()
	return nil
}
