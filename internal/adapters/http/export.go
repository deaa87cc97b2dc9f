package httpadapter

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

const (
	exportSheet    = "Movies"
	exportPageSize = 500
)

var exportHeader = []any{
	"Title", "Release Date", "Genres", "Director", "Actors", "Production Companies",
	"Rating", "Popularity", "Runtime", "Overview",
}

func (rt *Router) exportMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := collectCatalog(r.Context(), rt.catalog)
	if err != nil {
		rt.writeError(w, r, "export movies", err)
		return
	}

	book, err := buildWorkbook(movies)
	if err != nil {
		rt.writeError(w, r, "export movies", err)
		return
	}
	defer book.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="movies.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_ = book.Write(w)
}

func collectCatalog(ctx context.Context, catalog ports.CatalogReader) ([]domain.Movie, error) {
	var movies []domain.Movie
	for offset := 0; ; offset += exportPageSize {
		page, err := catalog.ListMovies(ctx, offset, exportPageSize)
		if err != nil {
			return nil, err
		}
		movies = append(movies, page.Movies...)
		if len(page.Movies) == 0 || offset+len(page.Movies) >= page.Total {
			return movies, nil
		}
	}
}

func buildWorkbook(movies []domain.Movie) (*excelize.File, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := book.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		_ = book.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, movie := range movies {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = book.Close()
			return nil, fmt.Errorf("cell name: %w", err)
		}
		row := []any{
			movie.Title,
			movie.ReleaseDate,
			strings.Join(movie.Genres, ", "),
			movie.Director,
			strings.Join(movie.Actors, ", "),
			strings.Join(movie.ProductionCompanies, ", "),
			movie.Rating,
			movie.Popularity,
			movie.Runtime,
			movie.Overview,
		}
		if err := book.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = book.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return book, nil
}
