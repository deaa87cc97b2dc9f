package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kirillkom/movie-recommender/internal/core/ports"
)

// Services is what the commands run against. PrepareQueries loads the index
// snapshot and checks the vector collection; it runs before any command that
// answers queries.
type Services struct {
	Extractor      ports.CatalogExtractor
	Builder        ports.CatalogBuilder
	Searcher       ports.MovieSearcher
	Recommender    ports.MovieRecommender
	Offers         ports.OfferAnnotator
	ServeMCP       func(ctx context.Context) error
	PrepareQueries func(ctx context.Context) error

	MaxPages     int
	DefaultLimit int
}

func NewRootCommand(svc *Services) *cobra.Command {
	root := &cobra.Command{
		Use:   "moviectl",
		Short: "Hybrid movie search and recommendation",
		Long: `moviectl extracts the movie catalog, builds the search indexes and
answers natural-language movie queries from the terminal.

Queries are split on "and"; actor, director, company, genre and year clauses
are answered from the inverted indexes, everything else semantically.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newExtractCommand(svc),
		newBuildCommand(svc),
		newSearchCommand(svc),
		newRecommendCommand(svc),
		newOffersCommand(svc),
		newMCPCommand(svc),
	)
	return root
}

func prepare(ctx context.Context, svc *Services) error {
	if svc.PrepareQueries == nil {
		return nil
	}
	if err := svc.PrepareQueries(ctx); err != nil {
		return fmt.Errorf("prepare query engine: %w", err)
	}
	return nil
}

func printJSON(cmd *cobra.Command, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

var errNotConfigured = errors.New("service not configured")
