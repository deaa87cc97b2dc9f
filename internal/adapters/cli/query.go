package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/movie-recommender/internal/core/domain"
)

func newSearchCommand(svc *Services) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the movie catalog",
		Long: `Runs a hybrid query. Structured clauses ("starring X", "directed by Y",
"produced by Z", "genre W", "released after N") are intersected; any other
clause is answered by vector search and takes precedence.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if svc.Searcher == nil {
				return fmt.Errorf("search: %w", errNotConfigured)
			}
			if err := prepare(cmd.Context(), svc); err != nil {
				return err
			}
			result, err := svc.Searcher.Search(cmd.Context(), args[0], limitOr(limit, svc.DefaultLimit))
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, result)
			}
			printSearch(cmd, result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func newRecommendCommand(svc *Services) *cobra.Command {
	var (
		limit      int
		withOffers bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "recommend [query]",
		Short: "Recommend movies for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if svc.Recommender == nil {
				return fmt.Errorf("recommend: %w", errNotConfigured)
			}
			if err := prepare(cmd.Context(), svc); err != nil {
				return err
			}
			result, err := svc.Recommender.Recommend(cmd.Context(), args[0], limitOr(limit, svc.DefaultLimit))
			if err != nil {
				return fmt.Errorf("recommend failed: %w", err)
			}
			if withOffers && svc.Offers != nil && len(result.Recommendations) > 0 {
				svc.Offers.AttachOffers(cmd.Context(), result.Recommendations)
			}
			if asJSON {
				return printJSON(cmd, result)
			}
			printRecommendations(cmd, result)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of candidates")
	cmd.Flags().BoolVar(&withOffers, "offers", false, "look up rent/buy offers for each title")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func newOffersCommand(svc *Services) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "offers [title]",
		Short: "Find where a movie can be rented or bought",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if svc.Offers == nil {
				return fmt.Errorf("offers: %w", errNotConfigured)
			}
			offers := svc.Offers.Offers(cmd.Context(), args[0])
			if asJSON {
				return printJSON(cmd, domain.TitleOffers{Title: args[0], Offers: offers})
			}
			printOffers(cmd, offers)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output offers as JSON")
	return cmd
}

func newMCPCommand(svc *Services) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve search and recommendation tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if svc.ServeMCP == nil {
				return fmt.Errorf("mcp: %w", errNotConfigured)
			}
			if err := prepare(cmd.Context(), svc); err != nil {
				return err
			}
			return svc.ServeMCP(cmd.Context())
		},
	}
}

func limitOr(limit, fallback int) int {
	if limit > 0 {
		return limit
	}
	return fallback
}

func printSearch(cmd *cobra.Command, result *domain.SearchResult) {
	if result.AbortedBy != nil {
		cmd.Printf("No movies match %s %q.\n", result.AbortedBy.Kind, result.AbortedBy.Value)
		return
	}
	if len(result.Movies) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, movie := range result.Movies {
		cmd.Printf("  [%d] %s (%s)\n", i+1, movie.Title, movie.ReleaseYear())
		if len(movie.Genres) > 0 {
			cmd.Printf("      %s\n", strings.Join(movie.Genres, ", "))
		}
		if movie.Director != "" {
			cmd.Printf("      Directed by %s\n", movie.Director)
		}
	}
}

func printRecommendations(cmd *cobra.Command, result *domain.RecommendationResult) {
	if len(result.Recommendations) == 0 {
		cmd.Println("No recommendations.")
		return
	}
	for i, rec := range result.Recommendations {
		cmd.Printf("  [%d] %s\n", i+1, rec.Title)
		if rec.Reason != "" {
			cmd.Printf("      %s\n", rec.Reason)
		}
		if !rec.Matched {
			cmd.Println("      (not in catalog)")
		}
		for _, offer := range rec.Offers {
			cmd.Printf("      #%d %s %s %s\n", offer.Rank, offer.Platform, offer.Format, offer.Costs)
		}
	}
}

func printOffers(cmd *cobra.Command, offers []domain.Offer) {
	if len(offers) == 0 {
		cmd.Println("No offers found.")
		return
	}
	for _, offer := range offers {
		cmd.Printf("  #%d %s [%s] %s\n", offer.Rank, offer.Platform, offer.Format, offer.Costs)
		if offer.URL != "" {
			cmd.Printf("      %s\n", offer.URL)
		}
	}
}
