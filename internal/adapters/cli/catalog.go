package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExtractCommand(svc *Services) *cobra.Command {
	var maxPages int
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Download the movie catalog from TMDB",
		Long: `Fetches movies per genre from the TMDB discover API, enriches them with
details and credits, and writes the catalog file used by "build".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if svc.Extractor == nil {
				return fmt.Errorf("extract: %w", errNotConfigured)
			}
			count, err := svc.Extractor.Extract(cmd.Context(), maxPages)
			if err != nil {
				return fmt.Errorf("extract failed: %w", err)
			}
			cmd.Printf("Extracted %d movies.\n", count)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxPages, "max-pages", svc.MaxPages, "discover pages to fetch per genre")
	return cmd
}

func newBuildCommand(svc *Services) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild indexes and vectors from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if svc.Builder == nil {
				return fmt.Errorf("build: %w", errNotConfigured)
			}
			report, err := svc.Builder.Rebuild(cmd.Context())
			if err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, report)
			}
			cmd.Printf("Indexed %d movies (%d vectors, %d skipped).\n", report.Movies, report.VectorsIndexed, report.VectorsSkipped)
			for facet, keys := range report.IndexKeys {
				cmd.Printf("  %-10s %d keys\n", facet, keys)
			}
			if report.RowsPersisted > 0 {
				cmd.Printf("Persisted %d catalog rows.\n", report.RowsPersisted)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the build report as JSON")
	return cmd
}
