package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/movie-recommender/internal/adapters/cli"
	mcpadapter "github.com/kirillkom/movie-recommender/internal/adapters/mcp"
	"github.com/kirillkom/movie-recommender/internal/bootstrap"
	"github.com/kirillkom/movie-recommender/internal/config"
	"github.com/kirillkom/movie-recommender/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// stdout belongs to command output and the MCP stream.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "moviectl", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap:", err)
		os.Exit(1)
	}
	defer app.Close()

	mcpServer := mcpadapter.NewServer(app.Planner, app.RecommendUC, app.OfferUC, cfg.SearchResultLimit)
	root := cli.NewRootCommand(&cli.Services{
		Extractor:      app.ExtractUC,
		Builder:        app.BuildUC,
		Searcher:       app.Planner,
		Recommender:    app.RecommendUC,
		Offers:         app.OfferUC,
		PrepareQueries: app.LoadQueryEngine,
		ServeMCP: func(ctx context.Context) error {
			return mcpServer.Serve(ctx, os.Stdin, os.Stdout)
		},
		MaxPages:     cfg.TMDBMaxPages,
		DefaultLimit: cfg.SearchResultLimit,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		app.Close()
		os.Exit(1)
	}
}
