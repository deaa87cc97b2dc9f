package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/movie-recommender/internal/adapters/http"
	"github.com/kirillkom/movie-recommender/internal/bootstrap"
	"github.com/kirillkom/movie-recommender/internal/config"
	"github.com/kirillkom/movie-recommender/internal/observability/logging"
	"github.com/kirillkom/movie-recommender/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app.Executor.OnRetry(httpMetrics.RetryObserver(serviceName))

	if err := app.LoadQueryEngine(ctx); err != nil {
		slog.Error("query_engine_load_failed", "error", err)
		os.Exit(1)
	}

	if app.Queue != nil {
		go func() {
			err := app.Queue.SubscribeCatalogRebuilt(ctx, func(handlerCtx context.Context, requestID string) error {
				err := app.ReloadIndexes(handlerCtx)
				httpMetrics.RecordIndexReload(serviceName, err)
				if err == nil {
					slog.Info("indexes_reloaded", "request_id", requestID)
				}
				return err
			})
			if err != nil {
				slog.Error("rebuilt_subscription_failed", "error", err)
			}
		}()
	}

	var rebuilds httpadapter.RebuildPublisher
	var localRebuilds *bootstrap.LocalRebuilder
	switch {
	case bootstrap.EmbeddedVectorBackend(cfg):
		localRebuilds = bootstrap.NewLocalRebuilder(ctx, app.BuildUC, func(reloadCtx context.Context) error {
			err := app.ReloadIndexes(reloadCtx)
			httpMetrics.RecordIndexReload(serviceName, err)
			return err
		})
		rebuilds = localRebuilds
	case app.Queue != nil:
		rebuilds = app.Queue
	}
	router := httpadapter.NewRouter(cfg, app.Planner, app.RecommendUC, app.OfferUC, app.ListUC, rebuilds).
		WithMetrics(httpMetrics).
		Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.RerankTimeout + cfg.OfferTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
	if localRebuilds != nil {
		localRebuilds.Wait()
	}
}
