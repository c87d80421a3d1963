package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/singed2905/api/internal/config"
	"github.com/singed2905/api/internal/observability"
	"github.com/singed2905/api/internal/server"
)

func main() {

	ctx := context.Background()

	if err := loadDotEnv(); err != nil {
		panic(err)
	}

	settings := config.LoadSettings()

	// Logger
	err := observability.InitLogger()
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Tracing
	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		panic(err)
	}
	defer traceShutdown(ctx)

	// Metrics
	metricShutdown, err := initMetrics(ctx)
	if err != nil {
		panic(err)
	}
	defer metricShutdown(ctx)

	// OTLP log export is opt-in; stdout logging always stays on.
	if settings.OTelLogsEnabled {
		logShutdown, err := observability.InitLogging(ctx)
		if err != nil {
			panic(err)
		}
		defer logShutdown(ctx)
	}

	// Static tables: compatibility rules and per-model instruction sets.
	// Missing or malformed tables are fatal here, never per request.
	provider, err := config.NewProvider(settings.TableDir, settings.DefaultModel)
	if err != nil {
		observability.Logger.Fatal("loading tables", zap.Error(err))
	}

	if settings.WatchTables {
		stopWatch, err := provider.Watch(ctx, observability.Logger)
		if err != nil {
			observability.Logger.Fatal("starting table watcher", zap.Error(err))
		}
		defer stopWatch()
	}

	// Router
	router := server.NewRouter(provider)

	srv := &http.Server{
		Addr:    settings.Addr,
		Handler: router,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", settings.Addr),
			zap.String("default_model", settings.DefaultModel),
			zap.Int("rules", len(provider.Snapshot().Compatibility.Rules)),
			zap.Int("models", len(provider.Snapshot().Instructions.Models)),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	waitForShutdown(srv)
}

func waitForShutdown(srv *http.Server) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.Shutdown(ctx)
}
