package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wnt/rebalancer/internal/amm"
	"github.com/wnt/rebalancer/internal/config"
	"github.com/wnt/rebalancer/internal/database"
	"github.com/wnt/rebalancer/internal/logger"
	"github.com/wnt/rebalancer/internal/rebalance"
	"github.com/wnt/rebalancer/internal/server"
	"github.com/wnt/rebalancer/internal/store"
	"github.com/wnt/rebalancer/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Parse command-line arguments
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	// Load environment variables from the specified file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	baseLogger := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	poolStore := store.NewPoolStore(db)

	endpoints, err := amm.NewEndpointPool(cfg.RPCEndpoints, baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to create RPC endpoint pool")
	}

	reader := amm.NewReader(endpoints, cfg.DexAPIBaseURL, baseLogger)
	gateway := amm.NewSwapGateway(cfg.SwapServiceURL, baseLogger)
	executor := rebalance.NewExecutor(gateway, baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconciler := worker.NewReconciler(poolStore, reader, executor, worker.Config{
		CheckInterval:   cfg.CheckInterval,
		PoolConcurrency: cfg.PoolConcurrency,
		PoolTimeout:     cfg.PoolTimeout,
	}, baseLogger)

	reporter := worker.NewStatusReporter(reconciler, poolStore)
	ticker := worker.NewTicker(poolStore, reader, cfg.TickInterval, baseLogger)
	srv := server.New(ctx, reconciler, reporter, cfg.APIPort, baseLogger)

	if err := reconciler.Start(ctx); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to start reconciler")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ticker.Run(gctx)
	})

	g.Go(func() error {
		return srv.ListenAndServe()
	})

	// Dedicated metrics listener, separate from the control surface
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	g.Go(func() error {
		baseLogger.Info().Str("addr", metricsServer.Addr).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	<-ctx.Done()
	baseLogger.Info().Msg("Shutdown signal received")

	// Stop scheduling new sweeps and let the in-flight one finish
	reconciler.Stop()
	reconciler.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error().Err(err).Msg("Metrics server shutdown failed")
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		baseLogger.Error().Err(err).Msg("Service exited with error")
	}

	baseLogger.Info().Msg("Rebalancer stopped")
}
