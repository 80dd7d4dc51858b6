package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/wnt/rebalancer/internal/amm"
	"github.com/wnt/rebalancer/internal/config"
	"github.com/wnt/rebalancer/internal/database"
	"github.com/wnt/rebalancer/internal/logger"
	"github.com/wnt/rebalancer/internal/rebalance"
	"github.com/wnt/rebalancer/internal/store"
	"github.com/wnt/rebalancer/internal/worker"
)

// sweeponce runs a single reconciliation sweep and exits. Useful for
// operators verifying pool configuration without starting the daemon loop.
func main() {
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

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
		log.Fatalf("Failed to connect to database: %v", err)
	}

	poolStore := store.NewPoolStore(db)

	endpoints, err := amm.NewEndpointPool(cfg.RPCEndpoints, baseLogger)
	if err != nil {
		log.Fatalf("Failed to create RPC endpoint pool: %v", err)
	}

	reader := amm.NewReader(endpoints, cfg.DexAPIBaseURL, baseLogger)
	gateway := amm.NewSwapGateway(cfg.SwapServiceURL, baseLogger)
	executor := rebalance.NewExecutor(gateway, baseLogger)

	reconciler := worker.NewReconciler(poolStore, reader, executor, worker.Config{
		CheckInterval:   cfg.CheckInterval,
		PoolConcurrency: cfg.PoolConcurrency,
		PoolTimeout:     cfg.PoolTimeout,
	}, baseLogger)

	reconciler.RunSweep(context.Background())

	fmt.Println("Sweep completed")
}
