package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/rebalancer/internal/logger"
	"github.com/wnt/rebalancer/internal/metrics"
	"github.com/wnt/rebalancer/internal/rebalance"
)

// Ticker is the market-maker tick: a fixed-interval pass that refreshes each
// eligible pool's rebalance_needed flag from live state. It never trades.
// This is a separate timer from the reconciliation sweep with its own
// configuration; the two cadences are independent on purpose.
type Ticker struct {
	store    Store
	reader   PoolReader
	interval time.Duration
	logger   zerolog.Logger
}

// NewTicker creates a market-maker ticker
func NewTicker(store Store, reader PoolReader, interval time.Duration, baseLogger zerolog.Logger) *Ticker {
	return &Ticker{
		store:    store,
		reader:   reader,
		interval: interval,
		logger:   baseLogger.With().Str("component", "mm_ticker").Logger(),
	}
}

// Run drives the tick loop until ctx is cancelled
func (t *Ticker) Run(ctx context.Context) error {
	t.logger.Info().Dur("interval", t.interval).Msg("Market-maker ticker started")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("Market-maker ticker stopped")
			return ctx.Err()
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick refreshes the rebalance_needed flag for every eligible pool
func (t *Ticker) tick(ctx context.Context) {
	pools, err := t.store.ListEligiblePools(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("Failed to list pools for tick")
		metrics.RecordTickerRun("failed")
		return
	}

	for _, pool := range pools {
		poolLogger := logger.WithPool(t.logger, pool.Address)

		if err := pool.ValidateStrategy(); err != nil {
			poolLogger.Warn().Err(err).Msg("Skipping pool with invalid strategy")
			continue
		}

		state, err := t.reader.GetPoolState(ctx, pool)
		if err != nil {
			poolLogger.Warn().Err(err).Msg("Failed to fetch pool state during tick")
			continue
		}

		needed := rebalance.Decide(pool, state) != nil
		if needed == pool.RebalanceNeeded {
			continue
		}
		if err := t.store.UpdateDerivedState(ctx, pool.ID, needed); err != nil {
			poolLogger.Error().Err(err).Msg("Failed to update rebalance_needed flag")
		}
	}

	metrics.RecordTickerRun("completed")
}
