package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wnt/rebalancer/internal/logger"
	"github.com/wnt/rebalancer/internal/metrics"
	"github.com/wnt/rebalancer/internal/models"
	"github.com/wnt/rebalancer/internal/rebalance"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadyRunning is returned when Start is called on a running reconciler
var ErrAlreadyRunning = errors.New("reconciler is already running")

// Store is the persistence surface the reconciler needs
type Store interface {
	ListEligiblePools(ctx context.Context) ([]models.Pool, error)
	RecordRebalanceSuccess(ctx context.Context, poolID uint, rec *models.RebalanceTransaction, description string) error
	RecordRebalanceFailure(ctx context.Context, poolID uint, rec *models.RebalanceTransaction, description string) error
	InsertEvent(ctx context.Context, event *models.PoolEvent) error
	UpdateDerivedState(ctx context.Context, poolID uint, rebalanceNeeded bool) error
	SaveSnapshot(ctx context.Context, snapshot *models.PoolStateSnapshot) error
}

// PoolReader reads live on-chain state for a pool
type PoolReader interface {
	GetPoolState(ctx context.Context, pool models.Pool) (rebalance.PoolState, error)
}

// Executor submits one decided trade and reports the outcome
type Executor interface {
	Execute(ctx context.Context, poolAddress string, action *rebalance.Action) rebalance.ExecutionResult
}

// Config holds the reconciler's runtime parameters
type Config struct {
	// CheckInterval is the delay between the end of one sweep and the
	// start of the next. Cadence is checkInterval plus sweep duration,
	// not fixed wall-clock ticks.
	CheckInterval time.Duration

	// PoolConcurrency bounds the fan-out within one sweep
	PoolConcurrency int

	// PoolTimeout bounds one pool's fetch plus execution so a single
	// unresponsive pool cannot stall the sweep
	PoolTimeout time.Duration
}

// Reconciler is the singleton reconciliation worker. It runs one sweep over
// all eligible pools each cycle, isolating per-pool failures so one bad pool
// never halts the rest of the sweep.
type Reconciler struct {
	store    Store
	reader   PoolReader
	executor Executor
	cfg      Config
	logger   zerolog.Logger

	mutex         sync.Mutex
	running       bool
	lastCheckTime time.Time
	cancelLoop    context.CancelFunc
	loopDone      chan struct{}
}

// NewReconciler creates an idle reconciler. Construct exactly one per
// process and hand it to whatever exposes the control surface.
func NewReconciler(store Store, reader PoolReader, executor Executor, cfg Config, baseLogger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		reader:   reader,
		executor: executor,
		cfg:      cfg,
		logger:   baseLogger.With().Str("component", "reconciler").Logger(),
	}
}

// Start transitions the reconciler from idle to running: one sweep
// immediately, then self-scheduling at CheckInterval after each sweep
// completes. The loop stops when Stop is called or ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mutex.Lock()
	if r.running {
		r.mutex.Unlock()
		return ErrAlreadyRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	prevDone := r.loopDone
	r.running = true
	r.cancelLoop = cancel
	r.loopDone = done
	r.mutex.Unlock()

	metrics.WorkerRunning.Set(1)
	r.logger.Info().Dur("check_interval", r.cfg.CheckInterval).Msg("Reconciler started")

	go func() {
		// A previous loop may still be finishing its in-flight sweep
		// after Stop; sweeps must never overlap.
		if prevDone != nil {
			<-prevDone
		}
		r.runLoop(ctx, loopCtx, done)
	}()
	return nil
}

// Stop transitions the reconciler to idle. It takes effect before the next
// scheduled sweep; a sweep already in flight is allowed to finish. Stop does
// not wait for that sweep.
func (r *Reconciler) Stop() {
	r.mutex.Lock()
	if !r.running {
		r.mutex.Unlock()
		return
	}
	r.running = false
	cancel := r.cancelLoop
	r.cancelLoop = nil
	r.mutex.Unlock()

	cancel()
	metrics.WorkerRunning.Set(0)
	r.logger.Info().Msg("Reconciler stopped")
}

// markIdle clears the running state when the loop exits for any reason,
// including process context cancellation without an explicit Stop. done
// identifies the exiting loop: after a Stop/Start restart the old loop's
// exit must not touch state that now belongs to the new loop.
func (r *Reconciler) markIdle(done chan struct{}) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.loopDone != done {
		return
	}
	if r.running {
		r.running = false
		if r.cancelLoop != nil {
			r.cancelLoop()
			r.cancelLoop = nil
		}
		metrics.WorkerRunning.Set(0)
	}
}

// Wait blocks until the loop goroutine has exited, including any in-flight
// sweep. Used for graceful shutdown.
func (r *Reconciler) Wait() {
	r.mutex.Lock()
	done := r.loopDone
	r.mutex.Unlock()
	if done != nil {
		<-done
	}
}

// IsRunning reports whether the scheduling loop is active. True means the
// loop is scheduled, not that a pool check is executing right now.
func (r *Reconciler) IsRunning() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.running
}

// LastCheckTime returns the start time of the most recent sweep
func (r *Reconciler) LastCheckTime() time.Time {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.lastCheckTime
}

// runLoop drives sweep-then-delay scheduling. Sweeps run on sweepCtx so an
// admin Stop, which cancels only loopCtx, lets the in-flight sweep finish;
// process shutdown cancels both.
func (r *Reconciler) runLoop(sweepCtx, loopCtx context.Context, done chan struct{}) {
	defer close(done)
	defer r.markIdle(done)

	for {
		r.RunSweep(sweepCtx)

		select {
		case <-loopCtx.Done():
			return
		case <-time.After(r.cfg.CheckInterval):
		}

		// Stop can race the timer; re-check before sweeping again
		if !r.IsRunning() {
			return
		}
	}
}

// RunSweep performs one full pass over all eligible pools. Exported so the
// one-shot command can drive a single sweep without the loop.
func (r *Reconciler) RunSweep(ctx context.Context) {
	start := time.Now()

	r.mutex.Lock()
	r.lastCheckTime = start
	r.mutex.Unlock()

	sweepLogger := logger.WithSweep(r.logger, uuid.New().String())

	pools, err := r.store.ListEligiblePools(ctx)
	if err != nil {
		// A store-level listing failure aborts this sweep only; the
		// loop survives to attempt the next one.
		sweepLogger.Error().Err(err).Msg("Failed to list eligible pools, aborting sweep")
		metrics.RecordSweep("aborted", time.Since(start).Seconds())
		return
	}

	sweepLogger.Info().Int("eligible_pools", len(pools)).Msg("Starting sweep")

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.PoolConcurrency)
	for _, pool := range pools {
		pool := pool
		g.Go(func() error {
			r.checkPool(ctx, sweepLogger, pool)
			return nil
		})
	}
	g.Wait()

	duration := time.Since(start)
	metrics.RecordSweep("completed", duration.Seconds())
	sweepLogger.Info().Dur("duration", duration).Msg("Sweep completed")
}

// checkPool runs the fetch, decide, execute, record sequence for one pool.
// Every failure is contained at the pool boundary: logged, recorded as an
// error event, and never propagated to the sweep.
func (r *Reconciler) checkPool(ctx context.Context, sweepLogger zerolog.Logger, pool models.Pool) {
	poolLogger := logger.WithPool(sweepLogger, pool.Address)

	defer func() {
		if rec := recover(); rec != nil {
			poolLogger.Error().Interface("panic", rec).Msg("Panic while processing pool")
			r.recordPoolError(pool.ID, fmt.Sprintf("panic while processing pool: %v", rec), poolLogger)
			metrics.RecordPoolCheck("failed")
		}
	}()

	if err := pool.ValidateStrategy(); err != nil {
		poolLogger.Error().Err(err).Msg("Skipping pool with invalid strategy")
		r.recordPoolError(pool.ID, fmt.Sprintf("invalid strategy: %v", err), poolLogger)
		metrics.RecordPoolCheck("skipped")
		return
	}

	poolCtx, cancel := context.WithTimeout(ctx, r.cfg.PoolTimeout)
	defer cancel()

	state, err := r.reader.GetPoolState(poolCtx, pool)
	if err != nil {
		poolLogger.Error().Err(err).Msg("Failed to fetch on-chain pool state")
		r.recordPoolError(pool.ID, fmt.Sprintf("failed to fetch on-chain state: %v", err), poolLogger)
		metrics.RecordPoolCheck("failed")
		return
	}

	r.saveSnapshot(pool.ID, state, poolLogger)

	action := rebalance.Decide(pool, state)
	if action == nil {
		if err := r.store.UpdateDerivedState(ctx, pool.ID, false); err != nil {
			poolLogger.Error().Err(err).Msg("Failed to clear derived pool state")
		}
		metrics.RecordPoolCheck("balanced")
		poolLogger.Debug().Msg("Pool within threshold, no action")
		return
	}

	poolLogger.Info().
		Str("direction", action.Direction).
		Str("amount", action.Amount.String()).
		Str("expected_price", action.ExpectedPrice.String()).
		Msg("Rebalance action decided")

	result := r.executor.Execute(poolCtx, pool.Address, action)

	rec := &models.RebalanceTransaction{
		ActionType:  models.ActionRebalance,
		Direction:   action.Direction,
		Amount:      action.Amount,
		Price:       action.ExpectedPrice,
		TxSignature: result.Signature,
	}

	if !result.Success {
		execErr := result.Err
		if execErr == nil {
			execErr = errors.New("execution failed without error detail")
		}
		rec.Error = execErr.Error()
		metrics.RecordRebalance(action.Direction, "failed")
		metrics.RecordPoolCheck("failed")

		description := fmt.Sprintf("rebalance execution failed: %v", execErr)
		if err := r.store.RecordRebalanceFailure(ctx, pool.ID, rec, description); err != nil {
			poolLogger.Error().Err(err).Msg("Failed to record rebalance failure")
		}
		poolLogger.Error().Err(execErr).Msg("Rebalance failed, pool will be re-evaluated next sweep")
		return
	}

	metrics.RecordRebalance(action.Direction, "success")
	metrics.RecordPoolCheck("rebalanced")

	description := fmt.Sprintf("rebalanced: %s %s token A at %s, signature %s",
		action.Direction, action.Amount, action.ExpectedPrice, result.Signature)
	if err := r.store.RecordRebalanceSuccess(ctx, pool.ID, rec, description); err != nil {
		poolLogger.Error().Err(err).Msg("Failed to record rebalance success")
		return
	}

	poolLogger.Info().Str("signature", result.Signature).Msg("Pool rebalanced")
}

// recordPoolError appends an error event for a pool, best effort
func (r *Reconciler) recordPoolError(poolID uint, description string, poolLogger zerolog.Logger) {
	event := &models.PoolEvent{
		PoolID:      poolID,
		EventType:   models.EventError,
		Description: description,
		Severity:    models.SeverityError,
	}
	// Use a fresh context so the event still lands when the pool context
	// timed out.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.InsertEvent(ctx, event); err != nil {
		poolLogger.Error().Err(err).Msg("Failed to insert error event")
	}
}

// saveSnapshot persists the observed on-chain state, best effort
func (r *Reconciler) saveSnapshot(poolID uint, state rebalance.PoolState, poolLogger zerolog.Logger) {
	snapshot := &models.PoolStateSnapshot{
		PoolID:       poolID,
		TokenAAmount: state.TokenAAmount,
		TokenBAmount: state.TokenBAmount,
		CurrentPrice: state.CurrentPrice,
	}
	if ratio, ok := state.CurrentRatio(); ok {
		snapshot.CurrentRatio = ratio
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SaveSnapshot(ctx, snapshot); err != nil {
		poolLogger.Warn().Err(err).Msg("Failed to save pool state snapshot")
	}
}
