package rebalance

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SwapRequest is the instruction handed to the AMM gateway. The gateway owns
// transaction construction, signing and confirmation wait.
type SwapRequest struct {
	PoolAddress string
	Direction   string
	Amount      decimal.Decimal
	MinReceived decimal.Decimal
	MaxSpent    decimal.Decimal
}

// Gateway submits swaps to the external AMM and reports the settlement
// signature
type Gateway interface {
	// RefreshRoute fetches live routing info for a pool immediately before
	// submission. Decision and execution are not atomic with respect to
	// on-chain state; this narrows the window.
	RefreshRoute(ctx context.Context, poolAddress string) error

	// SubmitSwap submits the swap and waits for settlement, returning the
	// transaction signature.
	SubmitSwap(ctx context.Context, req SwapRequest) (string, error)
}

// ExecutionResult reports the outcome of one gateway submission
type ExecutionResult struct {
	Signature string
	Success   bool
	Err       error
}

// Executor submits decided trades to the AMM gateway. It never retries
// internally; retry policy belongs to the caller, and the next sweep
// re-evaluates the pool from scratch anyway.
type Executor struct {
	gateway Gateway
	logger  zerolog.Logger
}

// NewExecutor creates an executor over the given gateway
func NewExecutor(gateway Gateway, logger zerolog.Logger) *Executor {
	return &Executor{
		gateway: gateway,
		logger:  logger.With().Str("component", "executor").Logger(),
	}
}

// Execute submits one corrective trade for a pool. Any failure, at route
// refresh or at submission, yields a result with an empty signature and the
// error; no exception escapes.
func (e *Executor) Execute(ctx context.Context, poolAddress string, action *Action) ExecutionResult {
	if err := e.gateway.RefreshRoute(ctx, poolAddress); err != nil {
		e.logger.Error().Err(err).Str("pool", poolAddress).Msg("Failed to refresh pool route")
		return ExecutionResult{Signature: "", Success: false, Err: err}
	}

	req := SwapRequest{
		PoolAddress: poolAddress,
		Direction:   action.Direction,
		Amount:      action.Amount,
		MinReceived: action.MinReceived,
		MaxSpent:    action.MaxSpent,
	}

	signature, err := e.gateway.SubmitSwap(ctx, req)
	if err != nil {
		e.logger.Error().Err(err).
			Str("pool", poolAddress).
			Str("direction", action.Direction).
			Str("amount", action.Amount.String()).
			Msg("Swap submission failed")
		return ExecutionResult{Signature: "", Success: false, Err: err}
	}

	e.logger.Info().
		Str("pool", poolAddress).
		Str("direction", action.Direction).
		Str("amount", action.Amount.String()).
		Str("signature", signature).
		Msg("Swap submitted successfully")

	return ExecutionResult{Signature: signature, Success: true}
}
