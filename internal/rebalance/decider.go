package rebalance

import (
	"github.com/shopspring/decimal"
	"github.com/wnt/rebalancer/internal/models"
)

var two = decimal.NewFromInt(2)

// Action is a bounded corrective trade derived from one pool check. It is
// computed fresh each cycle and never persisted on its own; only the
// resulting transaction record survives.
type Action struct {
	// Direction of the trade with respect to token A: buy acquires token A
	// by spending token B, sell disposes token A for token B.
	Direction string

	// Amount is the trade size in token A units, clamped to the pool's
	// [MinTradeSize, MaxTradeSize].
	Amount decimal.Decimal

	// ExpectedPrice is the price the decision was made against.
	ExpectedPrice decimal.Decimal

	// Slippage-adjusted bounds the executor must enforce.
	MinReceived decimal.Decimal
	MaxSpent    decimal.Decimal
}

// Decide computes whether a pool's token ratio has drifted beyond its
// configured threshold and, if so, the bounded trade needed to correct it.
// A nil return means no action: the pool is balanced, or its state is
// degenerate (zero token B reserve, non-positive price) and cannot be safely
// rebalanced.
//
// The trigger is the relative deviation test
// |currentRatio - targetRatio| / targetRatio > rebalanceThreshold. This is
// the single canonical rule for every call path, including manual triggers.
//
// Pure function: no side effects, deterministic given its inputs.
func Decide(pool models.Pool, state PoolState) *Action {
	currentRatio, ok := state.CurrentRatio()
	if !ok {
		return nil
	}
	if !state.CurrentPrice.IsPositive() {
		return nil
	}

	ratioDiff := currentRatio.Sub(pool.TargetRatio)
	relativeDeviation := ratioDiff.Abs().Div(pool.TargetRatio)
	if !relativeDeviation.GreaterThan(pool.RebalanceThreshold) {
		return nil
	}

	sellingTokenA := currentRatio.GreaterThan(pool.TargetRatio)

	// Moving half the imbalance restores balance under a linear value
	// model. The residual error is covered by the slippage bounds.
	var amount decimal.Decimal
	if sellingTokenA {
		amount = state.TokenAAmount.Mul(ratioDiff).Div(two.Mul(currentRatio))
	} else {
		amount = state.TokenBAmount.Mul(ratioDiff.Neg()).
			Div(two.Mul(pool.TargetRatio).Mul(state.CurrentPrice))
	}

	amount = clamp(amount, pool.MinTradeSize, pool.MaxTradeSize)

	one := decimal.NewFromInt(1)
	slippageDown := one.Sub(pool.MaxSlippage)
	slippageUp := one.Add(pool.MaxSlippage)

	action := &Action{
		Amount:        amount,
		ExpectedPrice: state.CurrentPrice,
	}
	if sellingTokenA {
		action.Direction = models.DirectionSell
		action.MinReceived = amount.Mul(state.CurrentPrice).Mul(slippageDown)
		action.MaxSpent = amount
	} else {
		action.Direction = models.DirectionBuy
		action.MinReceived = amount.Div(state.CurrentPrice).Mul(slippageDown)
		action.MaxSpent = amount.Mul(state.CurrentPrice).Mul(slippageUp)
	}

	return action
}

func clamp(value, min, max decimal.Decimal) decimal.Decimal {
	if value.LessThan(min) {
		return min
	}
	if value.GreaterThan(max) {
		return max
	}
	return value
}
