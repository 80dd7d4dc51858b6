package rebalance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/rebalancer/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testPool() models.Pool {
	return models.Pool{
		Address:            "BGm1tav58oGcsQJehL9WXBFXF7D27vZsKefj4xJKD5Y",
		TargetRatio:        dec("0.5"),
		RebalanceThreshold: dec("0.05"),
		MinTradeSize:       dec("1"),
		MaxTradeSize:       dec("1000"),
		MaxSlippage:        dec("0.01"),
	}
}

func TestDecideBalancedPoolNoAction(t *testing.T) {
	// targetRatio=0.5, 50 A * price 1 / 100 B = ratio 0.5, zero deviation
	pool := testPool()
	state := PoolState{
		TokenAAmount: dec("50"),
		TokenBAmount: dec("100"),
		CurrentPrice: dec("1"),
	}

	action := Decide(pool, state)
	assert.Nil(t, action)
}

func TestDecideDeviationBelowThresholdNoAction(t *testing.T) {
	pool := testPool()

	// currentRatio = 51.5/100 = 0.515, relative deviation 0.03 < 0.05
	state := PoolState{
		TokenAAmount: dec("51.5"),
		TokenBAmount: dec("100"),
		CurrentPrice: dec("1"),
	}

	action := Decide(pool, state)
	assert.Nil(t, action)
}

func TestDecideRelativeThresholdRule(t *testing.T) {
	// The trigger is relative to the target ratio, not an absolute band.
	// With targetRatio=0.1 and threshold=0.05, an absolute drift of just
	// 0.006 is a 6% relative deviation and must trigger.
	pool := testPool()
	pool.TargetRatio = dec("0.1")

	state := PoolState{
		TokenAAmount: dec("10.6"),
		TokenBAmount: dec("100"),
		CurrentPrice: dec("1"),
	}

	action := Decide(pool, state)
	require.NotNil(t, action)
	assert.Equal(t, models.DirectionSell, action.Direction)
}

func TestDecideSellWhenRatioAboveTarget(t *testing.T) {
	// currentRatio = 100*1/100 = 1.0, deviation
	// (1.0-0.5)/0.5 = 1.0 > 0.05, sell 100*(1.0-0.5)/(2*1.0) = 25
	pool := testPool()
	state := PoolState{
		TokenAAmount: dec("100"),
		TokenBAmount: dec("100"),
		CurrentPrice: dec("1"),
	}

	action := Decide(pool, state)
	require.NotNil(t, action)
	assert.Equal(t, models.DirectionSell, action.Direction)
	assert.True(t, action.Amount.Equal(dec("25")), "amount = %s, want 25", action.Amount)
	assert.True(t, action.ExpectedPrice.Equal(dec("1")))

	// Selling: minReceived = 25 * 1 * 0.99, maxSpent = 25
	assert.True(t, action.MinReceived.Equal(dec("24.75")), "minReceived = %s", action.MinReceived)
	assert.True(t, action.MaxSpent.Equal(dec("25")), "maxSpent = %s", action.MaxSpent)
}

func TestDecideBuyWhenRatioBelowTarget(t *testing.T) {
	// currentRatio = 20*1/100 = 0.2 < 0.5, buy
	// amount = 100*(0.5-0.2)/(2*0.5*1) = 30
	pool := testPool()
	state := PoolState{
		TokenAAmount: dec("20"),
		TokenBAmount: dec("100"),
		CurrentPrice: dec("1"),
	}

	action := Decide(pool, state)
	require.NotNil(t, action)
	assert.Equal(t, models.DirectionBuy, action.Direction)
	assert.True(t, action.Amount.Equal(dec("30")), "amount = %s, want 30", action.Amount)

	// Buying: minReceived = (30/1)*0.99, maxSpent = 30*1*1.01
	assert.True(t, action.MinReceived.Equal(dec("29.7")), "minReceived = %s", action.MinReceived)
	assert.True(t, action.MaxSpent.Equal(dec("30.3")), "maxSpent = %s", action.MaxSpent)
}

func TestDecideClampsTradeAmount(t *testing.T) {
	tests := []struct {
		name   string
		min    string
		max    string
		expect string
	}{
		{"raw amount above max clamps to max", "1", "10", "10"},
		{"raw amount below min clamps to min", "40", "1000", "40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Raw sell amount for this state is 25
			pool := testPool()
			pool.MinTradeSize = dec(tt.min)
			pool.MaxTradeSize = dec(tt.max)

			state := PoolState{
				TokenAAmount: dec("100"),
				TokenBAmount: dec("100"),
				CurrentPrice: dec("1"),
			}

			action := Decide(pool, state)
			require.NotNil(t, action)
			assert.True(t, action.Amount.Equal(dec(tt.expect)),
				"amount = %s, want %s", action.Amount, tt.expect)
		})
	}
}

func TestDecideZeroTokenBReserve(t *testing.T) {
	// Undefined ratio is a defined no-action outcome, never a panic
	pool := testPool()
	state := PoolState{
		TokenAAmount: dec("100"),
		TokenBAmount: decimal.Zero,
		CurrentPrice: dec("1"),
	}

	assert.NotPanics(t, func() {
		action := Decide(pool, state)
		assert.Nil(t, action)
	})
}

func TestDecideZeroPrice(t *testing.T) {
	pool := testPool()
	state := PoolState{
		TokenAAmount: dec("100"),
		TokenBAmount: dec("100"),
		CurrentPrice: decimal.Zero,
	}

	action := Decide(pool, state)
	assert.Nil(t, action)
}

func TestDecideDirectionMatchesDeviation(t *testing.T) {
	tests := []struct {
		name      string
		tokenA    string
		direction string
	}{
		{"ratio above target sells token A", "200", models.DirectionSell},
		{"ratio below target buys token A", "10", models.DirectionBuy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := testPool()
			state := PoolState{
				TokenAAmount: dec(tt.tokenA),
				TokenBAmount: dec("100"),
				CurrentPrice: dec("1"),
			}

			action := Decide(pool, state)
			require.NotNil(t, action)
			assert.Equal(t, tt.direction, action.Direction)
			assert.True(t, action.Amount.IsPositive(), "amount must be positive, got %s", action.Amount)
		})
	}
}

func TestCurrentRatio(t *testing.T) {
	state := PoolState{
		TokenAAmount: dec("100"),
		TokenBAmount: dec("200"),
		CurrentPrice: dec("2"),
	}

	ratio, ok := state.CurrentRatio()
	require.True(t, ok)
	assert.True(t, ratio.Equal(dec("1")), "ratio = %s, want 1", ratio)

	state.TokenBAmount = decimal.Zero
	_, ok = state.CurrentRatio()
	assert.False(t, ok)
}
