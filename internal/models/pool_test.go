package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPool() Pool {
	return Pool{
		Address:            "5rCf1DM8LjKTw4YqhnoLcngyZYeNnQqztScTogYHAS6",
		TargetRatio:        decimal.RequireFromString("0.5"),
		RebalanceThreshold: decimal.RequireFromString("0.05"),
		MinTradeSize:       decimal.RequireFromString("1"),
		MaxTradeSize:       decimal.RequireFromString("1000"),
		MaxSlippage:        decimal.RequireFromString("0.01"),
	}
}

func TestValidateStrategy(t *testing.T) {
	t.Run("valid strategy", func(t *testing.T) {
		pool := validPool()
		require.NoError(t, pool.ValidateStrategy())
	})

	t.Run("zero slippage is allowed", func(t *testing.T) {
		pool := validPool()
		pool.MaxSlippage = decimal.Zero
		require.NoError(t, pool.ValidateStrategy())
	})

	tests := []struct {
		name   string
		mutate func(*Pool)
		want   string
	}{
		{
			name:   "zero target ratio",
			mutate: func(p *Pool) { p.TargetRatio = decimal.Zero },
			want:   "target ratio must be in (0, 1)",
		},
		{
			name:   "target ratio of one",
			mutate: func(p *Pool) { p.TargetRatio = decimal.NewFromInt(1) },
			want:   "target ratio must be in (0, 1)",
		},
		{
			name:   "negative target ratio",
			mutate: func(p *Pool) { p.TargetRatio = decimal.RequireFromString("-0.3") },
			want:   "target ratio must be in (0, 1)",
		},
		{
			name:   "zero threshold",
			mutate: func(p *Pool) { p.RebalanceThreshold = decimal.Zero },
			want:   "rebalance threshold must be positive",
		},
		{
			name:   "negative min trade size",
			mutate: func(p *Pool) { p.MinTradeSize = decimal.RequireFromString("-1") },
			want:   "min trade size must not be negative",
		},
		{
			name: "max trade size below min",
			mutate: func(p *Pool) {
				p.MinTradeSize = decimal.RequireFromString("100")
				p.MaxTradeSize = decimal.RequireFromString("10")
			},
			want: "below min trade size",
		},
		{
			name:   "slippage of one",
			mutate: func(p *Pool) { p.MaxSlippage = decimal.NewFromInt(1) },
			want:   "max slippage must be in [0, 1)",
		},
		{
			name:   "negative slippage",
			mutate: func(p *Pool) { p.MaxSlippage = decimal.RequireFromString("-0.01") },
			want:   "max slippage must be in [0, 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := validPool()
			tt.mutate(&pool)

			err := pool.ValidateStrategy()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidStrategy)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
