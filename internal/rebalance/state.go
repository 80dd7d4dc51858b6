package rebalance

import (
	"github.com/shopspring/decimal"
)

// PoolState is the on-chain state of a managed position, fetched fresh each
// cycle and never treated as authoritative beyond the cycle that read it.
// CurrentPrice quotes token B per token A; every derived number in one
// decision uses that same convention.
type PoolState struct {
	TokenAAmount decimal.Decimal
	TokenBAmount decimal.Decimal
	CurrentPrice decimal.Decimal
}

// CurrentRatio returns the value-weighted ratio of token A to token B,
// (tokenAAmount * currentPrice) / tokenBAmount. ok is false when
// tokenBAmount is zero and the ratio is undefined.
func (s PoolState) CurrentRatio() (decimal.Decimal, bool) {
	if s.TokenBAmount.IsZero() {
		return decimal.Zero, false
	}
	return s.TokenAAmount.Mul(s.CurrentPrice).Div(s.TokenBAmount), true
}
