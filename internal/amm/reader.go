package amm

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/wnt/rebalancer/internal/httpx"
	"github.com/wnt/rebalancer/internal/metrics"
	"github.com/wnt/rebalancer/internal/models"
	"github.com/wnt/rebalancer/internal/rebalance"
)

const unhealthyCooldown = 2 * time.Minute

// PairInfo is the pool routing and pricing payload served by the DEX public
// API
type PairInfo struct {
	Address        string  `json:"address"`
	Name           string  `json:"name"`
	MintX          string  `json:"mint_x"`
	MintY          string  `json:"mint_y"`
	ReserveX       string  `json:"reserve_x"`
	ReserveY       string  `json:"reserve_y"`
	ReserveXAmount int64   `json:"reserve_x_amount"`
	ReserveYAmount int64   `json:"reserve_y_amount"`
	CurrentPrice   float64 `json:"current_price"`
}

// Reader reads live pool state from the DEX API and the Solana RPC layer.
// Reserve balances come from the chain; the price comes from the DEX quote.
type Reader struct {
	endpoints *EndpointPool
	api       *httpx.Client
	logger    zerolog.Logger
}

// NewReader creates a pool state reader
func NewReader(endpoints *EndpointPool, apiBaseURL string, logger zerolog.Logger) *Reader {
	return &Reader{
		endpoints: endpoints,
		api: httpx.NewClient(
			httpx.WithBaseURL(apiBaseURL),
			httpx.WithTimeout(15*time.Second),
		),
		logger: logger.With().Str("component", "pool_reader").Logger(),
	}
}

// GetPoolState fetches the current reserves and price for a managed pool.
// Amounts are returned in whole-token units using each token's configured
// decimal precision. The pair's mint ordering is validated against the pool
// row before any reserve is attributed to a side.
func (r *Reader) GetPoolState(ctx context.Context, pool models.Pool) (rebalance.PoolState, error) {
	pair, err := r.fetchPair(ctx, pool.Address)
	if err != nil {
		return rebalance.PoolState{}, err
	}

	reserveA, reserveB, price, err := orientPair(pool, pair)
	if err != nil {
		return rebalance.PoolState{}, err
	}

	tokenAAmount, err := r.fetchReserveBalance(ctx, reserveA)
	if err != nil {
		return rebalance.PoolState{}, fmt.Errorf("failed to fetch token A reserve for pool %s: %w", pool.Address, err)
	}

	tokenBAmount, err := r.fetchReserveBalance(ctx, reserveB)
	if err != nil {
		return rebalance.PoolState{}, fmt.Errorf("failed to fetch token B reserve for pool %s: %w", pool.Address, err)
	}

	return rebalance.PoolState{
		TokenAAmount: tokenAAmount,
		TokenBAmount: tokenBAmount,
		CurrentPrice: price,
	}, nil
}

// orientPair maps the pair's X/Y sides onto the pool's token A/B by mint
// address. The DEX API quotes current_price as Y per X; when the pool's token
// A sits on the pair's Y side the reserves swap and the price inverts. A pair
// whose mints do not match the pool row is rejected outright so a
// misregistered pool can never trade on swapped sides.
func orientPair(pool models.Pool, pair *PairInfo) (reserveA, reserveB string, price decimal.Decimal, err error) {
	quoted := decimal.NewFromFloat(pair.CurrentPrice)
	if quoted.IsNegative() {
		return "", "", decimal.Zero, fmt.Errorf("DEX API returned negative price %s for pool %s", quoted, pool.Address)
	}

	switch {
	case pool.TokenAMint == pair.MintX && pool.TokenBMint == pair.MintY:
		return pair.ReserveX, pair.ReserveY, quoted, nil
	case pool.TokenAMint == pair.MintY && pool.TokenBMint == pair.MintX:
		if quoted.IsZero() {
			return "", "", decimal.Zero, fmt.Errorf("cannot invert zero price for pool %s", pool.Address)
		}
		return pair.ReserveY, pair.ReserveX, decimal.NewFromInt(1).Div(quoted), nil
	default:
		return "", "", decimal.Zero, fmt.Errorf(
			"pair mints (%s, %s) do not match pool %s token mints (%s, %s)",
			pair.MintX, pair.MintY, pool.Address, pool.TokenAMint, pool.TokenBMint)
	}
}

// fetchPair retrieves pair info from the DEX public API
func (r *Reader) fetchPair(ctx context.Context, poolAddress string) (*PairInfo, error) {
	resp, err := r.api.Get(ctx, fmt.Sprintf("/pair/%s", poolAddress), nil)
	if err != nil {
		metrics.RecordGatewayRequest("dex_api", "failed")
		return nil, fmt.Errorf("failed to fetch pair %s from DEX API: %w", poolAddress, err)
	}
	metrics.RecordGatewayRequest("dex_api", "success")

	var pair PairInfo
	if err := resp.DecodeJSON(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode pair %s: %w", poolAddress, err)
	}

	if pair.ReserveX == "" || pair.ReserveY == "" {
		return nil, fmt.Errorf("DEX API returned pair %s without reserve accounts", poolAddress)
	}

	return &pair, nil
}

// fetchReserveBalance reads a reserve token account balance via RPC and
// converts it to whole-token units
func (r *Reader) fetchReserveBalance(ctx context.Context, reserveAccount string) (decimal.Decimal, error) {
	account, err := solana.PublicKeyFromBase58(reserveAccount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed reserve account %s: %w", reserveAccount, err)
	}

	client, url, err := r.endpoints.Client(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("no RPC endpoint available: %w", err)
	}

	result, err := client.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		metrics.RecordGatewayRequest("rpc", "failed")
		r.endpoints.MarkUnhealthy(url, unhealthyCooldown)
		return decimal.Zero, fmt.Errorf("failed to fetch token account balance: %w", err)
	}
	metrics.RecordGatewayRequest("rpc", "success")
	r.endpoints.MarkHealthy(url)

	if result.Value == nil {
		return decimal.Zero, fmt.Errorf("RPC returned empty balance for account %s", reserveAccount)
	}

	raw, err := decimal.NewFromString(result.Value.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed balance amount %q: %w", result.Value.Amount, err)
	}

	return raw.Shift(-int32(result.Value.Decimals)), nil
}
