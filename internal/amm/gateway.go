package amm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/wnt/rebalancer/internal/httpx"
	"github.com/wnt/rebalancer/internal/metrics"
	"github.com/wnt/rebalancer/internal/rebalance"
)

// SwapGateway submits swaps through the swap service, which owns transaction
// construction, operator key signing and confirmation wait. Implements
// rebalance.Gateway.
type SwapGateway struct {
	api    *httpx.Client
	logger zerolog.Logger

	// Last fetched route per pool. SubmitSwap requires a prior
	// RefreshRoute for the pool so the submission uses live routing info.
	routes map[string]routeInfo
	mutex  sync.Mutex
}

// routeMaxAge bounds how old a fetched route may be at submission. Bin array
// layouts move with the active bin, so a stale route risks a swap built
// against routing info the pool has already left behind.
const routeMaxAge = 30 * time.Second

type routeInfo struct {
	BinArrays []string `json:"bin_arrays"`
	FetchedAt time.Time
}

type routeResponse struct {
	Pool      string   `json:"pool"`
	BinArrays []string `json:"bin_arrays"`
}

type swapRequestBody struct {
	Pool        string   `json:"pool"`
	Direction   string   `json:"direction"`
	Amount      string   `json:"amount"`
	MinReceived string   `json:"min_received"`
	MaxSpent    string   `json:"max_spent"`
	BinArrays   []string `json:"bin_arrays,omitempty"`
}

type swapResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// NewSwapGateway creates a swap gateway over the swap service URL
func NewSwapGateway(swapServiceURL string, logger zerolog.Logger) *SwapGateway {
	return &SwapGateway{
		api: httpx.NewClient(
			httpx.WithBaseURL(swapServiceURL),
			// Submission includes on-chain confirmation wait
			httpx.WithTimeout(90*time.Second),
			httpx.WithRetries(0, 0),
		),
		logger: logger.With().Str("component", "swap_gateway").Logger(),
		routes: make(map[string]routeInfo),
	}
}

// RefreshRoute fetches live routing info for the pool from the swap service
func (g *SwapGateway) RefreshRoute(ctx context.Context, poolAddress string) error {
	resp, err := g.api.Get(ctx, fmt.Sprintf("/route/%s", poolAddress), nil)
	if err != nil {
		metrics.RecordGatewayRequest("swap", "failed")
		return fmt.Errorf("failed to fetch route for pool %s: %w", poolAddress, err)
	}
	metrics.RecordGatewayRequest("swap", "success")

	var route routeResponse
	if err := resp.DecodeJSON(&route); err != nil {
		return fmt.Errorf("failed to decode route for pool %s: %w", poolAddress, err)
	}

	g.mutex.Lock()
	g.routes[poolAddress] = routeInfo{
		BinArrays: route.BinArrays,
		FetchedAt: time.Now(),
	}
	g.mutex.Unlock()

	return nil
}

// SubmitSwap submits the swap instruction and returns the settlement
// signature once the swap service reports confirmation
func (g *SwapGateway) SubmitSwap(ctx context.Context, req rebalance.SwapRequest) (string, error) {
	g.mutex.Lock()
	route, ok := g.routes[req.PoolAddress]
	g.mutex.Unlock()
	if !ok {
		return "", fmt.Errorf("no route fetched for pool %s", req.PoolAddress)
	}
	if time.Since(route.FetchedAt) > routeMaxAge {
		return "", fmt.Errorf("route for pool %s is stale (fetched %s ago), refresh required",
			req.PoolAddress, time.Since(route.FetchedAt).Round(time.Second))
	}

	body := swapRequestBody{
		Pool:        req.PoolAddress,
		Direction:   req.Direction,
		Amount:      req.Amount.String(),
		MinReceived: req.MinReceived.String(),
		MaxSpent:    req.MaxSpent.String(),
		BinArrays:   route.BinArrays,
	}

	resp, err := g.api.Post(ctx, "/swap", body)
	if err != nil {
		metrics.RecordGatewayRequest("swap", "failed")
		return "", fmt.Errorf("swap submission failed for pool %s: %w", req.PoolAddress, err)
	}
	metrics.RecordGatewayRequest("swap", "success")

	var result swapResponse
	if err := resp.DecodeJSON(&result); err != nil {
		return "", fmt.Errorf("failed to decode swap response for pool %s: %w", req.PoolAddress, err)
	}

	if result.Error != "" {
		return "", fmt.Errorf("swap rejected for pool %s: %s", req.PoolAddress, result.Error)
	}

	// The swap service reports confirmation by signature; reject anything
	// that is not a valid Solana signature before recording it.
	if _, err := solana.SignatureFromBase58(result.Signature); err != nil {
		return "", fmt.Errorf("swap service returned malformed signature %q: %w", result.Signature, err)
	}

	return result.Signature, nil
}
