package amm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/rebalancer/internal/models"
)

func testEndpointPool(t *testing.T) *EndpointPool {
	t.Helper()
	pool, err := NewEndpointPool([]string{"http://localhost:1"}, zerolog.Nop())
	require.NoError(t, err)
	return pool
}

func TestFetchPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pair/PoolA", r.URL.Path)
		json.NewEncoder(w).Encode(PairInfo{
			Address:      "PoolA",
			Name:         "SOL-USDC",
			ReserveX:     "So11111111111111111111111111111111111111112",
			ReserveY:     "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			CurrentPrice: 148.25,
		})
	}))
	defer server.Close()

	reader := NewReader(testEndpointPool(t), server.URL, zerolog.Nop())

	pair, err := reader.fetchPair(context.Background(), "PoolA")
	require.NoError(t, err)
	assert.Equal(t, "PoolA", pair.Address)
	assert.Equal(t, "So11111111111111111111111111111111111111112", pair.ReserveX)
	assert.Equal(t, 148.25, pair.CurrentPrice)
}

func TestFetchPairMissingReserves(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PairInfo{Address: "PoolA", CurrentPrice: 1})
	}))
	defer server.Close()

	reader := NewReader(testEndpointPool(t), server.URL, zerolog.Nop())

	_, err := reader.fetchPair(context.Background(), "PoolA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without reserve accounts")
}

func TestGetPoolStateAPIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "pair not found", http.StatusNotFound)
	}))
	defer server.Close()

	reader := NewReader(testEndpointPool(t), server.URL, zerolog.Nop())

	_, err := reader.GetPoolState(context.Background(), models.Pool{Address: "PoolA"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pair PoolA")
}

func TestOrientPair(t *testing.T) {
	pool := models.Pool{
		Address:    "PoolA",
		TokenAMint: "MintSOL",
		TokenBMint: "MintUSDC",
	}

	t.Run("canonical orientation", func(t *testing.T) {
		pair := &PairInfo{
			MintX:        "MintSOL",
			MintY:        "MintUSDC",
			ReserveX:     "ReserveSOL",
			ReserveY:     "ReserveUSDC",
			CurrentPrice: 148.25,
		}

		reserveA, reserveB, price, err := orientPair(pool, pair)
		require.NoError(t, err)
		assert.Equal(t, "ReserveSOL", reserveA)
		assert.Equal(t, "ReserveUSDC", reserveB)
		assert.True(t, price.Equal(decimal.NewFromFloat(148.25)), "price = %s", price)
	})

	t.Run("inverted orientation swaps reserves and inverts price", func(t *testing.T) {
		pair := &PairInfo{
			MintX:        "MintUSDC",
			MintY:        "MintSOL",
			ReserveX:     "ReserveUSDC",
			ReserveY:     "ReserveSOL",
			CurrentPrice: 0.008,
		}

		reserveA, reserveB, price, err := orientPair(pool, pair)
		require.NoError(t, err)
		assert.Equal(t, "ReserveSOL", reserveA)
		assert.Equal(t, "ReserveUSDC", reserveB)
		assert.True(t, price.Equal(decimal.NewFromInt(125)), "price = %s", price)
	})

	t.Run("mismatched mints rejected", func(t *testing.T) {
		pair := &PairInfo{
			MintX:        "MintBONK",
			MintY:        "MintUSDC",
			ReserveX:     "ReserveBONK",
			ReserveY:     "ReserveUSDC",
			CurrentPrice: 1,
		}

		_, _, _, err := orientPair(pool, pair)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "do not match pool PoolA token mints")
	})

	t.Run("inverted zero price rejected", func(t *testing.T) {
		pair := &PairInfo{
			MintX:        "MintUSDC",
			MintY:        "MintSOL",
			ReserveX:     "ReserveUSDC",
			ReserveY:     "ReserveSOL",
			CurrentPrice: 0,
		}

		_, _, _, err := orientPair(pool, pair)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot invert zero price")
	})

	t.Run("negative price rejected", func(t *testing.T) {
		pair := &PairInfo{
			MintX:        "MintSOL",
			MintY:        "MintUSDC",
			ReserveX:     "ReserveSOL",
			ReserveY:     "ReserveUSDC",
			CurrentPrice: -1,
		}

		_, _, _, err := orientPair(pool, pair)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative price")
	})
}

func TestFetchReserveBalanceMalformedAccount(t *testing.T) {
	reader := NewReader(testEndpointPool(t), "http://unused.invalid", zerolog.Nop())

	_, err := reader.fetchReserveBalance(context.Background(), "not-base58!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed reserve account")
}
