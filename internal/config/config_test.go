package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"DB_NAME":          os.Getenv("DB_NAME"),
		"DB_HOST":          os.Getenv("DB_HOST"),
		"DB_USER":          os.Getenv("DB_USER"),
		"DB_PASSWORD":      os.Getenv("DB_PASSWORD"),
		"DB_PORT":          os.Getenv("DB_PORT"),
		"RPC_ENDPOINTS":    os.Getenv("RPC_ENDPOINTS"),
		"DEX_API_BASE_URL": os.Getenv("DEX_API_BASE_URL"),
		"SWAP_SERVICE_URL": os.Getenv("SWAP_SERVICE_URL"),
		"CHECK_INTERVAL":   os.Getenv("CHECK_INTERVAL"),
		"TICK_INTERVAL":    os.Getenv("TICK_INTERVAL"),
		"POOL_TIMEOUT":     os.Getenv("POOL_TIMEOUT"),
		"POOL_CONCURRENCY": os.Getenv("POOL_CONCURRENCY"),
		"API_PORT":         os.Getenv("API_PORT"),
		"METRICS_PORT":     os.Getenv("METRICS_PORT"),
		"LOG_LEVEL":        os.Getenv("LOG_LEVEL"),
	}

	// Restore env vars after test
	defer func() {
		for key, value := range originalVars {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	setRequired := func() {
		os.Setenv("DB_NAME", "rebalancer")
		os.Setenv("DB_USER", "postgres")
		os.Setenv("RPC_ENDPOINTS", "https://api.mainnet-beta.solana.com,https://rpc.ankr.com/solana")
	}

	clearOptional := func() {
		for _, key := range []string{
			"DB_HOST", "DB_PASSWORD", "DB_PORT",
			"DEX_API_BASE_URL", "SWAP_SERVICE_URL",
			"CHECK_INTERVAL", "TICK_INTERVAL", "POOL_TIMEOUT", "POOL_CONCURRENCY",
			"API_PORT", "METRICS_PORT", "LOG_LEVEL",
		} {
			os.Unsetenv(key)
		}
	}

	t.Run("successful load with all vars", func(t *testing.T) {
		setRequired()
		os.Setenv("DB_HOST", "db.internal")
		os.Setenv("DB_PASSWORD", "secret")
		os.Setenv("CHECK_INTERVAL", "2m")
		os.Setenv("TICK_INTERVAL", "30s")
		os.Setenv("POOL_TIMEOUT", "45s")
		os.Setenv("POOL_CONCURRENCY", "8")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "rebalancer", cfg.DBName)
		assert.Equal(t, "db.internal", cfg.DBHost)
		assert.Equal(t, []string{"https://api.mainnet-beta.solana.com", "https://rpc.ankr.com/solana"}, cfg.RPCEndpoints)
		assert.Equal(t, 2*time.Minute, cfg.CheckInterval)
		assert.Equal(t, 30*time.Second, cfg.TickInterval)
		assert.Equal(t, 45*time.Second, cfg.PoolTimeout)
		assert.Equal(t, 8, cfg.PoolConcurrency)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("missing RPC endpoints", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Unsetenv("RPC_ENDPOINTS")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "RPC_ENDPOINTS environment variable is required")
	})

	t.Run("missing database name", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Unsetenv("DB_NAME")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "DB_NAME is required")
	})

	t.Run("invalid check interval", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Setenv("CHECK_INTERVAL", "not-a-duration")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid CHECK_INTERVAL")
	})

	t.Run("check interval below minimum", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Setenv("CHECK_INTERVAL", "100ms")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "CHECK_INTERVAL must be at least 1s")
	})

	t.Run("invalid pool concurrency", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Setenv("POOL_CONCURRENCY", "0")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "POOL_CONCURRENCY must be at least 1")
	})

	t.Run("invalid log level", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Setenv("LOG_LEVEL", "verbose")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid LOG_LEVEL")
	})

	t.Run("defaults are applied", func(t *testing.T) {
		clearOptional()
		setRequired()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "5432", cfg.DBPort)
		assert.Equal(t, "https://dlmm-api.meteora.ag", cfg.DexAPIBaseURL)
		assert.Equal(t, 60*time.Second, cfg.CheckInterval)
		assert.Equal(t, 15*time.Second, cfg.TickInterval)
		assert.Equal(t, 30*time.Second, cfg.PoolTimeout)
		assert.Equal(t, 4, cfg.PoolConcurrency)
		assert.Equal(t, "8080", cfg.APIPort)
		assert.Equal(t, "9100", cfg.MetricsPort)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("RPC endpoints are trimmed", func(t *testing.T) {
		clearOptional()
		setRequired()
		os.Setenv("RPC_ENDPOINTS", " https://a.example.com , https://b.example.com ")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.RPCEndpoints)
	})
}
