package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the rebalancer service
type Config struct {
	// Database configuration
	DBName     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBPort     string
	DBSSLMode  string

	// RPC configuration
	RPCEndpoints []string

	// DEX gateway configuration
	DexAPIBaseURL  string
	SwapServiceURL string

	// Reconciliation worker configuration
	CheckInterval   time.Duration
	PoolConcurrency int
	PoolTimeout     time.Duration

	// Market-maker tick configuration. This is a separate timer from the
	// reconciliation sweep and must stay independently configurable.
	TickInterval time.Duration

	// HTTP configuration
	APIPort     string
	MetricsPort string

	// Logging configuration
	LogLevel string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		DBName:         getEnv("DB_NAME", ""),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBUser:         getEnv("DB_USER", ""),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DexAPIBaseURL:  getEnv("DEX_API_BASE_URL", "https://dlmm-api.meteora.ag"),
		SwapServiceURL: getEnv("SWAP_SERVICE_URL", ""),
		APIPort:        getEnv("API_PORT", "8080"),
		MetricsPort:    getEnv("METRICS_PORT", "9100"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	// Parse RPC endpoints
	rpcEndpointsStr := getEnv("RPC_ENDPOINTS", "")
	if rpcEndpointsStr == "" {
		return cfg, fmt.Errorf("RPC_ENDPOINTS environment variable is required")
	}
	cfg.RPCEndpoints = strings.Split(rpcEndpointsStr, ",")
	for i, endpoint := range cfg.RPCEndpoints {
		cfg.RPCEndpoints[i] = strings.TrimSpace(endpoint)
	}

	var err error
	cfg.CheckInterval, err = parseDurationEnv("CHECK_INTERVAL", 60*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid CHECK_INTERVAL: %w", err)
	}

	cfg.TickInterval, err = parseDurationEnv("TICK_INTERVAL", 15*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}

	cfg.PoolTimeout, err = parseDurationEnv("POOL_TIMEOUT", 30*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid POOL_TIMEOUT: %w", err)
	}

	cfg.PoolConcurrency, err = parseIntEnv("POOL_CONCURRENCY", 4)
	if err != nil {
		return cfg, fmt.Errorf("invalid POOL_CONCURRENCY: %w", err)
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.DBUser == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if len(c.RPCEndpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}

	if c.CheckInterval < time.Second {
		return fmt.Errorf("CHECK_INTERVAL must be at least 1s")
	}

	if c.TickInterval < time.Second {
		return fmt.Errorf("TICK_INTERVAL must be at least 1s")
	}

	if c.PoolConcurrency < 1 {
		return fmt.Errorf("POOL_CONCURRENCY must be at least 1")
	}

	if c.PoolTimeout < time.Second {
		return fmt.Errorf("POOL_TIMEOUT must be at least 1s")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

// parseDurationEnv parses a duration environment variable with a default value
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}
