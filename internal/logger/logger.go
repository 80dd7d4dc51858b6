package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New creates and configures a new zerolog logger
func New(logLevel string) zerolog.Logger {
	// Set global log level
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure console writer for human-readable output in development
	if os.Getenv("API_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Create structured logger with common fields
	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "rebalancer").
		Logger()

	return logger
}

// WithPool adds the pool address to logger context
func WithPool(logger zerolog.Logger, poolAddress string) zerolog.Logger {
	return logger.With().Str("pool", poolAddress).Logger()
}

// WithSweep adds a sweep ID to logger context so all per-pool log lines of
// one sweep can be correlated
func WithSweep(logger zerolog.Logger, sweepID string) zerolog.Logger {
	return logger.With().Str("sweep_id", sweepID).Logger()
}

// WithRPCEndpoint adds RPC endpoint to logger context
func WithRPCEndpoint(logger zerolog.Logger, endpoint string) zerolog.Logger {
	return logger.With().Str("rpc_endpoint", endpoint).Logger()
}
