package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkerRunning reports whether the reconciliation loop is running
	WorkerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rebalancer_worker_running",
		Help: "Whether the reconciliation worker loop is running (1) or idle (0)",
	})

	// SweepsTotal counts completed reconciliation sweeps
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebalancer_sweeps_total",
			Help: "The total number of reconciliation sweeps",
		},
		[]string{"status"}, // completed, aborted
	)

	// SweepSeconds tracks time taken by one full sweep
	SweepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rebalancer_sweep_seconds",
		Help:    "Time taken by one full reconciliation sweep in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.5min
	})

	// PoolsChecked counts per-pool check outcomes within sweeps
	PoolsChecked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebalancer_pools_checked_total",
			Help: "The total number of per-pool checks performed by sweeps",
		},
		[]string{"outcome"}, // balanced, rebalanced, failed, skipped
	)

	// RebalancesExecuted counts trades submitted through the gateway
	RebalancesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebalancer_rebalances_executed_total",
			Help: "The total number of corrective trades submitted to the AMM gateway",
		},
		[]string{"direction", "status"}, // buy/sell, success/failed
	)

	// PendingRebalances reports pools currently flagged as needing a rebalance
	PendingRebalances = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rebalancer_pending_rebalances",
		Help: "The number of active pools currently flagged as needing a rebalance",
	})

	// GatewayRequests counts requests to the DEX gateway and RPC endpoints
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebalancer_gateway_requests_total",
			Help: "The total number of requests to the AMM gateway and RPC endpoints",
		},
		[]string{"target", "status"}, // rpc/dex_api/swap, success/failed
	)

	// RPCEndpointHealth tracks RPC endpoint health
	RPCEndpointHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rebalancer_rpc_endpoint_health",
			Help: "Health status of RPC endpoints (1 = healthy, 0 = unhealthy)",
		},
		[]string{"endpoint"},
	)

	// TickerRuns counts market-maker tick executions, separate from sweeps
	TickerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rebalancer_ticker_runs_total",
			Help: "The total number of market-maker tick runs",
		},
		[]string{"status"}, // completed, failed
	)
)

// RecordSweep records a completed or aborted sweep and its duration
func RecordSweep(status string, seconds float64) {
	SweepsTotal.WithLabelValues(status).Inc()
	SweepSeconds.Observe(seconds)
}

// RecordPoolCheck records the outcome of one per-pool check
func RecordPoolCheck(outcome string) {
	PoolsChecked.WithLabelValues(outcome).Inc()
}

// RecordRebalance records one trade submission outcome
func RecordRebalance(direction, status string) {
	RebalancesExecuted.WithLabelValues(direction, status).Inc()
}

// RecordGatewayRequest records a gateway or RPC request outcome
func RecordGatewayRequest(target, status string) {
	GatewayRequests.WithLabelValues(target, status).Inc()
}

// SetRPCEndpointHealth sets the health gauge for an RPC endpoint
func SetRPCEndpointHealth(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	RPCEndpointHealth.WithLabelValues(endpoint).Set(value)
}

// RecordTickerRun records one market-maker tick outcome
func RecordTickerRun(status string) {
	TickerRuns.WithLabelValues(status).Inc()
}
