package amm

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/wnt/rebalancer/internal/metrics"
	"golang.org/x/time/rate"
)

// EndpointPool manages a set of Solana RPC endpoints with round-robin
// selection, health cooldown and per-endpoint rate limiting
type EndpointPool struct {
	endpoints []*endpoint
	current   int
	mutex     sync.Mutex
	logger    zerolog.Logger
}

type endpoint struct {
	url           string
	client        *rpc.Client
	limiter       *rate.Limiter
	healthy       bool
	cooldownUntil time.Time
	mutex         sync.RWMutex
}

// NewEndpointPool creates an endpoint pool for the given RPC URLs
func NewEndpointPool(urls []string, logger zerolog.Logger) (*EndpointPool, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}

	endpoints := make([]*endpoint, len(urls))
	for i, url := range urls {
		endpoints[i] = &endpoint{
			url:    url,
			client: rpc.New(url),
			// ~2 req/s per endpoint keeps free tier limits comfortable
			limiter: rate.NewLimiter(rate.Limit(2.0), 5),
			healthy: true,
		}
		metrics.SetRPCEndpointHealth(url, true)
	}

	return &EndpointPool{
		endpoints: endpoints,
		current:   rand.Intn(len(endpoints)),
		logger:    logger.With().Str("component", "endpoint_pool").Logger(),
	}, nil
}

// Client returns the next available RPC client using round-robin, skipping
// endpoints that are unhealthy, cooling down or rate limited. When every
// endpoint is exhausted it waits on the first one's limiter.
func (p *EndpointPool) Client(ctx context.Context) (*rpc.Client, string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	attempts := 0
	startIndex := p.current

	for attempts < len(p.endpoints) {
		ep := p.endpoints[p.current]
		p.current = (p.current + 1) % len(p.endpoints)
		attempts++

		ep.mutex.RLock()
		inCooldown := time.Now().Before(ep.cooldownUntil)
		healthy := ep.healthy
		ep.mutex.RUnlock()

		if inCooldown || !healthy {
			continue
		}

		if ep.limiter.Allow() {
			return ep.client, ep.url, nil
		}
	}

	// All endpoints are rate limited, unhealthy or cooling down; wait for
	// the first one's limiter with context cancellation.
	ep := p.endpoints[startIndex]
	reservation := ep.limiter.Reserve()
	if !reservation.OK() {
		return nil, "", fmt.Errorf("rate limiter failed to make reservation")
	}

	if delay := reservation.Delay(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			reservation.Cancel()
			return nil, "", ctx.Err()
		}
	}

	return ep.client, ep.url, nil
}

// MarkUnhealthy marks an endpoint as unhealthy and puts it in cooldown
func (p *EndpointPool) MarkUnhealthy(url string, cooldown time.Duration) {
	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.mutex.Lock()
			ep.healthy = false
			ep.cooldownUntil = time.Now().Add(cooldown)
			ep.mutex.Unlock()

			metrics.SetRPCEndpointHealth(url, false)
			p.logger.Warn().Str("endpoint", url).Dur("cooldown", cooldown).Msg("Marked endpoint as unhealthy")
			break
		}
	}
}

// MarkHealthy marks an endpoint as healthy and clears its cooldown
func (p *EndpointPool) MarkHealthy(url string) {
	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.mutex.Lock()
			ep.healthy = true
			ep.cooldownUntil = time.Time{}
			ep.mutex.Unlock()

			metrics.SetRPCEndpointHealth(url, true)
			break
		}
	}
}

// HealthyEndpointCount returns the number of currently healthy endpoints
func (p *EndpointPool) HealthyEndpointCount() int {
	count := 0
	for _, ep := range p.endpoints {
		ep.mutex.RLock()
		if ep.healthy && !time.Now().Before(ep.cooldownUntil) {
			count++
		}
		ep.mutex.RUnlock()
	}
	return count
}
