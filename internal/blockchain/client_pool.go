// Package blockchain manages the RPC connections the on-chain adapters
// run over.
package blockchain

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/semaphore"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// maxConcurrentProbes caps how many endpoints one health sweep dials at
// once.
const maxConcurrentProbes = 4

// RPCEndpoint is a single Ethereum RPC endpoint with health state. The
// client is written by the probe goroutine and read by pool callers, so
// access goes through the endpoint mutex.
type RPCEndpoint struct {
	URL string

	mu      sync.Mutex
	client  *ethclient.Client
	healthy atomic.Bool
}

func (ep *RPCEndpoint) getClient() *ethclient.Client {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.client
}

func (ep *RPCEndpoint) setClient(c *ethclient.Client) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.client = c
}

// ClientPool hands out healthy RPC clients round-robin and probes
// endpoint health in the background, reconnecting dropped endpoints.
type ClientPool struct {
	mu        sync.Mutex
	endpoints []*RPCEndpoint
	current   int
	probeSem  *semaphore.Weighted
	interval  time.Duration
	stop      context.CancelFunc
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// ClientPoolConfig holds client pool configuration.
type ClientPoolConfig struct {
	URLs          []string
	ProbeInterval time.Duration
	Logger        *observability.Logger
	Metrics       *observability.Metrics
}

// NewClientPool dials every endpoint and starts background health
// probes. At least one endpoint must be reachable at construction.
func NewClientPool(cfg ClientPoolConfig) (*ClientPool, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("at least one RPC endpoint is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	if cfg.ProbeInterval == 0 {
		cfg.ProbeInterval = 30 * time.Second
	}

	endpoints := make([]*RPCEndpoint, 0, len(cfg.URLs))
	healthyCount := 0
	for _, url := range cfg.URLs {
		ep := &RPCEndpoint{URL: url}
		if client, err := ethclient.Dial(url); err != nil {
			cfg.Logger.LogError(context.Background(), "failed to connect to RPC endpoint", err, "url", url)
		} else {
			ep.setClient(client)
			ep.healthy.Store(true)
			healthyCount++
			cfg.Logger.Info("connected to RPC endpoint", "url", url)
		}
		endpoints = append(endpoints, ep)
	}

	if healthyCount == 0 {
		return nil, fmt.Errorf("no healthy RPC endpoints available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool := &ClientPool{
		endpoints: endpoints,
		probeSem:  semaphore.NewWeighted(maxConcurrentProbes),
		interval:  cfg.ProbeInterval,
		stop:      cancel,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
	go pool.probeLoop(ctx)

	return pool, nil
}

// GetClient returns the next healthy client, round-robin.
func (cp *ClientPool) GetClient() (*ethclient.Client, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	for attempts := 0; attempts < len(cp.endpoints); attempts++ {
		ep := cp.endpoints[cp.current]
		cp.current = (cp.current + 1) % len(cp.endpoints)

		if client := ep.getClient(); ep.healthy.Load() && client != nil {
			return client, nil
		}
	}
	return nil, fmt.Errorf("no healthy RPC endpoints available")
}

// HealthyEndpointCount returns how many endpoints are currently healthy.
func (cp *ClientPool) HealthyEndpointCount() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	count := 0
	for _, ep := range cp.endpoints {
		if ep.healthy.Load() {
			count++
		}
	}
	return count
}

// EndpointStatus returns the health of every endpoint by URL.
func (cp *ClientPool) EndpointStatus() map[string]bool {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	status := make(map[string]bool, len(cp.endpoints))
	for _, ep := range cp.endpoints {
		status[ep.URL] = ep.healthy.Load()
	}
	return status
}

// Close stops health probes and closes all connections.
func (cp *ClientPool) Close() {
	cp.stop()

	cp.mu.Lock()
	defer cp.mu.Unlock()
	for _, ep := range cp.endpoints {
		if client := ep.getClient(); client != nil {
			client.Close()
			ep.setClient(nil)
		}
	}
}

func (cp *ClientPool) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(cp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cp.mu.Lock()
			endpoints := cp.endpoints
			cp.mu.Unlock()

			for _, ep := range endpoints {
				if err := cp.probeSem.Acquire(ctx, 1); err != nil {
					return
				}
				go func(ep *RPCEndpoint) {
					defer cp.probeSem.Release(1)
					cp.probe(ctx, ep)
				}(ep)
			}
		}
	}
}

// probe checks one endpoint by fetching the latest block number,
// reconnecting it first if its client was dropped.
func (cp *ClientPool) probe(ctx context.Context, ep *RPCEndpoint) {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := ep.getClient()
	if client == nil {
		dialed, err := ethclient.Dial(ep.URL)
		if err != nil {
			cp.markHealth(probeCtx, ep, false)
			return
		}
		client = dialed
		ep.setClient(client)
		cp.logger.Info("reconnected to RPC endpoint", "url", ep.URL)
	}

	if _, err := client.BlockNumber(probeCtx); err != nil {
		// Context expiry is not evidence the endpoint is down.
		if probeCtx.Err() != nil {
			return
		}
		if ep.healthy.Load() {
			cp.logger.LogError(probeCtx, "RPC endpoint health check failed", err, "url", ep.URL)
		}
		client.Close()
		ep.setClient(nil)
		cp.markHealth(probeCtx, ep, false)
		return
	}

	if !ep.healthy.Load() {
		cp.logger.Info("RPC endpoint is healthy again", "url", ep.URL)
	}
	cp.markHealth(probeCtx, ep, true)
}

func (cp *ClientPool) markHealth(ctx context.Context, ep *RPCEndpoint, healthy bool) {
	ep.healthy.Store(healthy)
	if cp.metrics != nil {
		cp.metrics.RecordRPCEndpointHealth(ctx, ep.URL, healthy)
	}
}
