package dex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/cache"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// Minimal factory ABI: getPool(tokenA, tokenB, fee) -> pool address.
const factoryABI = `[
	{"inputs":[
		{"internalType":"address","name":"tokenA","type":"address"},
		{"internalType":"address","name":"tokenB","type":"address"},
		{"internalType":"uint24","name":"fee","type":"uint24"}],
	"name":"getPool",
	"outputs":[{"internalType":"address","name":"pool","type":"address"}],
	"stateMutability":"view","type":"function"}
]`

// Pool addresses are deterministic and immutable once created; absence is
// the only answer that can change, so cache hits are kept short of forever.
const poolAddressTTL = 10 * time.Minute

// FactoryRegistry implements PoolRegistry against a Uniswap V3 factory.
type FactoryRegistry struct {
	sender  *txSender
	factory common.Address
	abi     abi.ABI
	cache   cache.Cache
	logger  *observability.Logger
	metrics *observability.Metrics
}

// FactoryRegistryConfig holds pool registry configuration.
type FactoryRegistryConfig struct {
	Sender  *txSender
	Factory common.Address
	Cache   cache.Cache
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// NewFactoryRegistry creates a PoolRegistry backed by factory getPool calls.
func NewFactoryRegistry(cfg FactoryRegistryConfig) (*FactoryRegistry, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("transaction sender is required")
	}
	if cfg.Factory == (common.Address{}) {
		return nil, fmt.Errorf("factory address is required")
	}

	parsed, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	return &FactoryRegistry{
		sender:  cfg.Sender,
		factory: cfg.Factory,
		abi:     parsed,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// PoolAddress resolves the pool for (tokenA, tokenB, fee). The zero
// address means no pool exists at that tier.
func (r *FactoryRegistry) PoolAddress(ctx context.Context, tokenA, tokenB common.Address, fee FeeTier) (common.Address, error) {
	t0, t1 := SortTokens(tokenA, tokenB)

	key := fmt.Sprintf("pool:%s:%s:%d", strings.ToLower(t0.Hex()), strings.ToLower(t1.Hex()), fee)
	if r.cache != nil {
		if v, err := r.cache.Get(ctx, key); err == nil {
			if hex, ok := v.(string); ok {
				if r.metrics != nil {
					r.metrics.CacheHits.Add(ctx, 1)
				}
				return common.HexToAddress(hex), nil
			}
		}
		if r.metrics != nil {
			r.metrics.CacheMisses.Add(ctx, 1)
		}
	}

	data, err := r.abi.Pack("getPool", t0, t1, fee.Big())
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPool: %w", err)
	}

	ret, err := r.sender.call(ctx, r.factory, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getPool(fee=%d): %w", fee, err)
	}

	out, err := r.abi.Unpack("getPool", ret)
	if err != nil || len(out) != 1 {
		return common.Address{}, fmt.Errorf("unpack getPool(fee=%d): %w", fee, err)
	}
	addr := out[0].(common.Address)

	if r.cache != nil && addr != (common.Address{}) {
		if err := r.cache.Set(ctx, key, addr.Hex(), poolAddressTTL); err != nil && r.logger != nil {
			r.logger.LogWarn(ctx, "failed to cache pool address", "key", key, "error", err)
		}
	}

	return addr, nil
}
