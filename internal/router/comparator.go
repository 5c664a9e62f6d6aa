package router

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// tierComparator scans the standard fee tiers in ascending order and
// picks the one with the best quote. A tier whose pool lookup or quote
// fails is treated as unavailable and skipped; only when every tier is
// unavailable does the scan fail.
type tierComparator struct {
	pools   dex.PoolRegistry
	quoter  dex.Quoter
	logger  *observability.Logger
	metrics *observability.Metrics
}

func newTierComparator(pools dex.PoolRegistry, quoter dex.Quoter, logger *observability.Logger, metrics *observability.Metrics) *tierComparator {
	return &tierComparator{
		pools:   pools,
		quoter:  quoter,
		logger:  logger,
		metrics: metrics,
	}
}

// bestExactInput returns the tier that yields the most output for
// amountIn, and its quote. Ties keep the lower tier because the scan is
// ascending and only a strictly greater quote displaces the incumbent.
// The caller's price limit constrains every quote so the selection
// matches what the swap itself is allowed to do.
func (c *tierComparator) bestExactInput(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, priceLimit *big.Int) (dex.FeeTier, *big.Int, error) {
	var (
		bestFee   dex.FeeTier
		bestQuote *big.Int
	)
	for _, fee := range dex.StandardFeeTiers() {
		quote, ok := c.quoteTier(ctx, tokenIn, tokenOut, fee, func(ctx context.Context) (*big.Int, error) {
			return c.quoter.QuoteExactInput(ctx, tokenIn, tokenOut, fee, amountIn, priceLimit)
		})
		if !ok {
			continue
		}
		if bestQuote == nil || quote.Cmp(bestQuote) > 0 {
			bestFee, bestQuote = fee, quote
		}
	}
	if bestQuote == nil {
		return 0, nil, ErrNoPoolAvailable
	}
	c.metrics.RecordTierSelection(ctx, uint32(bestFee))
	return bestFee, bestQuote, nil
}

// bestExactOutput returns the tier that demands the least input for
// amountOut, and its quote. Ties keep the lower tier.
func (c *tierComparator) bestExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, amountOut, priceLimit *big.Int) (dex.FeeTier, *big.Int, error) {
	var (
		bestFee   dex.FeeTier
		bestQuote *big.Int
	)
	for _, fee := range dex.StandardFeeTiers() {
		quote, ok := c.quoteTier(ctx, tokenIn, tokenOut, fee, func(ctx context.Context) (*big.Int, error) {
			return c.quoter.QuoteExactOutput(ctx, tokenIn, tokenOut, fee, amountOut, priceLimit)
		})
		if !ok {
			continue
		}
		if bestQuote == nil || quote.Cmp(bestQuote) < 0 {
			bestFee, bestQuote = fee, quote
		}
	}
	if bestQuote == nil {
		return 0, nil, ErrNoPoolAvailable
	}
	c.metrics.RecordTierSelection(ctx, uint32(bestFee))
	return bestFee, bestQuote, nil
}

// quoteTier checks for a pool at the tier and runs the quote. Both a
// missing pool and a failing quote make the tier unavailable.
func (c *tierComparator) quoteTier(ctx context.Context, tokenIn, tokenOut common.Address, fee dex.FeeTier, quote func(context.Context) (*big.Int, error)) (*big.Int, bool) {
	pool, err := c.pools.PoolAddress(ctx, tokenIn, tokenOut, fee)
	if err != nil {
		c.logger.LogWarn(ctx, "pool lookup failed, skipping tier",
			"fee", uint32(fee), "error", err)
		return nil, false
	}
	if pool == (common.Address{}) {
		return nil, false
	}

	out, err := quote(ctx)
	if err != nil {
		c.logger.LogWarn(ctx, "quote failed, skipping tier",
			"fee", uint32(fee), "pool", pool.Hex(), "error", err)
		return nil, false
	}
	if out == nil || out.Sign() <= 0 {
		return nil, false
	}
	return out, true
}
