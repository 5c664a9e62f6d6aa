// Package dex defines the external protocol surface the routing engine
// depends on: token transfers, pool lookup, quoting, swap execution, and
// liquidity-position management. The interfaces mirror the Uniswap V3
// periphery contracts; on-chain adapters in this package speak to a real
// EVM node, while tests substitute in-memory fakes.
package dex

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FeeTier is a Uniswap V3 fee bracket in hundredths of a bip
// (e.g. 3000 = 0.3%). A separate pool instance may exist per tier.
type FeeTier uint32

const (
	FeeTier500   FeeTier = 500   // 0.05%
	FeeTier3000  FeeTier = 3000  // 0.3%
	FeeTier10000 FeeTier = 10000 // 1%
)

// StandardFeeTiers returns the tiers the router scans, in ascending order.
// Scan order is part of the routing contract: ties between equally good
// quotes resolve to the lowest tier.
func StandardFeeTiers() []FeeTier {
	return []FeeTier{FeeTier500, FeeTier3000, FeeTier10000}
}

// Percent returns the tier's fee as a percentage (3000 -> 0.3).
func (f FeeTier) Percent() float64 {
	return float64(f) / 10000
}

// Big returns the tier as a *big.Int for ABI encoding (uint24 on the wire).
func (f FeeTier) Big() *big.Int {
	return big.NewInt(int64(f))
}

// SortTokens returns the pair in the canonical order the factory expects
// (tokenA < tokenB by address bytes).
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if b.Cmp(a) < 0 {
		return b, a
	}
	return a, b
}

// ExactInputParams parameterizes a single-pool exact-input swap.
type ExactInputParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               FeeTier
	Recipient         common.Address
	Deadline          time.Time
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// ExactOutputParams parameterizes a single-pool exact-output swap.
type ExactOutputParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               FeeTier
	Recipient         common.Address
	Deadline          time.Time
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// IncreaseLiquidityParams parameterizes adding liquidity to an existing
// position.
type IncreaseLiquidityParams struct {
	PositionID     *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       time.Time
}

// DecreaseLiquidityParams parameterizes removing liquidity from an
// existing position. The freed token amounts stay claimable through the
// position registry's own collect mechanism.
type DecreaseLiquidityParams struct {
	PositionID *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   time.Time
}
