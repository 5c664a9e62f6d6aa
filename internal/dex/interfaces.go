package dex

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenService moves ERC-20 balances and manages spender allowances.
// Every call fails the enclosing operation on insufficient balance or
// allowance; partial transfers do not exist.
type TokenService interface {
	// Transfer moves tokens held by this system to another account.
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error

	// TransferFrom moves tokens between third-party accounts using a
	// previously granted allowance.
	TransferFrom(ctx context.Context, token, from, to common.Address, amount *big.Int) error

	// Approve sets a spender's allowance over this system's balance.
	// Approving zero revokes.
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

// PoolRegistry resolves (tokenA, tokenB, fee) to a pool address.
// The zero address means no pool exists for that tier.
type PoolRegistry interface {
	PoolAddress(ctx context.Context, tokenA, tokenB common.Address, fee FeeTier) (common.Address, error)
}

// Quoter simulates swaps against a single pool without executing them.
// A per-tier failure (no pool, no liquidity, simulation revert) surfaces
// as an error; callers decide whether that is fatal.
type Quoter interface {
	QuoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, fee FeeTier, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
	QuoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, fee FeeTier, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, error)
}

// SwapRouter executes single-pool swaps and reports the realized
// counter-amount. It enforces its own deadline and price limit.
type SwapRouter interface {
	// Address is the router contract address, used as the approval target.
	Address() common.Address

	// Factory returns the pool factory the router routes through.
	Factory(ctx context.Context) (common.Address, error)

	ExactInputSingle(ctx context.Context, p ExactInputParams) (amountOut *big.Int, err error)
	ExactOutputSingle(ctx context.Context, p ExactOutputParams) (amountIn *big.Int, err error)
}

// PositionRegistry manages liquidity positions. Ownership answers are
// authoritative here and never cached by callers.
type PositionRegistry interface {
	// Address is the registry contract address, used as the approval target.
	Address() common.Address

	OwnerOf(ctx context.Context, positionID *big.Int) (common.Address, error)
	PositionTokens(ctx context.Context, positionID *big.Int) (token0, token1 common.Address, err error)
	IncreaseLiquidity(ctx context.Context, p IncreaseLiquidityParams) (liquidity, amount0, amount1 *big.Int, err error)
	DecreaseLiquidity(ctx context.Context, p DecreaseLiquidityParams) (amount0, amount1 *big.Int, err error)
}
