package router

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
)

// SwapAction is one completed swap as recorded in a caller's ledger.
// Amounts are the actual settled values, not the requested bounds.
type SwapAction struct {
	Sequence  uint64         `json:"sequence"`
	Caller    common.Address `json:"caller"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	Fee       dex.FeeTier    `json:"fee"`
	AmountIn  *big.Int       `json:"amount_in"`
	AmountOut *big.Int       `json:"amount_out"`
	Timestamp time.Time      `json:"timestamp"`
}

// LiquidityActionKind discriminates the two position operations.
type LiquidityActionKind string

const (
	LiquidityIncrease LiquidityActionKind = "increase"
	LiquidityDecrease LiquidityActionKind = "decrease"
)

// LiquidityAction is one completed position change as recorded in a
// caller's ledger.
type LiquidityAction struct {
	Sequence  uint64              `json:"sequence"`
	Caller    common.Address      `json:"caller"`
	TokenID   *big.Int            `json:"token_id"`
	Kind      LiquidityActionKind `json:"kind"`
	Liquidity *big.Int            `json:"liquidity"`
	Amount0   *big.Int            `json:"amount0"`
	Amount1   *big.Int            `json:"amount1"`
	Timestamp time.Time           `json:"timestamp"`
}

// ExactInputOrder asks to spend exactly AmountIn of TokenIn and receive
// at least MinAmountOut of TokenOut by Deadline. SqrtPriceLimitX96
// bounds the pool price the swap may move to; nil means no limit.
type ExactInputOrder struct {
	Caller            common.Address
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	MinAmountOut      *big.Int
	SqrtPriceLimitX96 *big.Int
	Deadline          time.Time
}

// ExactOutputOrder asks to receive exactly AmountOut of TokenOut while
// spending at most MaxAmountIn of TokenIn by Deadline.
// SqrtPriceLimitX96 bounds the pool price the swap may move to; nil
// means no limit.
type ExactOutputOrder struct {
	Caller            common.Address
	TokenIn           common.Address
	TokenOut          common.Address
	AmountOut         *big.Int
	MaxAmountIn       *big.Int
	SqrtPriceLimitX96 *big.Int
	Deadline          time.Time
}

// IncreaseOrder adds liquidity to an existing position. Amount0Desired
// and Amount1Desired are upper bounds collected from the caller up
// front; the unconsumed remainder is refunded.
type IncreaseOrder struct {
	Caller         common.Address
	TokenID        *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       time.Time
}

// DecreaseOrder removes Liquidity from an existing position. It
// consumes no caller funds.
type DecreaseOrder struct {
	Caller     common.Address
	TokenID    *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   time.Time
}

// SwapResult reports the settled amounts of a swap together with the
// fee tier the comparator selected.
type SwapResult struct {
	Fee       dex.FeeTier
	AmountIn  *big.Int
	AmountOut *big.Int
	Sequence  uint64
}

// LiquidityResult reports the settled amounts of a position change.
type LiquidityResult struct {
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
	Sequence  uint64
}
