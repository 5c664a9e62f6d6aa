package router

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
)

// Event is a domain event emitted by the engine after a state change
// has been committed. Events are advisory: sink failures never affect
// the operation that produced them.
type Event interface {
	// Name is a stable identifier used for routing and metrics.
	Name() string
}

// EventSink delivers engine events to an external consumer.
type EventSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	Publish(ctx context.Context, event Event) error
}

// TierSelected is emitted when the comparator settles on a fee tier.
type TierSelected struct {
	TokenIn  common.Address `json:"token_in"`
	TokenOut common.Address `json:"token_out"`
	Fee      dex.FeeTier    `json:"fee"`
	Quote    *big.Int       `json:"quote"`
}

func (TierSelected) Name() string { return "router.tier_selected" }

// ExactInputExecuted is emitted after an exact-input swap commits.
type ExactInputExecuted struct {
	Sequence  uint64         `json:"sequence"`
	Caller    common.Address `json:"caller"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	Fee       dex.FeeTier    `json:"fee"`
	AmountIn  *big.Int       `json:"amount_in"`
	AmountOut *big.Int       `json:"amount_out"`
	Timestamp time.Time      `json:"timestamp"`
}

func (ExactInputExecuted) Name() string { return "router.exact_input_executed" }

// ExactOutputExecuted is emitted after an exact-output swap commits.
type ExactOutputExecuted struct {
	Sequence  uint64         `json:"sequence"`
	Caller    common.Address `json:"caller"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	Fee       dex.FeeTier    `json:"fee"`
	AmountIn  *big.Int       `json:"amount_in"`
	AmountOut *big.Int       `json:"amount_out"`
	Timestamp time.Time      `json:"timestamp"`
}

func (ExactOutputExecuted) Name() string { return "router.exact_output_executed" }

// ToleranceUpdated is emitted when a caller changes its slippage
// tolerance.
type ToleranceUpdated struct {
	Caller common.Address `json:"caller"`
	OldBPS int64          `json:"old_bps"`
	NewBPS int64          `json:"new_bps"`
}

func (ToleranceUpdated) Name() string { return "router.tolerance_updated" }

// LiquidityIncreased is emitted after an increase-liquidity operation
// commits.
type LiquidityIncreased struct {
	Sequence  uint64         `json:"sequence"`
	Caller    common.Address `json:"caller"`
	TokenID   *big.Int       `json:"token_id"`
	Liquidity *big.Int       `json:"liquidity"`
	Amount0   *big.Int       `json:"amount0"`
	Amount1   *big.Int       `json:"amount1"`
	Timestamp time.Time      `json:"timestamp"`
}

func (LiquidityIncreased) Name() string { return "router.liquidity_increased" }

// LiquidityDecreased is emitted after a decrease-liquidity operation
// commits.
type LiquidityDecreased struct {
	Sequence  uint64         `json:"sequence"`
	Caller    common.Address `json:"caller"`
	TokenID   *big.Int       `json:"token_id"`
	Liquidity *big.Int       `json:"liquidity"`
	Amount0   *big.Int       `json:"amount0"`
	Amount1   *big.Int       `json:"amount1"`
	Timestamp time.Time      `json:"timestamp"`
}

func (LiquidityDecreased) Name() string { return "router.liquidity_decreased" }
