package router

import (
	"errors"
	"fmt"

	"github.com/Dosik13/AMMs-deepdive/internal/money"
)

var (
	// ErrInvalidTokenAddress is returned when a token identity is the
	// zero address.
	ErrInvalidTokenAddress = errors.New("router: invalid token address")

	// ErrInvalidAmount is returned when the driving amount of an
	// operation is zero or nil.
	ErrInvalidAmount = errors.New("router: invalid amount")

	// ErrDeadlineExpired is returned when the operation deadline has
	// passed before execution started.
	ErrDeadlineExpired = errors.New("router: deadline expired")

	// ErrNoPoolAvailable is returned when no fee tier yields a usable
	// pool for the pair.
	ErrNoPoolAvailable = errors.New("router: no pool available")

	// ErrSlippageExceeded is returned when a swap violates the caller's
	// slippage tolerance.
	ErrSlippageExceeded = errors.New("router: slippage exceeded")

	// ErrNotPositionOwner is returned when the caller does not own the
	// position it is trying to modify.
	ErrNotPositionOwner = errors.New("router: caller is not the position owner")

	// ErrZeroLiquidity is returned when a decrease requests no
	// liquidity.
	ErrZeroLiquidity = errors.New("router: zero liquidity")

	// ErrToleranceOutOfRange is returned when a tolerance update falls
	// outside [0, 10000] bps.
	ErrToleranceOutOfRange = errors.New("router: slippage tolerance out of range")

	// ErrIndexOutOfBounds is returned for history lookups past the end
	// of a caller's ledger.
	ErrIndexOutOfBounds = errors.New("router: history index out of bounds")

	// ErrNoSwapsFound is returned when a caller with no swap history
	// asks for its last swap.
	ErrNoSwapsFound = errors.New("router: no swaps found")

	// ErrNoLiquidityActions is returned when a caller with no liquidity
	// history asks for its last action.
	ErrNoLiquidityActions = errors.New("router: no liquidity actions found")
)

// SlippageError reports a post-trade tolerance violation with the actual
// and tolerated slippage in basis points. It unwraps to
// ErrSlippageExceeded.
type SlippageError struct {
	ActualBPS    money.BPS
	ToleranceBPS money.BPS
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("router: slippage exceeded: actual %s > tolerated %s", e.ActualBPS, e.ToleranceBPS)
}

func (e *SlippageError) Unwrap() error {
	return ErrSlippageExceeded
}
