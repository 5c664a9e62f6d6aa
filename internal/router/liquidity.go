package router

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
)

// IncreaseLiquidity adds liquidity to a position the caller owns. Both
// desired amounts are collected up front; whatever the position did not
// consume is returned. Ownership is checked against the registry on
// every call.
func (e *Engine) IncreaseLiquidity(ctx context.Context, order IncreaseOrder) (*LiquidityResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.increase_liquidity")
	defer span.End()

	if err := e.validateLiquidityOrder(order.Caller, order.TokenID, order.Deadline); err != nil {
		return nil, err
	}
	desired0 := orZero(order.Amount0Desired)
	desired1 := orZero(order.Amount1Desired)
	if desired0.Sign() < 0 || desired1.Sign() < 0 || (desired0.Sign() == 0 && desired1.Sign() == 0) {
		return nil, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(ctx, order.Caller, order.TokenID); err != nil {
		return nil, err
	}

	token0, token1, err := e.positions.PositionTokens(ctx, order.TokenID)
	if err != nil {
		return nil, fmt.Errorf("resolving position tokens: %w", err)
	}

	if desired0.Sign() > 0 {
		if err := e.tokens.TransferFrom(ctx, token0, order.Caller, e.custody, desired0); err != nil {
			return nil, fmt.Errorf("collecting token0: %w", err)
		}
	}
	if desired1.Sign() > 0 {
		if err := e.tokens.TransferFrom(ctx, token1, order.Caller, e.custody, desired1); err != nil {
			e.refund(ctx, token0, order.Caller, desired0)
			return nil, fmt.Errorf("collecting token1: %w", err)
		}
	}

	registry := e.positions.Address()
	if desired0.Sign() > 0 {
		if err := e.tokens.Approve(ctx, token0, registry, desired0); err != nil {
			e.refundPair(ctx, token0, token1, order.Caller, desired0, desired1)
			return nil, fmt.Errorf("approving token0: %w", err)
		}
		defer e.revokeApproval(ctx, token0, registry)
	}
	if desired1.Sign() > 0 {
		if err := e.tokens.Approve(ctx, token1, registry, desired1); err != nil {
			e.refundPair(ctx, token0, token1, order.Caller, desired0, desired1)
			return nil, fmt.Errorf("approving token1: %w", err)
		}
		defer e.revokeApproval(ctx, token1, registry)
	}

	liquidity, amount0, amount1, err := e.positions.IncreaseLiquidity(ctx, dex.IncreaseLiquidityParams{
		PositionID:     order.TokenID,
		Amount0Desired: desired0,
		Amount1Desired: desired1,
		Amount0Min:     orZero(order.Amount0Min),
		Amount1Min:     orZero(order.Amount1Min),
		Deadline:       order.Deadline,
	})
	if err != nil {
		e.refundPair(ctx, token0, token1, order.Caller, desired0, desired1)
		return nil, fmt.Errorf("increasing liquidity: %w", err)
	}

	e.refund(ctx, token0, order.Caller, new(big.Int).Sub(desired0, amount0))
	e.refund(ctx, token1, order.Caller, new(big.Int).Sub(desired1, amount1))

	seq := e.ledger.AppendLiquidity(LiquidityAction{
		Caller:    order.Caller,
		TokenID:   order.TokenID,
		Kind:      LiquidityIncrease,
		Liquidity: liquidity,
		Amount0:   amount0,
		Amount1:   amount1,
		Timestamp: e.now(),
	})
	e.metrics.RecordLiquidityAction(ctx, string(LiquidityIncrease))
	e.logger.LogInfo(ctx, "liquidity increased",
		"caller", order.Caller.Hex(), "position", order.TokenID.String(),
		"liquidity", liquidity.String(), "sequence", seq)
	e.publish(ctx, LiquidityIncreased{
		Sequence:  seq,
		Caller:    order.Caller,
		TokenID:   order.TokenID,
		Liquidity: liquidity,
		Amount0:   amount0,
		Amount1:   amount1,
		Timestamp: e.now(),
	})

	return &LiquidityResult{Liquidity: liquidity, Amount0: amount0, Amount1: amount1, Sequence: seq}, nil
}

// DecreaseLiquidity removes liquidity from a position the caller owns.
// It consumes no caller funds; the freed amounts stay claimable through
// the position registry.
func (e *Engine) DecreaseLiquidity(ctx context.Context, order DecreaseOrder) (*LiquidityResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.decrease_liquidity")
	defer span.End()

	if err := e.validateLiquidityOrder(order.Caller, order.TokenID, order.Deadline); err != nil {
		return nil, err
	}
	if order.Liquidity == nil || order.Liquidity.Sign() <= 0 {
		return nil, ErrZeroLiquidity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(ctx, order.Caller, order.TokenID); err != nil {
		return nil, err
	}

	amount0, amount1, err := e.positions.DecreaseLiquidity(ctx, dex.DecreaseLiquidityParams{
		PositionID: order.TokenID,
		Liquidity:  order.Liquidity,
		Amount0Min: orZero(order.Amount0Min),
		Amount1Min: orZero(order.Amount1Min),
		Deadline:   order.Deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("decreasing liquidity: %w", err)
	}

	seq := e.ledger.AppendLiquidity(LiquidityAction{
		Caller:    order.Caller,
		TokenID:   order.TokenID,
		Kind:      LiquidityDecrease,
		Liquidity: order.Liquidity,
		Amount0:   amount0,
		Amount1:   amount1,
		Timestamp: e.now(),
	})
	e.metrics.RecordLiquidityAction(ctx, string(LiquidityDecrease))
	e.logger.LogInfo(ctx, "liquidity decreased",
		"caller", order.Caller.Hex(), "position", order.TokenID.String(),
		"liquidity", order.Liquidity.String(), "sequence", seq)
	e.publish(ctx, LiquidityDecreased{
		Sequence:  seq,
		Caller:    order.Caller,
		TokenID:   order.TokenID,
		Liquidity: order.Liquidity,
		Amount0:   amount0,
		Amount1:   amount1,
		Timestamp: e.now(),
	})

	return &LiquidityResult{Liquidity: order.Liquidity, Amount0: amount0, Amount1: amount1, Sequence: seq}, nil
}

func (e *Engine) validateLiquidityOrder(caller common.Address, tokenID *big.Int, deadline time.Time) error {
	if caller == (common.Address{}) {
		return ErrInvalidTokenAddress
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return ErrInvalidAmount
	}
	if e.now().After(deadline) {
		return ErrDeadlineExpired
	}
	return nil
}

// requireOwner re-queries position ownership from the registry. The
// answer is never cached: ownership can change between calls.
func (e *Engine) requireOwner(ctx context.Context, caller common.Address, tokenID *big.Int) error {
	owner, err := e.positions.OwnerOf(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("resolving position owner: %w", err)
	}
	if owner != caller {
		return ErrNotPositionOwner
	}
	return nil
}

func (e *Engine) refundPair(ctx context.Context, token0, token1, to common.Address, amount0, amount1 *big.Int) {
	e.refund(ctx, token0, to, amount0)
	e.refund(ctx, token1, to, amount1)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
