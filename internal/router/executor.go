package router

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
)

// SwapExactInput spends exactly order.AmountIn of the input token and
// delivers the output to the caller. The comparator picks the fee tier
// with the best quote; the realized output must clear the slippage
// threshold derived from the caller's minimum and tolerance.
//
// On any failure after funds were collected, whatever the custody
// account still holds from this order is returned to the caller before
// the error surfaces. History is written only after every external step
// succeeded.
func (e *Engine) SwapExactInput(ctx context.Context, order ExactInputOrder) (*SwapResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.swap_exact_input")
	defer span.End()
	start := e.now()

	if err := e.validateSwapOrder(order.Caller, order.TokenIn, order.TokenOut, order.AmountIn, order.Deadline); err != nil {
		return nil, err
	}
	minOut := order.MinAmountOut
	if minOut == nil {
		minOut = big.NewInt(0)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fee, quotedOut, err := e.comparator.bestExactInput(ctx, order.TokenIn, order.TokenOut, order.AmountIn, order.SqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, TierSelected{
		TokenIn:  order.TokenIn,
		TokenOut: order.TokenOut,
		Fee:      fee,
		Quote:    quotedOut,
	})

	tolerance := e.policy.ToleranceFor(order.Caller)
	threshold := exactInputThreshold(minOut, quotedOut, tolerance)

	// The quote already failing the caller's floor means the swap
	// cannot settle acceptably; reject before touching funds.
	if quotedOut.Cmp(minOut) < 0 {
		e.metrics.SlippageRejections.Add(ctx, 1)
		return nil, &SlippageError{ActualBPS: shortfallBPS(quotedOut, threshold), ToleranceBPS: tolerance}
	}

	if err := e.tokens.TransferFrom(ctx, order.TokenIn, order.Caller, e.custody, order.AmountIn); err != nil {
		return nil, fmt.Errorf("collecting input token: %w", err)
	}

	if err := e.tokens.Approve(ctx, order.TokenIn, e.router.Address(), order.AmountIn); err != nil {
		e.refund(ctx, order.TokenIn, order.Caller, order.AmountIn)
		return nil, fmt.Errorf("approving swap router: %w", err)
	}
	defer e.revokeApproval(ctx, order.TokenIn, e.router.Address())

	amountOut, err := e.router.ExactInputSingle(ctx, dex.ExactInputParams{
		TokenIn:           order.TokenIn,
		TokenOut:          order.TokenOut,
		Fee:               fee,
		Recipient:         e.custody,
		Deadline:          order.Deadline,
		AmountIn:          order.AmountIn,
		AmountOutMinimum:  minOut,
		SqrtPriceLimitX96: order.SqrtPriceLimitX96,
	})
	if err != nil {
		e.refund(ctx, order.TokenIn, order.Caller, order.AmountIn)
		return nil, fmt.Errorf("executing exact-input swap: %w", err)
	}

	if actual := shortfallBPS(amountOut, threshold); actual > tolerance {
		e.metrics.SlippageRejections.Add(ctx, 1)
		e.refund(ctx, order.TokenOut, order.Caller, amountOut)
		return nil, &SlippageError{ActualBPS: actual, ToleranceBPS: tolerance}
	}

	if err := e.tokens.Transfer(ctx, order.TokenOut, order.Caller, amountOut); err != nil {
		return nil, fmt.Errorf("delivering output token: %w", err)
	}

	seq := e.ledger.AppendSwap(SwapAction{
		Caller:    order.Caller,
		TokenIn:   order.TokenIn,
		TokenOut:  order.TokenOut,
		Fee:       fee,
		AmountIn:  order.AmountIn,
		AmountOut: amountOut,
		Timestamp: e.now(),
	})
	e.metrics.RecordSwap(ctx, "exact_input", start)
	e.logger.LogInfo(ctx, "exact-input swap executed",
		"caller", order.Caller.Hex(), "fee", uint32(fee), "sequence", seq,
		"amount_in", order.AmountIn.String(), "amount_out", amountOut.String())
	e.publish(ctx, ExactInputExecuted{
		Sequence:  seq,
		Caller:    order.Caller,
		TokenIn:   order.TokenIn,
		TokenOut:  order.TokenOut,
		Fee:       fee,
		AmountIn:  order.AmountIn,
		AmountOut: amountOut,
		Timestamp: e.now(),
	})

	return &SwapResult{Fee: fee, AmountIn: order.AmountIn, AmountOut: amountOut, Sequence: seq}, nil
}

// SwapExactOutput delivers exactly order.AmountOut of the output token
// to the caller while spending at most order.MaxAmountIn. The caller is
// charged only what the swap actually consumed; the rest of the
// collected maximum is returned.
func (e *Engine) SwapExactOutput(ctx context.Context, order ExactOutputOrder) (*SwapResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.swap_exact_output")
	defer span.End()
	start := e.now()

	if err := e.validateSwapOrder(order.Caller, order.TokenIn, order.TokenOut, order.AmountOut, order.Deadline); err != nil {
		return nil, err
	}
	if order.MaxAmountIn == nil || order.MaxAmountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fee, quotedIn, err := e.comparator.bestExactOutput(ctx, order.TokenIn, order.TokenOut, order.AmountOut, order.SqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, TierSelected{
		TokenIn:  order.TokenIn,
		TokenOut: order.TokenOut,
		Fee:      fee,
		Quote:    quotedIn,
	})

	tolerance := e.policy.ToleranceFor(order.Caller)
	threshold := exactOutputThreshold(order.MaxAmountIn, quotedIn, tolerance)

	// The quote already exceeding the caller's cap means the swap
	// cannot settle acceptably; reject before touching funds.
	if quotedIn.Cmp(order.MaxAmountIn) > 0 {
		e.metrics.SlippageRejections.Add(ctx, 1)
		return nil, &SlippageError{ActualBPS: overrunBPS(quotedIn, threshold), ToleranceBPS: tolerance}
	}

	if err := e.tokens.TransferFrom(ctx, order.TokenIn, order.Caller, e.custody, order.MaxAmountIn); err != nil {
		return nil, fmt.Errorf("collecting input token: %w", err)
	}

	if err := e.tokens.Approve(ctx, order.TokenIn, e.router.Address(), order.MaxAmountIn); err != nil {
		e.refund(ctx, order.TokenIn, order.Caller, order.MaxAmountIn)
		return nil, fmt.Errorf("approving swap router: %w", err)
	}
	defer e.revokeApproval(ctx, order.TokenIn, e.router.Address())

	amountIn, err := e.router.ExactOutputSingle(ctx, dex.ExactOutputParams{
		TokenIn:           order.TokenIn,
		TokenOut:          order.TokenOut,
		Fee:               fee,
		Recipient:         e.custody,
		Deadline:          order.Deadline,
		AmountOut:         order.AmountOut,
		AmountInMaximum:   order.MaxAmountIn,
		SqrtPriceLimitX96: order.SqrtPriceLimitX96,
	})
	if err != nil {
		e.refund(ctx, order.TokenIn, order.Caller, order.MaxAmountIn)
		return nil, fmt.Errorf("executing exact-output swap: %w", err)
	}

	unspent := new(big.Int).Sub(order.MaxAmountIn, amountIn)

	if actual := overrunBPS(amountIn, threshold); actual > tolerance {
		e.metrics.SlippageRejections.Add(ctx, 1)
		if unspent.Sign() > 0 {
			e.refund(ctx, order.TokenIn, order.Caller, unspent)
		}
		e.refund(ctx, order.TokenOut, order.Caller, order.AmountOut)
		return nil, &SlippageError{ActualBPS: actual, ToleranceBPS: tolerance}
	}

	if unspent.Sign() > 0 {
		if err := e.tokens.Transfer(ctx, order.TokenIn, order.Caller, unspent); err != nil {
			return nil, fmt.Errorf("returning unspent input: %w", err)
		}
	}
	if err := e.tokens.Transfer(ctx, order.TokenOut, order.Caller, order.AmountOut); err != nil {
		return nil, fmt.Errorf("delivering output token: %w", err)
	}

	seq := e.ledger.AppendSwap(SwapAction{
		Caller:    order.Caller,
		TokenIn:   order.TokenIn,
		TokenOut:  order.TokenOut,
		Fee:       fee,
		AmountIn:  amountIn,
		AmountOut: order.AmountOut,
		Timestamp: e.now(),
	})
	e.metrics.RecordSwap(ctx, "exact_output", start)
	e.logger.LogInfo(ctx, "exact-output swap executed",
		"caller", order.Caller.Hex(), "fee", uint32(fee), "sequence", seq,
		"amount_in", amountIn.String(), "amount_out", order.AmountOut.String())
	e.publish(ctx, ExactOutputExecuted{
		Sequence:  seq,
		Caller:    order.Caller,
		TokenIn:   order.TokenIn,
		TokenOut:  order.TokenOut,
		Fee:       fee,
		AmountIn:  amountIn,
		AmountOut: order.AmountOut,
		Timestamp: e.now(),
	})

	return &SwapResult{Fee: fee, AmountIn: amountIn, AmountOut: order.AmountOut, Sequence: seq}, nil
}

func (e *Engine) validateSwapOrder(caller, tokenIn, tokenOut common.Address, amount *big.Int, deadline time.Time) error {
	if caller == (common.Address{}) || tokenIn == (common.Address{}) || tokenOut == (common.Address{}) || tokenIn == tokenOut {
		return ErrInvalidTokenAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if e.now().After(deadline) {
		return ErrDeadlineExpired
	}
	return nil
}

// refund returns amount of token from custody to the caller. A refund
// that itself fails is logged and counted; the original error still
// wins.
func (e *Engine) refund(ctx context.Context, token, to common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	if err := e.tokens.Transfer(ctx, token, to, amount); err != nil {
		e.logger.LogError(ctx, "refund failed", err,
			"token", token.Hex(), "to", to.Hex(), "amount", amount.String())
		e.metrics.RecordError(ctx, "refund")
	}
}

// revokeApproval zeroes the spender's allowance after an operation,
// whatever its outcome.
func (e *Engine) revokeApproval(ctx context.Context, token, spender common.Address) {
	if err := e.tokens.Approve(ctx, token, spender, big.NewInt(0)); err != nil {
		e.logger.LogWarn(ctx, "allowance revoke failed",
			"token", token.Hex(), "spender", spender.Hex(), "error", err)
		e.metrics.RecordError(ctx, "revoke_approval")
	}
}
