// Package router implements the swap-execution and liquidity-management
// engine: best-fee-tier routing across the standard tiers, slippage
// enforcement around caller bounds, position-gated liquidity changes,
// and an append-only history ledger with global counters.
//
// The engine serializes all state-changing operations behind one mutex.
// Token and pool interactions go through the interfaces in the dex
// package; the engine itself never touches the chain directly.
package router

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/Dosik13/AMMs-deepdive/internal/dex"
	"github.com/Dosik13/AMMs-deepdive/internal/money"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// EngineConfig wires the engine's collaborators. Tokens, Pools, Quoter,
// Router, and Positions are required; the rest default to safe no-ops.
type EngineConfig struct {
	Tokens    dex.TokenService
	Pools     dex.PoolRegistry
	Quoter    dex.Quoter
	Router    dex.SwapRouter
	Positions dex.PositionRegistry

	// Custody is the account that temporarily holds caller funds while
	// an operation is in flight.
	Custody common.Address

	// DefaultTolerance applies to callers without an explicit
	// tolerance. Zero means DefaultToleranceBPS.
	DefaultTolerance money.BPS

	Sinks   []EventSink
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  trace.Tracer

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Engine executes swaps and liquidity changes on behalf of callers.
type Engine struct {
	mu sync.Mutex

	tokens    dex.TokenService
	router    dex.SwapRouter
	positions dex.PositionRegistry

	comparator *tierComparator
	policy     *SlippagePolicy
	ledger     *Ledger

	custody common.Address
	sinks   []EventSink

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	switch {
	case cfg.Tokens == nil:
		return nil, errors.New("router: token service is required")
	case cfg.Pools == nil:
		return nil, errors.New("router: pool registry is required")
	case cfg.Quoter == nil:
		return nil, errors.New("router: quoter is required")
	case cfg.Router == nil:
		return nil, errors.New("router: swap router is required")
	case cfg.Positions == nil:
		return nil, errors.New("router: position registry is required")
	case cfg.Custody == (common.Address{}):
		return nil, errors.New("router: custody account is required")
	}

	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}
	if cfg.Metrics == nil {
		m, err := observability.NewMetrics("router", false)
		if err != nil {
			return nil, err
		}
		cfg.Metrics = m
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracenoop.NewTracerProvider().Tracer("router")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	defaultTol := cfg.DefaultTolerance
	if defaultTol == 0 {
		defaultTol = DefaultToleranceBPS
	}
	if !defaultTol.InRange() {
		return nil, ErrToleranceOutOfRange
	}

	return &Engine{
		tokens:     cfg.Tokens,
		router:     cfg.Router,
		positions:  cfg.Positions,
		comparator: newTierComparator(cfg.Pools, cfg.Quoter, cfg.Logger, cfg.Metrics),
		policy:     NewSlippagePolicy(defaultTol),
		ledger:     NewLedger(),
		custody:    cfg.Custody,
		sinks:      cfg.Sinks,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		now:        cfg.Clock,
	}, nil
}

// SetSlippageTolerance updates the caller's tolerance and returns the
// previously effective value.
func (e *Engine) SetSlippageTolerance(ctx context.Context, caller common.Address, tolerance money.BPS) (money.BPS, error) {
	old, err := e.policy.Set(caller, tolerance)
	if err != nil {
		return 0, err
	}

	e.logger.LogInfo(ctx, "slippage tolerance updated",
		"caller", caller.Hex(), "old_bps", int64(old), "new_bps", int64(tolerance))
	e.publish(ctx, ToleranceUpdated{
		Caller: caller,
		OldBPS: int64(old),
		NewBPS: int64(tolerance),
	})
	return old, nil
}

// SlippageTolerance returns the caller's effective tolerance.
func (e *Engine) SlippageTolerance(caller common.Address) money.BPS {
	return e.policy.ToleranceFor(caller)
}

// History returns the engine's ledger for read access.
func (e *Engine) History() *Ledger {
	return e.ledger
}

// SwapAt returns the caller's swap at position index, oldest first.
func (e *Engine) SwapAt(caller common.Address, index int) (SwapAction, error) {
	return e.ledger.SwapAt(caller, index)
}

// LastSwap returns the caller's most recent swap.
func (e *Engine) LastSwap(caller common.Address) (SwapAction, error) {
	return e.ledger.LastSwap(caller)
}

// SwapCount returns the number of swaps recorded for caller.
func (e *Engine) SwapCount(caller common.Address) int {
	return e.ledger.SwapCount(caller)
}

// LiquidityActionAt returns the caller's liquidity action at position
// index, oldest first.
func (e *Engine) LiquidityActionAt(caller common.Address, index int) (LiquidityAction, error) {
	return e.ledger.LiquidityAt(caller, index)
}

// LastLiquidityAction returns the caller's most recent liquidity action.
func (e *Engine) LastLiquidityAction(caller common.Address) (LiquidityAction, error) {
	return e.ledger.LastLiquidity(caller)
}

// LiquidityActionCount returns the number of liquidity actions recorded
// for caller.
func (e *Engine) LiquidityActionCount(caller common.Address) int {
	return e.ledger.LiquidityCount(caller)
}

// TotalSwaps returns the global swap counter.
func (e *Engine) TotalSwaps() uint64 {
	return e.ledger.TotalSwaps()
}

// TotalLiquidityActions returns the global liquidity counter.
func (e *Engine) TotalLiquidityActions() uint64 {
	return e.ledger.TotalLiquidityActions()
}

// publish fans the event out to every sink. Sink failures are logged
// and counted but never fail the operation that produced the event.
func (e *Engine) publish(ctx context.Context, event Event) {
	for _, sink := range e.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			e.logger.LogWarn(ctx, "event publish failed",
				"sink", sink.Name(), "event", event.Name(), "error", err)
			e.metrics.RecordEventPublish(ctx, sink.Name(), "error")
			continue
		}
		e.metrics.RecordEventPublish(ctx, sink.Name(), "ok")
	}
}
