package router

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the append-only record of completed operations. Entries are
// kept per caller in completion order; two global monotonic counters
// track totals across all callers. A sequence number is assigned on
// append and is unique across both action kinds.
type Ledger struct {
	mu sync.RWMutex

	swaps     map[common.Address][]SwapAction
	liquidity map[common.Address][]LiquidityAction

	totalSwaps            uint64
	totalLiquidityActions uint64
	nextSequence          uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		swaps:     make(map[common.Address][]SwapAction),
		liquidity: make(map[common.Address][]LiquidityAction),
	}
}

// AppendSwap records a completed swap and bumps the global swap
// counter. It assigns and returns the action's sequence number. The
// stored record shares nothing with the caller's value, so later
// mutation of the passed-in amounts cannot edit history.
func (l *Ledger) AppendSwap(action SwapAction) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSequence++
	action.Sequence = l.nextSequence
	l.swaps[action.Caller] = append(l.swaps[action.Caller], action.detach())
	l.totalSwaps++
	return action.Sequence
}

// AppendLiquidity records a completed position change and bumps the
// global liquidity counter. It assigns and returns the action's
// sequence number. The stored record shares nothing with the caller's
// value.
func (l *Ledger) AppendLiquidity(action LiquidityAction) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSequence++
	action.Sequence = l.nextSequence
	l.liquidity[action.Caller] = append(l.liquidity[action.Caller], action.detach())
	l.totalLiquidityActions++
	return action.Sequence
}

// SwapCount returns the number of swaps recorded for caller.
func (l *Ledger) SwapCount(caller common.Address) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.swaps[caller])
}

// LiquidityCount returns the number of liquidity actions recorded for
// caller.
func (l *Ledger) LiquidityCount(caller common.Address) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.liquidity[caller])
}

// SwapAt returns the caller's swap at position index, oldest first.
func (l *Ledger) SwapAt(caller common.Address, index int) (SwapAction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.swaps[caller]
	if index < 0 || index >= len(entries) {
		return SwapAction{}, ErrIndexOutOfBounds
	}
	return entries[index].detach(), nil
}

// LiquidityAt returns the caller's liquidity action at position index,
// oldest first.
func (l *Ledger) LiquidityAt(caller common.Address, index int) (LiquidityAction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.liquidity[caller]
	if index < 0 || index >= len(entries) {
		return LiquidityAction{}, ErrIndexOutOfBounds
	}
	return entries[index].detach(), nil
}

// LastSwap returns the caller's most recent swap.
func (l *Ledger) LastSwap(caller common.Address) (SwapAction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.swaps[caller]
	if len(entries) == 0 {
		return SwapAction{}, ErrNoSwapsFound
	}
	return entries[len(entries)-1].detach(), nil
}

// LastLiquidity returns the caller's most recent liquidity action.
func (l *Ledger) LastLiquidity(caller common.Address) (LiquidityAction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.liquidity[caller]
	if len(entries) == 0 {
		return LiquidityAction{}, ErrNoLiquidityActions
	}
	return entries[len(entries)-1].detach(), nil
}

// Swaps returns a copy of the caller's swap history, oldest first.
func (l *Ledger) Swaps(caller common.Address) []SwapAction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.swaps[caller]
	out := make([]SwapAction, len(entries))
	for i, entry := range entries {
		out[i] = entry.detach()
	}
	return out
}

// LiquidityActions returns a copy of the caller's liquidity history,
// oldest first.
func (l *Ledger) LiquidityActions(caller common.Address) []LiquidityAction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.liquidity[caller]
	out := make([]LiquidityAction, len(entries))
	for i, entry := range entries {
		out[i] = entry.detach()
	}
	return out
}

// detach returns a copy whose big.Int fields share no storage with the
// original.
func (a SwapAction) detach() SwapAction {
	a.AmountIn = copyBig(a.AmountIn)
	a.AmountOut = copyBig(a.AmountOut)
	return a
}

// detach returns a copy whose big.Int fields share no storage with the
// original.
func (a LiquidityAction) detach() LiquidityAction {
	a.TokenID = copyBig(a.TokenID)
	a.Liquidity = copyBig(a.Liquidity)
	a.Amount0 = copyBig(a.Amount0)
	a.Amount1 = copyBig(a.Amount1)
	return a
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// TotalSwaps returns the global swap counter.
func (l *Ledger) TotalSwaps() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSwaps
}

// TotalLiquidityActions returns the global liquidity counter.
func (l *Ledger) TotalLiquidityActions() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalLiquidityActions
}
