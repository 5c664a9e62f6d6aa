package router

import (
	"math"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/money"
)

// DefaultToleranceBPS applies to callers that never configured a
// tolerance of their own.
const DefaultToleranceBPS money.BPS = 50

// SlippagePolicy tracks per-caller slippage tolerances. A caller that
// explicitly sets a tolerance keeps it, including an explicit zero;
// everyone else gets the default.
type SlippagePolicy struct {
	mu         sync.RWMutex
	tolerances map[common.Address]money.BPS
	defaultBPS money.BPS
}

func NewSlippagePolicy(defaultBPS money.BPS) *SlippagePolicy {
	return &SlippagePolicy{
		tolerances: make(map[common.Address]money.BPS),
		defaultBPS: defaultBPS,
	}
}

// Set records a caller's tolerance and returns the previously effective
// one. Tolerances outside [0, 10000] bps are rejected.
func (p *SlippagePolicy) Set(caller common.Address, tolerance money.BPS) (money.BPS, error) {
	if !tolerance.InRange() {
		return 0, ErrToleranceOutOfRange
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	old, ok := p.tolerances[caller]
	if !ok {
		old = p.defaultBPS
	}
	p.tolerances[caller] = tolerance
	return old, nil
}

// ToleranceFor returns the caller's effective tolerance.
func (p *SlippagePolicy) ToleranceFor(caller common.Address) money.BPS {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if tol, ok := p.tolerances[caller]; ok {
		return tol
	}
	return p.defaultBPS
}

// exactInputThreshold is the output baseline an exact-input swap is
// measured against: the better of the quoted output and the caller's
// minimum grossed up by the tolerance. At a tolerance of the full
// scale the gross-up is undefined and the quote alone is used.
func exactInputThreshold(minAmountOut, quotedOut *big.Int, tolerance money.BPS) *big.Int {
	threshold := new(big.Int).Set(quotedOut)
	if int64(tolerance) < money.BPSScale {
		floor := new(big.Int).Mul(minAmountOut, big.NewInt(money.BPSScale))
		floor.Quo(floor, big.NewInt(money.BPSScale-int64(tolerance)))
		if floor.Cmp(threshold) > 0 {
			threshold = floor
		}
	}
	return threshold
}

// exactOutputThreshold is the input baseline an exact-output swap is
// measured against: the tighter of the quoted input and the caller's
// maximum discounted by the tolerance.
func exactOutputThreshold(maxAmountIn, quotedIn *big.Int, tolerance money.BPS) *big.Int {
	threshold := new(big.Int).Set(quotedIn)
	ceiling := new(big.Int).Mul(maxAmountIn, big.NewInt(money.BPSScale))
	ceiling.Quo(ceiling, big.NewInt(money.BPSScale+int64(tolerance)))
	if ceiling.Cmp(threshold) < 0 {
		threshold = ceiling
	}
	return threshold
}

// shortfallBPS measures how far actualOut fell below the threshold, in
// basis points of the threshold. Zero when actualOut meets or beats it.
func shortfallBPS(actualOut, threshold *big.Int) money.BPS {
	if threshold.Sign() <= 0 || actualOut.Cmp(threshold) >= 0 {
		return 0
	}
	diff := new(big.Int).Sub(threshold, actualOut)
	diff.Mul(diff, big.NewInt(money.BPSScale))
	diff.Quo(diff, threshold)
	return money.BPS(diff.Int64())
}

// overrunBPS measures how far actualIn rose above the threshold, in
// basis points of the threshold. Zero when actualIn stays at or under
// it. A zero threshold with any spend at all is an unbounded overrun.
func overrunBPS(actualIn, threshold *big.Int) money.BPS {
	if threshold.Sign() <= 0 {
		if actualIn.Sign() > 0 {
			return money.BPS(math.MaxInt64)
		}
		return 0
	}
	if actualIn.Cmp(threshold) <= 0 {
		return 0
	}
	diff := new(big.Int).Sub(actualIn, threshold)
	diff.Mul(diff, big.NewInt(money.BPSScale))
	diff.Quo(diff, threshold)
	if !diff.IsInt64() {
		return money.BPS(math.MaxInt64)
	}
	return money.BPS(diff.Int64())
}
