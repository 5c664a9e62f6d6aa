// Package money provides basis-point arithmetic for slippage and fee
// calculations. Uses int64 with fixed scaling to avoid floating-point
// precision issues on hot paths.
package money

import (
	"fmt"
)

// BPSScale is the basis-point denominator: 100% = 10000 bps.
const BPSScale int64 = 10000

// BPS represents basis points (1 bps = 0.01% = 0.0001).
type BPS int64

// NewBPS creates BPS from a percentage value.
// Example: NewBPS(0.5) = 50 bps = 0.5%.
func NewBPS(percent float64) BPS {
	return BPS(percent * 100)
}

// NewBPSFromInt creates BPS from a raw basis-point count.
func NewBPSFromInt(bps int64) BPS {
	return BPS(bps)
}

// Int64 returns the raw basis-point count.
func (b BPS) Int64() int64 {
	return int64(b)
}

// Percent converts to a percentage value for display.
func (b BPS) Percent() float64 {
	return float64(b) / 100
}

// InRange reports whether the value lies in [0, BPSScale].
func (b BPS) InRange() bool {
	return b >= 0 && int64(b) <= BPSScale
}

// String formats as "Nbps (X.XX%)".
func (b BPS) String() string {
	return fmt.Sprintf("%dbps (%.2f%%)", int64(b), b.Percent())
}
