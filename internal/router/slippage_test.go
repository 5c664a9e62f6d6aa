package router

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/money"
)

func TestSlippagePolicy(t *testing.T) {
	caller := common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	other := common.HexToAddress("0xaaaa000000000000000000000000000000000002")

	p := NewSlippagePolicy(DefaultToleranceBPS)

	if got := p.ToleranceFor(caller); got != DefaultToleranceBPS {
		t.Fatalf("unconfigured caller: got %d, want default %d", got, DefaultToleranceBPS)
	}

	old, err := p.Set(caller, 200)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if old != DefaultToleranceBPS {
		t.Errorf("first Set returned old=%d, want default %d", old, DefaultToleranceBPS)
	}
	if got := p.ToleranceFor(caller); got != 200 {
		t.Errorf("after Set: got %d, want 200", got)
	}
	if got := p.ToleranceFor(other); got != DefaultToleranceBPS {
		t.Errorf("other caller affected: got %d, want default %d", got, DefaultToleranceBPS)
	}

	// An explicit zero is a real tolerance, not "unset".
	if _, err := p.Set(caller, 0); err != nil {
		t.Fatalf("Set(0): %v", err)
	}
	if got := p.ToleranceFor(caller); got != 0 {
		t.Errorf("explicit zero: got %d, want 0", got)
	}

	old, err = p.Set(caller, 75)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if old != 0 {
		t.Errorf("Set returned old=%d, want 0", old)
	}
}

func TestSlippagePolicyRejectsOutOfRange(t *testing.T) {
	caller := common.HexToAddress("0xaaaa000000000000000000000000000000000001")
	p := NewSlippagePolicy(DefaultToleranceBPS)

	for _, tol := range []money.BPS{-1, money.BPS(money.BPSScale) + 1, 50000} {
		if _, err := p.Set(caller, tol); !errors.Is(err, ErrToleranceOutOfRange) {
			t.Errorf("Set(%d): got %v, want ErrToleranceOutOfRange", tol, err)
		}
	}
	if got := p.ToleranceFor(caller); got != DefaultToleranceBPS {
		t.Errorf("rejected Set changed tolerance: got %d", got)
	}

	// Boundaries are valid.
	if _, err := p.Set(caller, 0); err != nil {
		t.Errorf("Set(0): %v", err)
	}
	if _, err := p.Set(caller, money.BPS(money.BPSScale)); err != nil {
		t.Errorf("Set(10000): %v", err)
	}
}

func TestExactInputThreshold(t *testing.T) {
	tests := []struct {
		name      string
		minOut    int64
		quotedOut int64
		tolerance money.BPS
		want      int64
	}{
		{"quote dominates loose floor", 0, 1000, 50, 1000},
		{"floor dominates weak quote", 1000, 900, 50, 1005},   // 1000*10000/9950
		{"zero tolerance floor is minOut", 1000, 900, 0, 1000},
		{"full-scale tolerance uses quote alone", 1000, 900, 10000, 900},
		{"equal floor and quote", 995, 1000, 50, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exactInputThreshold(big.NewInt(tt.minOut), big.NewInt(tt.quotedOut), tt.tolerance)
			if got.Int64() != tt.want {
				t.Errorf("got %d, want %d", got.Int64(), tt.want)
			}
		})
	}
}

func TestExactOutputThreshold(t *testing.T) {
	tests := []struct {
		name      string
		maxIn     int64
		quotedIn  int64
		tolerance money.BPS
		want      int64
	}{
		{"quote dominates loose ceiling", 10000, 1000, 50, 1000},
		{"ceiling dominates high quote", 1000, 2000, 50, 995}, // 1000*10000/10050
		{"zero tolerance ceiling is maxIn", 1000, 2000, 0, 1000},
		{"full-scale tolerance halves the cap", 1000, 2000, 10000, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := exactOutputThreshold(big.NewInt(tt.maxIn), big.NewInt(tt.quotedIn), tt.tolerance)
			if got.Int64() != tt.want {
				t.Errorf("got %d, want %d", got.Int64(), tt.want)
			}
		})
	}
}

func TestShortfallBPS(t *testing.T) {
	tests := []struct {
		name      string
		actual    int64
		threshold int64
		want      money.BPS
	}{
		{"meets threshold", 1000, 1000, 0},
		{"beats threshold", 1200, 1000, 0},
		{"one percent short", 990, 1000, 100},
		{"half short", 500, 1000, 5000},
		{"zero actual", 0, 1000, 10000},
		{"zero threshold", 0, 0, 0},
		{"truncates toward zero", 999, 1000, 10}, // 1*10000/1000
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shortfallBPS(big.NewInt(tt.actual), big.NewInt(tt.threshold))
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOverrunBPS(t *testing.T) {
	tests := []struct {
		name      string
		actual    int64
		threshold int64
		want      money.BPS
	}{
		{"at threshold", 1000, 1000, 0},
		{"under threshold", 900, 1000, 0},
		{"one percent over", 1010, 1000, 100},
		{"double", 2000, 1000, 10000},
		{"zero threshold zero spend", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overrunBPS(big.NewInt(tt.actual), big.NewInt(tt.threshold))
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("zero threshold with spend is unbounded", func(t *testing.T) {
		got := overrunBPS(big.NewInt(1), big.NewInt(0))
		if got <= money.BPS(money.BPSScale) {
			t.Errorf("got %d, want above full scale", got)
		}
	})
}

func TestSlippageErrorUnwrapsToSentinel(t *testing.T) {
	err := error(&SlippageError{ActualBPS: 120, ToleranceBPS: 50})
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("SlippageError does not unwrap to ErrSlippageExceeded")
	}

	var sErr *SlippageError
	if !errors.As(err, &sErr) {
		t.Fatalf("errors.As failed")
	}
	if sErr.ActualBPS != 120 || sErr.ToleranceBPS != 50 {
		t.Errorf("fields lost: %+v", sErr)
	}
}
