package router

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func increaseOrder(desired0, desired1 int64) IncreaseOrder {
	return IncreaseOrder{
		Caller:         testAlice,
		TokenID:        big.NewInt(7),
		Amount0Desired: big.NewInt(desired0),
		Amount1Desired: big.NewInt(desired1),
		Deadline:       testDeadline,
	}
}

func decreaseOrder(liquidity int64) DecreaseOrder {
	return DecreaseOrder{
		Caller:    testAlice,
		TokenID:   big.NewInt(7),
		Liquidity: big.NewInt(liquidity),
		Deadline:  testDeadline,
	}
}

func TestIncreaseLiquidity(t *testing.T) {
	t.Run("refunds the unconsumed remainder", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice
		env.positions.liquidity = big.NewInt(500)
		env.positions.used0 = big.NewInt(900)
		env.positions.used1 = big.NewInt(1800)
		env.tokens.mint(testTokenA, testAlice, 1000)
		env.tokens.mint(testTokenB, testAlice, 2000)

		res, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(1000, 2000))
		if err != nil {
			t.Fatalf("IncreaseLiquidity: %v", err)
		}
		if res.Liquidity.Int64() != 500 {
			t.Errorf("liquidity = %v, want 500", res.Liquidity)
		}
		if res.Amount0.Int64() != 900 || res.Amount1.Int64() != 1800 {
			t.Errorf("consumed = %v/%v, want 900/1800", res.Amount0, res.Amount1)
		}

		// Remainders returned, custody emptied.
		if got := env.tokens.balance(testTokenA, testAlice); got.Int64() != 100 {
			t.Errorf("caller tokenA = %v, want 100", got)
		}
		if got := env.tokens.balance(testTokenB, testAlice); got.Int64() != 200 {
			t.Errorf("caller tokenB = %v, want 200", got)
		}
		if got := env.tokens.balance(testTokenA, testCustody); got.Sign() != 0 {
			t.Errorf("custody tokenA = %v, want 0", got)
		}
		if got := env.tokens.balance(testTokenB, testCustody); got.Sign() != 0 {
			t.Errorf("custody tokenB = %v, want 0", got)
		}

		// Both approvals revoked.
		if got := env.tokens.allowance(testTokenA, testNPMAddr); got.Sign() != 0 {
			t.Errorf("token0 allowance dangling: %v", got)
		}
		if got := env.tokens.allowance(testTokenB, testNPMAddr); got.Sign() != 0 {
			t.Errorf("token1 allowance dangling: %v", got)
		}

		// Recorded and published.
		if n := env.engine.TotalLiquidityActions(); n != 1 {
			t.Errorf("TotalLiquidityActions = %d, want 1", n)
		}
		action, err := env.engine.LastLiquidityAction(testAlice)
		if err != nil {
			t.Fatalf("LastLiquidityAction: %v", err)
		}
		if action.Kind != LiquidityIncrease || action.Liquidity.Int64() != 500 {
			t.Errorf("recorded action = %+v", action)
		}
		if n := len(env.sink.byName("router.liquidity_increased")); n != 1 {
			t.Errorf("liquidity_increased events = %d, want 1", n)
		}
	})

	t.Run("rejects a non-owner", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testBob
		env.tokens.mint(testTokenA, testAlice, 1000)
		env.tokens.mint(testTokenB, testAlice, 2000)

		_, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(1000, 2000))
		if !errors.Is(err, ErrNotPositionOwner) {
			t.Fatalf("got %v, want ErrNotPositionOwner", err)
		}
		if got := env.tokens.balance(testTokenA, testAlice); got.Int64() != 1000 {
			t.Errorf("funds moved: %v", got)
		}
		if n := env.engine.TotalLiquidityActions(); n != 0 {
			t.Errorf("TotalLiquidityActions = %d, want 0", n)
		}
	})

	t.Run("ownership is re-checked on every call", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice
		env.positions.liquidity = big.NewInt(500)
		env.positions.used0 = big.NewInt(100)
		env.positions.used1 = big.NewInt(100)
		env.tokens.mint(testTokenA, testAlice, 1000)
		env.tokens.mint(testTokenB, testAlice, 1000)

		if _, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(100, 100)); err != nil {
			t.Fatalf("first increase: %v", err)
		}

		// The position changes hands between calls.
		env.positions.owners["7"] = testBob
		_, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(100, 100))
		if !errors.Is(err, ErrNotPositionOwner) {
			t.Fatalf("got %v, want ErrNotPositionOwner after transfer", err)
		}
	})

	t.Run("nonexistent position surfaces the registry error", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(100, 100))
		if err == nil || errors.Is(err, ErrNotPositionOwner) {
			t.Fatalf("got %v, want lookup error", err)
		}
	})

	t.Run("registry failure refunds both tokens", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice
		env.positions.incErr = errors.New("price slippage check")
		env.tokens.mint(testTokenA, testAlice, 1000)
		env.tokens.mint(testTokenB, testAlice, 2000)

		_, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(1000, 2000))
		if err == nil {
			t.Fatal("expected error")
		}
		if got := env.tokens.balance(testTokenA, testAlice); got.Int64() != 1000 {
			t.Errorf("token0 not refunded: %v", got)
		}
		if got := env.tokens.balance(testTokenB, testAlice); got.Int64() != 2000 {
			t.Errorf("token1 not refunded: %v", got)
		}
		if n := env.engine.TotalLiquidityActions(); n != 0 {
			t.Errorf("TotalLiquidityActions = %d, want 0", n)
		}
	})

	t.Run("second collection failure refunds the first", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice
		env.tokens.mint(testTokenA, testAlice, 1000)
		// Alice cannot cover token1.
		env.tokens.mint(testTokenB, testAlice, 100)

		_, err := env.engine.IncreaseLiquidity(context.Background(), increaseOrder(1000, 2000))
		if err == nil {
			t.Fatal("expected error")
		}
		if got := env.tokens.balance(testTokenA, testAlice); got.Int64() != 1000 {
			t.Errorf("token0 not refunded: %v", got)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice

		tests := []struct {
			name    string
			mutate  func(*IncreaseOrder)
			wantErr error
		}{
			{"zero caller", func(o *IncreaseOrder) { o.Caller = common.Address{} }, ErrInvalidTokenAddress},
			{"nil token id", func(o *IncreaseOrder) { o.TokenID = nil }, ErrInvalidAmount},
			{"both amounts zero", func(o *IncreaseOrder) {
				o.Amount0Desired = big.NewInt(0)
				o.Amount1Desired = big.NewInt(0)
			}, ErrInvalidAmount},
			{"negative amount", func(o *IncreaseOrder) { o.Amount0Desired = big.NewInt(-1) }, ErrInvalidAmount},
			{"expired deadline", func(o *IncreaseOrder) { o.Deadline = testNow.Add(-time.Second) }, ErrDeadlineExpired},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				order := increaseOrder(100, 100)
				tt.mutate(&order)
				if _, err := env.engine.IncreaseLiquidity(context.Background(), order); !errors.Is(err, tt.wantErr) {
					t.Errorf("got %v, want %v", err, tt.wantErr)
				}
			})
		}
	})
}

// Deadlines are inclusive for position operations too.
func TestIncreaseLiquidityDeadlineBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.positions.owners["7"] = testAlice
	env.positions.liquidity = big.NewInt(10)
	env.positions.used0 = big.NewInt(100)
	env.positions.used1 = big.NewInt(100)
	env.tokens.mint(testTokenA, testAlice, 100)
	env.tokens.mint(testTokenB, testAlice, 100)

	order := increaseOrder(100, 100)
	order.Deadline = testNow
	if _, err := env.engine.IncreaseLiquidity(context.Background(), order); err != nil {
		t.Fatalf("IncreaseLiquidity at the deadline instant: %v", err)
	}
}

func TestDecreaseLiquidity(t *testing.T) {
	t.Run("consumes no caller funds", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice
		env.positions.dec0 = big.NewInt(400)
		env.positions.dec1 = big.NewInt(800)
		env.tokens.mint(testTokenA, testAlice, 50)

		res, err := env.engine.DecreaseLiquidity(context.Background(), decreaseOrder(500))
		if err != nil {
			t.Fatalf("DecreaseLiquidity: %v", err)
		}
		if res.Amount0.Int64() != 400 || res.Amount1.Int64() != 800 {
			t.Errorf("freed = %v/%v, want 400/800", res.Amount0, res.Amount1)
		}

		// No transfers, no approvals.
		if got := env.tokens.balance(testTokenA, testAlice); got.Int64() != 50 {
			t.Errorf("caller balance changed: %v", got)
		}
		if n := len(env.tokens.approveCalls); n != 0 {
			t.Errorf("approvals issued: %d", n)
		}

		action, err := env.engine.LastLiquidityAction(testAlice)
		if err != nil {
			t.Fatalf("LastLiquidityAction: %v", err)
		}
		if action.Kind != LiquidityDecrease || action.Liquidity.Int64() != 500 {
			t.Errorf("recorded action = %+v", action)
		}
		if n := len(env.sink.byName("router.liquidity_decreased")); n != 1 {
			t.Errorf("liquidity_decreased events = %d, want 1", n)
		}
	})

	t.Run("rejects a non-owner", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testBob

		_, err := env.engine.DecreaseLiquidity(context.Background(), decreaseOrder(500))
		if !errors.Is(err, ErrNotPositionOwner) {
			t.Fatalf("got %v, want ErrNotPositionOwner", err)
		}
	})

	t.Run("rejects zero liquidity", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice

		if _, err := env.engine.DecreaseLiquidity(context.Background(), decreaseOrder(0)); !errors.Is(err, ErrZeroLiquidity) {
			t.Errorf("zero: got %v, want ErrZeroLiquidity", err)
		}
		order := decreaseOrder(0)
		order.Liquidity = nil
		if _, err := env.engine.DecreaseLiquidity(context.Background(), order); !errors.Is(err, ErrZeroLiquidity) {
			t.Errorf("nil: got %v, want ErrZeroLiquidity", err)
		}
	})

	t.Run("registry failure leaves no trace", func(t *testing.T) {
		env := newTestEnv(t)
		env.positions.owners["7"] = testAlice
		env.positions.decErr = errors.New("price slippage check")

		_, err := env.engine.DecreaseLiquidity(context.Background(), decreaseOrder(500))
		if err == nil {
			t.Fatal("expected error")
		}
		if n := env.engine.TotalLiquidityActions(); n != 0 {
			t.Errorf("TotalLiquidityActions = %d, want 0", n)
		}
	})
}

func TestLiquidityAndSwapCountersAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	env.positions.owners["7"] = testAlice
	env.positions.dec0 = big.NewInt(1)
	env.positions.dec1 = big.NewInt(1)

	if _, err := env.engine.DecreaseLiquidity(context.Background(), decreaseOrder(10)); err != nil {
		t.Fatalf("DecreaseLiquidity: %v", err)
	}

	if n := env.engine.TotalLiquidityActions(); n != 1 {
		t.Errorf("TotalLiquidityActions = %d, want 1", n)
	}
	if n := env.engine.TotalSwaps(); n != 0 {
		t.Errorf("TotalSwaps = %d, want 0", n)
	}
	if _, err := env.engine.LastSwap(testAlice); !errors.Is(err, ErrNoSwapsFound) {
		t.Errorf("LastSwap: got %v, want ErrNoSwapsFound", err)
	}
	if n := env.engine.LiquidityActionCount(testAlice); n != 1 {
		t.Errorf("LiquidityActionCount = %d, want 1", n)
	}
}
