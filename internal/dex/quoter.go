package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// QuoterV2 ABI for single-pool quote simulation. The quoter reverts when a
// pool is missing or cannot fill the amount; that revert is the per-tier
// "unavailable" signal the comparator folds over.
const quoterV2ABI = `[
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint256","name":"amountIn","type":"uint256"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
		"internalType":"struct IQuoterV2.QuoteExactInputSingleParams","name":"params","type":"tuple"}],
	"name":"quoteExactInputSingle",
	"outputs":[
		{"internalType":"uint256","name":"amountOut","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
		{"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
		{"internalType":"uint256","name":"gasEstimate","type":"uint256"}],
	"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint256","name":"amount","type":"uint256"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
		"internalType":"struct IQuoterV2.QuoteExactOutputSingleParams","name":"params","type":"tuple"}],
	"name":"quoteExactOutputSingle",
	"outputs":[
		{"internalType":"uint256","name":"amountIn","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
		{"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
		{"internalType":"uint256","name":"gasEstimate","type":"uint256"}],
	"stateMutability":"nonpayable","type":"function"}
]`

// QuoterV2 implements Quoter against a deployed QuoterV2 contract.
type QuoterV2 struct {
	sender  *txSender
	quoter  common.Address
	abi     abi.ABI
	logger  *observability.Logger
	metrics *observability.Metrics
}

// QuoterV2Config holds quoter configuration.
type QuoterV2Config struct {
	Sender  *txSender
	Quoter  common.Address
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// NewQuoterV2 creates a Quoter backed by QuoterV2 eth_call simulations.
func NewQuoterV2(cfg QuoterV2Config) (*QuoterV2, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("transaction sender is required")
	}
	if cfg.Quoter == (common.Address{}) {
		return nil, fmt.Errorf("quoter address is required")
	}

	parsed, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter v2 abi: %w", err)
	}

	return &QuoterV2{
		sender:  cfg.Sender,
		quoter:  cfg.Quoter,
		abi:     parsed,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// QuoteExactInput simulates an exact-input swap and returns the output.
func (q *QuoterV2) QuoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, fee FeeTier, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		AmountIn          *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               fee.Big(),
		SqrtPriceLimitX96: priceLimitOrZero(sqrtPriceLimitX96),
	}
	return q.quote(ctx, "quoteExactInputSingle", fee, params)
}

// QuoteExactOutput simulates an exact-output swap and returns the input.
func (q *QuoterV2) QuoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, fee FeeTier, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Amount            *big.Int
		Fee               *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Amount:            amountOut,
		Fee:               fee.Big(),
		SqrtPriceLimitX96: priceLimitOrZero(sqrtPriceLimitX96),
	}
	return q.quote(ctx, "quoteExactOutputSingle", fee, params)
}

func (q *QuoterV2) quote(ctx context.Context, method string, fee FeeTier, params interface{}) (*big.Int, error) {
	start := time.Now()

	data, err := q.abi.Pack(method, params)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ret, err := q.sender.call(ctx, q.quoter, data)
	if q.metrics != nil {
		q.metrics.QuoteDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
		q.metrics.QuoteCalls.Add(ctx, 1)
	}
	if err != nil {
		// Typically a revert: pool missing or amount unfillable at this tier.
		return nil, fmt.Errorf("%s(fee=%d): %w", method, fee, err)
	}

	out, err := q.abi.Methods[method].Outputs.Unpack(ret)
	if err != nil || len(out) == 0 {
		return nil, fmt.Errorf("unpack %s(fee=%d): %w", method, fee, err)
	}

	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, out[0])
	}
	return amount, nil
}

func priceLimitOrZero(limit *big.Int) *big.Int {
	if limit == nil {
		return big.NewInt(0)
	}
	return limit
}
