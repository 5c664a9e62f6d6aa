package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// SwapRouter ABI: the two single-pool swap entrypoints plus the factory
// view used to derive the pool registry at construction.
const swapRouterABI = `[
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"address","name":"recipient","type":"address"},
		{"internalType":"uint256","name":"deadline","type":"uint256"},
		{"internalType":"uint256","name":"amountIn","type":"uint256"},
		{"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
		"internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],
	"name":"exactInputSingle",
	"outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],
	"stateMutability":"payable","type":"function"},
	{"inputs":[{"components":[
		{"internalType":"address","name":"tokenIn","type":"address"},
		{"internalType":"address","name":"tokenOut","type":"address"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"address","name":"recipient","type":"address"},
		{"internalType":"uint256","name":"deadline","type":"uint256"},
		{"internalType":"uint256","name":"amountOut","type":"uint256"},
		{"internalType":"uint256","name":"amountInMaximum","type":"uint256"},
		{"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
		"internalType":"struct ISwapRouter.ExactOutputSingleParams","name":"params","type":"tuple"}],
	"name":"exactOutputSingle",
	"outputs":[{"internalType":"uint256","name":"amountIn","type":"uint256"}],
	"stateMutability":"payable","type":"function"},
	{"inputs":[],"name":"factory","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

// OnchainRouter implements SwapRouter against a deployed SwapRouter
// contract.
type OnchainRouter struct {
	sender *txSender
	router common.Address
	abi    abi.ABI
	logger *observability.Logger
}

// OnchainRouterConfig holds swap router configuration.
type OnchainRouterConfig struct {
	Sender *txSender
	Router common.Address
	Logger *observability.Logger
}

// NewOnchainRouter creates a SwapRouter bound to the given contract.
func NewOnchainRouter(cfg OnchainRouterConfig) (*OnchainRouter, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("transaction sender is required")
	}
	if cfg.Router == (common.Address{}) {
		return nil, fmt.Errorf("router address is required")
	}

	parsed, err := abi.JSON(strings.NewReader(swapRouterABI))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	return &OnchainRouter{
		sender: cfg.Sender,
		router: cfg.Router,
		abi:    parsed,
		logger: cfg.Logger,
	}, nil
}

// Address returns the router contract address.
func (r *OnchainRouter) Address() common.Address {
	return r.router
}

// Factory queries the factory the router routes through.
func (r *OnchainRouter) Factory(ctx context.Context) (common.Address, error) {
	data, err := r.abi.Pack("factory")
	if err != nil {
		return common.Address{}, fmt.Errorf("pack factory: %w", err)
	}

	ret, err := r.sender.call(ctx, r.router, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call factory: %w", err)
	}

	out, err := r.abi.Unpack("factory", ret)
	if err != nil || len(out) != 1 {
		return common.Address{}, fmt.Errorf("unpack factory: %w", err)
	}
	return out[0].(common.Address), nil
}

// ExactInputSingle swaps a fixed input amount and returns the realized
// output.
func (r *OnchainRouter) ExactInputSingle(ctx context.Context, p ExactInputParams) (*big.Int, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountIn          *big.Int
		AmountOutMinimum  *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               p.Fee.Big(),
		Recipient:         p.Recipient,
		Deadline:          big.NewInt(p.Deadline.Unix()),
		AmountIn:          p.AmountIn,
		AmountOutMinimum:  p.AmountOutMinimum,
		SqrtPriceLimitX96: priceLimitOrZero(p.SqrtPriceLimitX96),
	}
	return r.swap(ctx, "exactInputSingle", params)
}

// ExactOutputSingle swaps up to a maximum input for a fixed output amount
// and returns the realized input.
func (r *OnchainRouter) ExactOutputSingle(ctx context.Context, p ExactOutputParams) (*big.Int, error) {
	params := struct {
		TokenIn           common.Address
		TokenOut          common.Address
		Fee               *big.Int
		Recipient         common.Address
		Deadline          *big.Int
		AmountOut         *big.Int
		AmountInMaximum   *big.Int
		SqrtPriceLimitX96 *big.Int
	}{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               p.Fee.Big(),
		Recipient:         p.Recipient,
		Deadline:          big.NewInt(p.Deadline.Unix()),
		AmountOut:         p.AmountOut,
		AmountInMaximum:   p.AmountInMaximum,
		SqrtPriceLimitX96: priceLimitOrZero(p.SqrtPriceLimitX96),
	}
	return r.swap(ctx, "exactOutputSingle", params)
}

func (r *OnchainRouter) swap(ctx context.Context, method string, params interface{}) (*big.Int, error) {
	data, err := r.abi.Pack(method, params)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ret, err := r.sender.execute(ctx, r.router, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	out, err := r.abi.Methods[method].Outputs.Unpack(ret)
	if err != nil || len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}

	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, out[0])
	}
	return amount, nil
}
