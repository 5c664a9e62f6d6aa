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

// NonfungiblePositionManager ABI: ownership and token views plus the two
// liquidity mutations. The positions() view carries twelve fields; only
// token0/token1 are decoded here.
const positionManagerABI = `[
	{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"internalType":"address","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"tokenId","type":"uint256"}],"name":"positions","outputs":[
		{"internalType":"uint96","name":"nonce","type":"uint96"},
		{"internalType":"address","name":"operator","type":"address"},
		{"internalType":"address","name":"token0","type":"address"},
		{"internalType":"address","name":"token1","type":"address"},
		{"internalType":"uint24","name":"fee","type":"uint24"},
		{"internalType":"int24","name":"tickLower","type":"int24"},
		{"internalType":"int24","name":"tickUpper","type":"int24"},
		{"internalType":"uint128","name":"liquidity","type":"uint128"},
		{"internalType":"uint256","name":"feeGrowthInside0LastX128","type":"uint256"},
		{"internalType":"uint256","name":"feeGrowthInside1LastX128","type":"uint256"},
		{"internalType":"uint128","name":"tokensOwed0","type":"uint128"},
		{"internalType":"uint128","name":"tokensOwed1","type":"uint128"}],
	"stateMutability":"view","type":"function"},
	{"inputs":[{"components":[
		{"internalType":"uint256","name":"tokenId","type":"uint256"},
		{"internalType":"uint256","name":"amount0Desired","type":"uint256"},
		{"internalType":"uint256","name":"amount1Desired","type":"uint256"},
		{"internalType":"uint256","name":"amount0Min","type":"uint256"},
		{"internalType":"uint256","name":"amount1Min","type":"uint256"},
		{"internalType":"uint256","name":"deadline","type":"uint256"}],
		"internalType":"struct INonfungiblePositionManager.IncreaseLiquidityParams","name":"params","type":"tuple"}],
	"name":"increaseLiquidity",
	"outputs":[
		{"internalType":"uint128","name":"liquidity","type":"uint128"},
		{"internalType":"uint256","name":"amount0","type":"uint256"},
		{"internalType":"uint256","name":"amount1","type":"uint256"}],
	"stateMutability":"payable","type":"function"},
	{"inputs":[{"components":[
		{"internalType":"uint256","name":"tokenId","type":"uint256"},
		{"internalType":"uint128","name":"liquidity","type":"uint128"},
		{"internalType":"uint256","name":"amount0Min","type":"uint256"},
		{"internalType":"uint256","name":"amount1Min","type":"uint256"},
		{"internalType":"uint256","name":"deadline","type":"uint256"}],
		"internalType":"struct INonfungiblePositionManager.DecreaseLiquidityParams","name":"params","type":"tuple"}],
	"name":"decreaseLiquidity",
	"outputs":[
		{"internalType":"uint256","name":"amount0","type":"uint256"},
		{"internalType":"uint256","name":"amount1","type":"uint256"}],
	"stateMutability":"payable","type":"function"}
]`

// PositionManager implements PositionRegistry against a deployed
// NonfungiblePositionManager contract.
type PositionManager struct {
	sender  *txSender
	manager common.Address
	abi     abi.ABI
	logger  *observability.Logger
}

// PositionManagerConfig holds position registry configuration.
type PositionManagerConfig struct {
	Sender  *txSender
	Manager common.Address
	Logger  *observability.Logger
}

// NewPositionManager creates a PositionRegistry bound to the given
// contract.
func NewPositionManager(cfg PositionManagerConfig) (*PositionManager, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("transaction sender is required")
	}
	if cfg.Manager == (common.Address{}) {
		return nil, fmt.Errorf("position manager address is required")
	}

	parsed, err := abi.JSON(strings.NewReader(positionManagerABI))
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}

	return &PositionManager{
		sender:  cfg.Sender,
		manager: cfg.Manager,
		abi:     parsed,
		logger:  cfg.Logger,
	}, nil
}

// Address returns the position manager contract address.
func (m *PositionManager) Address() common.Address {
	return m.manager
}

// OwnerOf returns the current owner of a position. Never cached: a
// position transfer must be visible on the very next call.
func (m *PositionManager) OwnerOf(ctx context.Context, positionID *big.Int) (common.Address, error) {
	data, err := m.abi.Pack("ownerOf", positionID)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack ownerOf: %w", err)
	}

	ret, err := m.sender.call(ctx, m.manager, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call ownerOf(%s): %w", positionID, err)
	}

	out, err := m.abi.Unpack("ownerOf", ret)
	if err != nil || len(out) != 1 {
		return common.Address{}, fmt.Errorf("unpack ownerOf(%s): %w", positionID, err)
	}
	return out[0].(common.Address), nil
}

// PositionTokens returns the pair backing a position.
func (m *PositionManager) PositionTokens(ctx context.Context, positionID *big.Int) (common.Address, common.Address, error) {
	data, err := m.abi.Pack("positions", positionID)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("pack positions: %w", err)
	}

	ret, err := m.sender.call(ctx, m.manager, data)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("call positions(%s): %w", positionID, err)
	}

	out, err := m.abi.Unpack("positions", ret)
	if err != nil || len(out) < 4 {
		return common.Address{}, common.Address{}, fmt.Errorf("unpack positions(%s): %w", positionID, err)
	}
	return out[2].(common.Address), out[3].(common.Address), nil
}

// IncreaseLiquidity adds liquidity to a position and returns the realized
// liquidity delta and consumed token amounts.
func (m *PositionManager) IncreaseLiquidity(ctx context.Context, p IncreaseLiquidityParams) (*big.Int, *big.Int, *big.Int, error) {
	params := struct {
		TokenId        *big.Int
		Amount0Desired *big.Int
		Amount1Desired *big.Int
		Amount0Min     *big.Int
		Amount1Min     *big.Int
		Deadline       *big.Int
	}{
		TokenId:        p.PositionID,
		Amount0Desired: p.Amount0Desired,
		Amount1Desired: p.Amount1Desired,
		Amount0Min:     p.Amount0Min,
		Amount1Min:     p.Amount1Min,
		Deadline:       big.NewInt(p.Deadline.Unix()),
	}

	data, err := m.abi.Pack("increaseLiquidity", params)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("pack increaseLiquidity: %w", err)
	}

	ret, err := m.sender.execute(ctx, m.manager, data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("increaseLiquidity(%s): %w", p.PositionID, err)
	}

	out, err := m.abi.Methods["increaseLiquidity"].Outputs.Unpack(ret)
	if err != nil || len(out) != 3 {
		return nil, nil, nil, fmt.Errorf("unpack increaseLiquidity(%s): %w", p.PositionID, err)
	}
	return out[0].(*big.Int), out[1].(*big.Int), out[2].(*big.Int), nil
}

// DecreaseLiquidity removes liquidity from a position and returns the
// token amounts now owed to it.
func (m *PositionManager) DecreaseLiquidity(ctx context.Context, p DecreaseLiquidityParams) (*big.Int, *big.Int, error) {
	params := struct {
		TokenId    *big.Int
		Liquidity  *big.Int
		Amount0Min *big.Int
		Amount1Min *big.Int
		Deadline   *big.Int
	}{
		TokenId:    p.PositionID,
		Liquidity:  p.Liquidity,
		Amount0Min: p.Amount0Min,
		Amount1Min: p.Amount1Min,
		Deadline:   big.NewInt(p.Deadline.Unix()),
	}

	data, err := m.abi.Pack("decreaseLiquidity", params)
	if err != nil {
		return nil, nil, fmt.Errorf("pack decreaseLiquidity: %w", err)
	}

	ret, err := m.sender.execute(ctx, m.manager, data)
	if err != nil {
		return nil, nil, fmt.Errorf("decreaseLiquidity(%s): %w", p.PositionID, err)
	}

	out, err := m.abi.Methods["decreaseLiquidity"].Outputs.Unpack(ret)
	if err != nil || len(out) != 2 {
		return nil, nil, fmt.Errorf("unpack decreaseLiquidity(%s): %w", p.PositionID, err)
	}
	return out[0].(*big.Int), out[1].(*big.Int), nil
}
