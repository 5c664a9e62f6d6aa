package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/platform/cache"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// Minimal ERC-20 ABI: the transfer/allowance surface plus decimals.
const erc20ABI = `[
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"from","type":"address"},{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"}],"name":"approve","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// decimalsTTL is effectively forever: token decimals are immutable.
const decimalsTTL = 24 * time.Hour

// ERC20Service implements TokenService against live ERC-20 contracts.
type ERC20Service struct {
	sender *txSender
	abi    abi.ABI
	cache  cache.Cache
	logger *observability.Logger
}

// ERC20ServiceConfig holds ERC-20 service configuration.
type ERC20ServiceConfig struct {
	Sender *txSender
	Cache  cache.Cache
	Logger *observability.Logger
}

// NewERC20Service creates a TokenService backed by on-chain ERC-20 calls.
func NewERC20Service(cfg ERC20ServiceConfig) (*ERC20Service, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("transaction sender is required")
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &ERC20Service{
		sender: cfg.Sender,
		abi:    parsed,
		cache:  cfg.Cache,
		logger: cfg.Logger,
	}, nil
}

// Transfer moves tokens from the custody account to another account.
func (s *ERC20Service) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error {
	data, err := s.abi.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("pack transfer: %w", err)
	}
	return s.mutate(ctx, token, "transfer", data)
}

// TransferFrom moves tokens between third-party accounts via allowance.
func (s *ERC20Service) TransferFrom(ctx context.Context, token, from, to common.Address, amount *big.Int) error {
	data, err := s.abi.Pack("transferFrom", from, to, amount)
	if err != nil {
		return fmt.Errorf("pack transferFrom: %w", err)
	}
	return s.mutate(ctx, token, "transferFrom", data)
}

// Approve sets spender's allowance over the custody account's balance.
func (s *ERC20Service) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	data, err := s.abi.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	return s.mutate(ctx, token, "approve", data)
}

// mutate executes a state-changing ERC-20 call and decodes the boolean
// result some non-conforming tokens omit.
func (s *ERC20Service) mutate(ctx context.Context, token common.Address, method string, data []byte) error {
	ret, err := s.sender.execute(ctx, token, data)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, token.Hex(), err)
	}

	// Tokens that return a bool must return true; tokens that return
	// nothing signal failure by reverting, which execute already caught.
	if len(ret) > 0 {
		out, err := s.abi.Methods[method].Outputs.Unpack(ret)
		if err == nil && len(out) == 1 {
			if ok, isBool := out[0].(bool); isBool && !ok {
				return fmt.Errorf("%s %s: token returned false", method, token.Hex())
			}
		}
	}
	return nil
}

// Decimals returns the token's decimals, cached indefinitely.
func (s *ERC20Service) Decimals(ctx context.Context, token common.Address) (int, error) {
	key := "erc20:decimals:" + strings.ToLower(token.Hex())
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, key); err == nil {
			switch d := v.(type) {
			case int:
				return d, nil
			case float64: // redis round-trips numbers as float64
				return int(d), nil
			}
		}
	}

	data, err := s.abi.Pack("decimals")
	if err != nil {
		return 0, fmt.Errorf("pack decimals: %w", err)
	}
	ret, err := s.sender.call(ctx, token, data)
	if err != nil {
		return 0, fmt.Errorf("call decimals %s: %w", token.Hex(), err)
	}
	out, err := s.abi.Methods["decimals"].Outputs.Unpack(ret)
	if err != nil || len(out) == 0 {
		return 0, fmt.Errorf("decode decimals %s: %w", token.Hex(), err)
	}

	dec := int(out[0].(uint8))
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, dec, decimalsTTL); err != nil && s.logger != nil {
			s.logger.LogWarn(ctx, "failed to cache token decimals", "token", token.Hex(), "error", err)
		}
	}
	return dec, nil
}
