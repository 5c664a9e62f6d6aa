package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Dosik13/AMMs-deepdive/internal/blockchain"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/cache"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// Adapters bundles the on-chain implementations of every collaborator the
// routing engine needs, sharing one signing account and RPC pool.
type Adapters struct {
	Tokens    *ERC20Service
	Pools     *FactoryRegistry
	Quoter    *QuoterV2
	Router    *OnchainRouter
	Positions *PositionManager

	sender *txSender
}

// AdaptersConfig holds the addresses and infrastructure the adapters
// share. Router, Quoter, and PositionManager addresses are required; the
// pool factory is derived from the router.
type AdaptersConfig struct {
	Pool            *blockchain.ClientPool
	PrivateKey      string
	GasLimit        uint64
	Router          common.Address
	Quoter          common.Address
	PositionManager common.Address
	Cache           cache.Cache
	Logger          *observability.Logger
	Metrics         *observability.Metrics
}

// NewAdapters wires the full on-chain collaborator set. Construction
// fails if any required contract address is the zero address, and queries
// the router's factory once to derive the pool registry.
func NewAdapters(ctx context.Context, cfg AdaptersConfig) (*Adapters, error) {
	if cfg.Router == (common.Address{}) {
		return nil, fmt.Errorf("router address is required")
	}
	if cfg.Quoter == (common.Address{}) {
		return nil, fmt.Errorf("quoter address is required")
	}
	if cfg.PositionManager == (common.Address{}) {
		return nil, fmt.Errorf("position manager address is required")
	}

	sender, err := newTxSender(TxSenderConfig{
		Pool:       cfg.Pool,
		PrivateKey: cfg.PrivateKey,
		GasLimit:   cfg.GasLimit,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create tx sender: %w", err)
	}

	tokens, err := NewERC20Service(ERC20ServiceConfig{
		Sender: sender,
		Cache:  cfg.Cache,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	router, err := NewOnchainRouter(OnchainRouterConfig{
		Sender: sender,
		Router: cfg.Router,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	factory, err := router.Factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("derive factory from router: %w", err)
	}

	pools, err := NewFactoryRegistry(FactoryRegistryConfig{
		Sender:  sender,
		Factory: factory,
		Cache:   cfg.Cache,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	quoter, err := NewQuoterV2(QuoterV2Config{
		Sender:  sender,
		Quoter:  cfg.Quoter,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	positions, err := NewPositionManager(PositionManagerConfig{
		Sender:  sender,
		Manager: cfg.PositionManager,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Adapters{
		Tokens:    tokens,
		Pools:     pools,
		Quoter:    quoter,
		Router:    router,
		Positions: positions,
		sender:    sender,
	}, nil
}

// CustodyAccount is the address tokens are held under between the custody
// and refund steps of an operation.
func (a *Adapters) CustodyAccount() common.Address {
	return a.sender.From()
}
