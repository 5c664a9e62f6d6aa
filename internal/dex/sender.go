package dex

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Dosik13/AMMs-deepdive/internal/blockchain"
	"github.com/Dosik13/AMMs-deepdive/internal/platform/observability"
)

// txSender is the shared transaction machinery for on-chain adapters:
// read-only calls go through eth_call, mutations are simulated first (to
// recover the return value), then signed, sent, and waited on.
type txSender struct {
	pool     *blockchain.ClientPool
	key      *ecdsa.PrivateKey
	from     common.Address
	gasLimit uint64
	logger   *observability.Logger
}

// TxSenderConfig holds transaction sender configuration.
type TxSenderConfig struct {
	Pool       *blockchain.ClientPool
	PrivateKey string // hex-encoded, no 0x prefix
	GasLimit   uint64
	Logger     *observability.Logger
}

func newTxSender(cfg TxSenderConfig) (*txSender, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("RPC client pool is required")
	}

	key, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 600_000
	}

	return &txSender{
		pool:     cfg.Pool,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		gasLimit: gasLimit,
		logger:   cfg.Logger,
	}, nil
}

// From is the account adapters act as. Token custody and approvals are
// keyed to this address.
func (s *txSender) From() common.Address {
	return s.from
}

// call executes a read-only eth_call against to with the given calldata.
func (s *txSender) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ec, err := s.pool.GetClient()
	if err != nil {
		return nil, err
	}

	return ec.CallContract(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: data,
	}, nil)
}

// execute simulates the call to recover its return value, then signs,
// sends, and waits for the transaction to be mined. A reverted receipt is
// an error even when the simulation succeeded.
func (s *txSender) execute(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ec, err := s.pool.GetClient()
	if err != nil {
		return nil, err
	}

	ret, err := ec.CallContract(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("simulate call: %w", err)
	}

	tx, err := s.signTx(ctx, ec, to, data)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	if err := ec.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, ec, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}

	if s.logger != nil {
		s.logger.LogDebug(ctx, "transaction mined",
			"tx", tx.Hash().Hex(),
			"to", to.Hex(),
			"gas_used", receipt.GasUsed,
		)
	}

	return ret, nil
}

// signTx builds and signs an EIP-1559 transaction carrying data to to.
func (s *txSender) signTx(ctx context.Context, ec ethClient, to common.Address, data []byte) (*types.Transaction, error) {
	chainID, err := ec.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	nonce, err := ec.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasTipCap, err := ec.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas tip cap: %w", err)
	}

	header, err := ec.HeaderByNumber(ctx, nil)
	if err != nil || header.BaseFee == nil {
		return nil, fmt.Errorf("get header/base fee: %w", err)
	}
	gasFeeCap := new(big.Int).Add(
		new(big.Int).Mul(header.BaseFee, big.NewInt(2)),
		gasTipCap,
	)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       s.gasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	return types.SignTx(tx, types.NewLondonSigner(chainID), s.key)
}

// ethClient is the slice of ethclient.Client that signTx needs; it keeps
// the signing path testable without a live node.
type ethClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}
