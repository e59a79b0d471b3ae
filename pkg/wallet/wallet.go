// Package wallet submits derived swap calls to an EVM chain. It is the
// Submit collaborator of the trade callback; quoting itself never needs it.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"portal-swap/pkg/trade"
)

// Wallet signs and sends transactions with a single private key over one
// RPC endpoint.
type Wallet struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	log        zerolog.Logger
}

// Option configures a Wallet.
type Option func(*Wallet)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Wallet) { w.log = log }
}

// New connects a wallet to an RPC endpoint.
func New(rpcURL, privateKeyHex string, chainID uint64, opts ...Option) (*Wallet, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL is required")
	}
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	w := &Wallet{
		client:     client,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    new(big.Int).SetUint64(chainID),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Address returns the wallet's account address.
func (w *Wallet) Address() common.Address { return w.address }

// Submit signs and sends the calls in order and returns the hash of the
// last transaction. It satisfies the trade callback's submit contract.
func (w *Wallet) Submit(ctx context.Context, calls []trade.Call) (common.Hash, error) {
	if len(calls) == 0 {
		return common.Hash{}, fmt.Errorf("no calls to submit")
	}

	var last common.Hash
	for _, call := range calls {
		hash, err := w.send(ctx, call)
		if err != nil {
			return common.Hash{}, err
		}
		last = hash
	}
	return last, nil
}

func (w *Wallet) send(ctx context.Context, call trade.Call) (common.Hash, error) {
	nonce, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	var gasLimit uint64
	if call.GasLimit != nil {
		gasLimit = call.GasLimit.Uint64()
	} else {
		msg := ethereum.CallMsg{
			From:  w.address,
			To:    &call.To,
			Value: value,
			Data:  call.Data,
		}
		estimated, err := w.client.EstimateGas(ctx, msg)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimated * 120 / 100
	}

	tx := types.NewTransaction(nonce, call.To, value, gasLimit, gasPrice, call.Data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.log.Info().
		Str("hash", signedTx.Hash().Hex()).
		Str("to", call.To.Hex()).
		Uint64("gasLimit", gasLimit).
		Msg("transaction submitted")

	return signedTx.Hash(), nil
}

// WaitMined blocks until the transaction is mined and reports whether it
// succeeded.
func (w *Wallet) WaitMined(ctx context.Context, hash common.Hash) (bool, error) {
	for {
		receipt, err := w.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt.Status == types.ReceiptStatusSuccessful, nil
		}
		if err != ethereum.NotFound {
			return false, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

// Close closes the RPC connection.
func (w *Wallet) Close() {
	if w.client != nil {
		w.client.Close()
	}
}
