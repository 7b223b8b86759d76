// sender.go - Signs and broadcasts prepared contract calls.

package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"poofkit/internal/contracts"
)

var ErrNoKey = errors.New("chain: no signing key configured")

// Backend is the RPC surface the sender needs; *ethclient.Client satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Sender signs calls with one key.
type Sender struct {
	backend Backend
	key     *ecdsa.PrivateKey
	chainID *big.Int
	log     zerolog.Logger
}

// ParseKey decodes a hex secp256k1 private key, with or without 0x.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	if hexKey == "" {
		return nil, ErrNoKey
	}
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid private key: %w", err)
	}
	return key, nil
}

// NewSender returns a sender for chainID.
func NewSender(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, log zerolog.Logger) *Sender {
	return &Sender{backend: backend, key: key, chainID: chainID, log: log}
}

// From is the sender's address.
func (s *Sender) From() common.Address {
	return ethcrypto.PubkeyToAddress(s.key.PublicKey)
}

// Send estimates gas, signs call as a legacy transaction and broadcasts it.
func (s *Sender) Send(ctx context.Context, call *contracts.Call) (common.Hash, error) {
	from := s.From()
	nonce, err := s.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}
	gas, err := s.backend.EstimateGas(ctx, call.Msg(from))
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas for %s: %w", call.Method, err)
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &call.To,
		Value:    value,
		Data:     call.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", call.Method, err)
	}
	s.log.Info().Str("method", call.Method).Str("tx", signed.Hash().Hex()).Uint64("gas", gas).Msg("transaction sent")
	return signed.Hash(), nil
}
