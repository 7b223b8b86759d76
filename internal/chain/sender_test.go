package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofkit/internal/contracts"
)

type fakeBackend struct {
	sent *types.Transaction
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(5), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = tx
	return nil
}

func TestSend(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	backend := &fakeBackend{}
	chainID := big.NewInt(44787)
	s := NewSender(backend, key, chainID, zerolog.Nop())

	call := &contracts.Call{To: common.HexToAddress("0x01"), Method: "approve", Data: []byte{1, 2}}
	hash, err := s.Send(context.Background(), call)
	require.NoError(t, err)
	require.NotNil(t, backend.sent)
	assert.Equal(t, hash, backend.sent.Hash())
	assert.Equal(t, uint64(7), backend.sent.Nonce())
	assert.Equal(t, uint64(21_000), backend.sent.Gas())

	from, err := types.Sender(types.LatestSignerForChainID(chainID), backend.sent)
	require.NoError(t, err)
	assert.Equal(t, s.From(), from)
}

func TestParseKey(t *testing.T) {
	_, err := ParseKey("")
	require.ErrorIs(t, err, ErrNoKey)
	_, err = ParseKey("0xzz")
	require.Error(t, err)
	k, err := ParseKey("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", ethcrypto.PubkeyToAddress(k.PublicKey).Hex())
}
