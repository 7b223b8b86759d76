package account

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofkit/internal/crypto"
	"poofkit/internal/message"
)

func keyPair(t *testing.T) (string, string) {
	t.Helper()
	b := make([]byte, 32)
	_, err := rand.Read(b)
	require.NoError(t, err)
	priv := hex.EncodeToString(b)
	pub, err := message.EncryptionPublicKey(priv)
	require.NoError(t, err)
	return priv, pub
}

func TestNewAccountIsZero(t *testing.T) {
	a := New()
	assert.True(t, a.IsZero())
	assert.NotZero(t, a.Secret.Sign())
	assert.NotEqual(t, a.Commitment(), New().Commitment())
}

func TestCommitmentDerivation(t *testing.T) {
	a, err := FromFields(big.NewInt(10), big.NewInt(2), big.NewInt(3), big.NewInt(4))
	require.NoError(t, err)

	want, err := crypto.Poseidon(big.NewInt(10), big.NewInt(2), big.NewInt(3), big.NewInt(4))
	require.NoError(t, err)
	assert.Equal(t, want, a.Commitment())

	nh, err := crypto.Poseidon(big.NewInt(4))
	require.NoError(t, err)
	assert.Equal(t, nh, a.NullifierHash())
}

func TestFromFieldsValidation(t *testing.T) {
	_, err := FromFields(big.NewInt(-1), big.NewInt(0), big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrNegative)

	huge := new(big.Int).Lsh(big.NewInt(1), FieldBytes*8)
	_, err = FromFields(huge, big.NewInt(0), big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	priv, pub := keyPair(t)
	a, err := NewWithBalance(big.NewInt(1_000_000), big.NewInt(5))
	require.NoError(t, err)

	m, err := a.Encrypt(pub)
	require.NoError(t, err)

	packed, err := message.Pack(m)
	require.NoError(t, err)
	unpacked, err := message.Unpack(packed)
	require.NoError(t, err)

	got, err := Decrypt(priv, unpacked)
	require.NoError(t, err)
	assert.Equal(t, a.Amount, got.Amount)
	assert.Equal(t, a.Debt, got.Debt)
	assert.Equal(t, a.Commitment(), got.Commitment())
	assert.Equal(t, a.NullifierHash(), got.NullifierHash())
}

func TestDecryptWithForeignKey(t *testing.T) {
	_, pub := keyPair(t)
	other, _ := keyPair(t)
	m, err := New().Encrypt(pub)
	require.NoError(t, err)

	_, err = Decrypt(other, m)
	require.ErrorIs(t, err, ErrDecrypt)
}
