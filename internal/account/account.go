// account.go - Hidden account: a private (amount, debt) balance owned by an encryption key.
//
// An account is identified on chain only by its commitment. Spending it reveals its nullifier hash.
// The full account is published encrypted to its owner and recovered by trial decryption.

package account

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"

	"poofkit/internal/crypto"
	"poofkit/internal/message"
)

// FieldBytes is the serialised width of each account field.
const FieldBytes = 31

var (
	ErrNegative = errors.New("account: amount and debt must be non-negative")
	ErrTooLarge = errors.New("account: value does not fit in 31 bytes")
	ErrDecrypt  = errors.New("account: not encrypted to this key")
)

// Account is immutable once constructed; balance changes produce a new Account.
type Account struct {
	Amount    *big.Int
	Debt      *big.Int
	Secret    *big.Int
	Nullifier *big.Int

	commitment    *big.Int
	nullifierHash *big.Int
}

// New returns an empty account with fresh randomness.
func New() *Account {
	a, _ := NewWithBalance(new(big.Int), new(big.Int))
	return a
}

// NewWithBalance returns an account holding amount and debt with fresh randomness.
func NewWithBalance(amount, debt *big.Int) (*Account, error) {
	return FromFields(amount, debt, crypto.RandomField(FieldBytes), crypto.RandomField(FieldBytes))
}

// FromFields builds an account from explicit values and derives its hashes.
func FromFields(amount, debt, secret, nullifier *big.Int) (*Account, error) {
	for _, v := range []*big.Int{amount, debt, secret, nullifier} {
		if v == nil || v.Sign() < 0 {
			return nil, ErrNegative
		}
		if v.BitLen() > FieldBytes*8 {
			return nil, ErrTooLarge
		}
	}
	a := &Account{
		Amount:    new(big.Int).Set(amount),
		Debt:      new(big.Int).Set(debt),
		Secret:    new(big.Int).Set(secret),
		Nullifier: new(big.Int).Set(nullifier),
	}
	var err error
	if a.commitment, err = crypto.Poseidon(a.Amount, a.Debt, a.Secret, a.Nullifier); err != nil {
		return nil, fmt.Errorf("account commitment: %w", err)
	}
	if a.nullifierHash, err = crypto.Poseidon(a.Nullifier); err != nil {
		return nil, fmt.Errorf("account nullifier hash: %w", err)
	}
	return a, nil
}

// Commitment is Poseidon(amount, debt, secret, nullifier).
func (a *Account) Commitment() *big.Int { return new(big.Int).Set(a.commitment) }

// NullifierHash is Poseidon(nullifier).
func (a *Account) NullifierHash() *big.Int { return new(big.Int).Set(a.nullifierHash) }

// IsZero reports whether the account holds neither amount nor debt.
func (a *Account) IsZero() bool {
	return a.Amount.Sign() == 0 && a.Debt.Sign() == 0
}

// Encrypt seals the account for the owner of publicKey.
func (a *Account) Encrypt(publicKey string) (*message.EncryptedMessage, error) {
	buf := make([]byte, 0, 4*FieldBytes)
	for _, v := range []*big.Int{a.Amount, a.Debt, a.Secret, a.Nullifier} {
		buf = append(buf, v.FillBytes(make([]byte, FieldBytes))...)
	}
	return message.Encrypt(publicKey, base64.StdEncoding.EncodeToString(buf))
}

// Decrypt recovers an account from m. It returns ErrDecrypt when m was not sealed for privateKey.
func Decrypt(privateKey string, m *message.EncryptedMessage) (*Account, error) {
	plain, err := message.Decrypt(m, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	buf, err := base64.StdEncoding.DecodeString(plain)
	if err != nil || len(buf) != 4*FieldBytes {
		return nil, fmt.Errorf("%w: unexpected plaintext layout", ErrDecrypt)
	}
	field := func(i int) *big.Int {
		return new(big.Int).SetBytes(buf[i*FieldBytes : (i+1)*FieldBytes])
	}
	return FromFields(field(0), field(1), field(2), field(3))
}

func (a *Account) String() string {
	return fmt.Sprintf("Account{amount: %s, debt: %s, commitment: %s}",
		a.Amount, a.Debt, crypto.MustFixedHex(a.commitment, 32))
}
