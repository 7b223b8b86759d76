package controller

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"poofkit/internal/contracts"
)

var (
	depositExtArgs = mustTupleArgs([]abi.ArgumentMarshaling{
		{Name: "encryptedAccount", Type: "bytes"},
	})
	withdrawExtArgs = mustTupleArgs([]abi.ArgumentMarshaling{
		{Name: "fee", Type: "uint256"},
		{Name: "recipient", Type: "address"},
		{Name: "relayer", Type: "address"},
		{Name: "encryptedAccount", Type: "bytes"},
	})
)

func mustTupleArgs(components []abi.ArgumentMarshaling) abi.Arguments {
	t, err := abi.NewType("tuple", "", components)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: t}}
}

// ExtDepositArgsHash hashes the ABI-encoded deposit external data. The first byte is zeroed
// so the hash fits in the proof's field.
func ExtDepositArgsHash(ext contracts.DepositExtData) ([32]byte, error) {
	enc, err := depositExtArgs.Pack(ext)
	if err != nil {
		return [32]byte{}, err
	}
	return fieldHash(enc), nil
}

// ExtWithdrawArgsHash hashes the ABI-encoded withdraw external data, first byte zeroed.
func ExtWithdrawArgsHash(ext contracts.WithdrawExtData) ([32]byte, error) {
	if ext.Fee == nil {
		ext.Fee = new(big.Int)
	}
	enc, err := withdrawExtArgs.Pack(ext)
	if err != nil {
		return [32]byte{}, err
	}
	return fieldHash(enc), nil
}

func fieldHash(enc []byte) [32]byte {
	var h [32]byte
	copy(h[:], ethcrypto.Keccak256(enc))
	h[0] = 0
	return h
}
