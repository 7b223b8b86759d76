// types.go - Typed pool call arguments, laid out to match the pool ABI tuples.

package contracts

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DepositExtData is bound into the deposit proof through its hash.
type DepositExtData struct {
	EncryptedAccount []byte
}

// WithdrawExtData is bound into the withdraw proof through its hash.
type WithdrawExtData struct {
	Fee              *big.Int
	Recipient        common.Address
	Relayer          common.Address
	EncryptedAccount []byte
}

// AccountUpdate describes the account tree transition.
type AccountUpdate struct {
	InputRoot          [32]byte
	InputNullifierHash [32]byte
	OutputRoot         [32]byte
	OutputPathIndices  *big.Int
	OutputCommitment   [32]byte
}

// DepositArgs are the public arguments of deposit and burn.
type DepositArgs struct {
	Amount            *big.Int
	Debt              *big.Int
	UnitPerUnderlying *big.Int
	ExtDataHash       [32]byte
	ExtData           DepositExtData
	Account           AccountUpdate
}

// WithdrawArgs are the public arguments of withdraw and mint.
type WithdrawArgs struct {
	Amount            *big.Int
	Debt              *big.Int
	UnitPerUnderlying *big.Int
	ExtDataHash       [32]byte
	ExtData           WithdrawExtData
	Account           AccountUpdate
}

type accountJSON struct {
	InputRoot          hexutil.Bytes `json:"inputRoot"`
	InputNullifierHash hexutil.Bytes `json:"inputNullifierHash"`
	OutputRoot         hexutil.Bytes `json:"outputRoot"`
	OutputPathIndices  *hexutil.Big  `json:"outputPathIndices"`
	OutputCommitment   hexutil.Bytes `json:"outputCommitment"`
}

func (a AccountUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(accountJSON{
		InputRoot:          a.InputRoot[:],
		InputNullifierHash: a.InputNullifierHash[:],
		OutputRoot:         a.OutputRoot[:],
		OutputPathIndices:  (*hexutil.Big)(orZero(a.OutputPathIndices)),
		OutputCommitment:   a.OutputCommitment[:],
	})
}

func (a DepositArgs) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount            *hexutil.Big  `json:"amount"`
		Debt              *hexutil.Big  `json:"debt"`
		UnitPerUnderlying *hexutil.Big  `json:"unitPerUnderlying"`
		ExtDataHash       hexutil.Bytes `json:"extDataHash"`
		ExtData           struct {
			EncryptedAccount hexutil.Bytes `json:"encryptedAccount"`
		} `json:"extData"`
		Account AccountUpdate `json:"account"`
	}{
		Amount:            (*hexutil.Big)(orZero(a.Amount)),
		Debt:              (*hexutil.Big)(orZero(a.Debt)),
		UnitPerUnderlying: (*hexutil.Big)(orZero(a.UnitPerUnderlying)),
		ExtDataHash:       a.ExtDataHash[:],
		ExtData: struct {
			EncryptedAccount hexutil.Bytes `json:"encryptedAccount"`
		}{a.ExtData.EncryptedAccount},
		Account: a.Account,
	})
}

type withdrawExtJSON struct {
	Fee              *hexutil.Big   `json:"fee"`
	Recipient        common.Address `json:"recipient"`
	Relayer          common.Address `json:"relayer"`
	EncryptedAccount hexutil.Bytes  `json:"encryptedAccount"`
}

func (a WithdrawArgs) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount            *hexutil.Big    `json:"amount"`
		Debt              *hexutil.Big    `json:"debt"`
		UnitPerUnderlying *hexutil.Big    `json:"unitPerUnderlying"`
		ExtDataHash       hexutil.Bytes   `json:"extDataHash"`
		ExtData           withdrawExtJSON `json:"extData"`
		Account           AccountUpdate   `json:"account"`
	}{
		Amount:            (*hexutil.Big)(orZero(a.Amount)),
		Debt:              (*hexutil.Big)(orZero(a.Debt)),
		UnitPerUnderlying: (*hexutil.Big)(orZero(a.UnitPerUnderlying)),
		ExtDataHash:       a.ExtDataHash[:],
		ExtData: withdrawExtJSON{
			Fee:              (*hexutil.Big)(orZero(a.ExtData.Fee)),
			Recipient:        a.ExtData.Recipient,
			Relayer:          a.ExtData.Relayer,
			EncryptedAccount: a.ExtData.EncryptedAccount,
		},
		Account: a.Account,
	})
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
