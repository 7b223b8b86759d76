package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"
)

func accountSignals() AccountSignals {
	return AccountSignals{
		InputRoot:          11,
		InputNullifierHash: 12,
		OutputRoot:         13,
		OutputPathIndex:    5,
		OutputCommitment:   14,
	}
}

func balances(inAmount, inDebt, outAmount, outDebt int64) Balances {
	return Balances{
		InputAmount:     inAmount,
		InputDebt:       inDebt,
		InputSecret:     21,
		InputNullifier:  22,
		OutputAmount:    outAmount,
		OutputDebt:      outDebt,
		OutputSecret:    23,
		OutputNullifier: 24,
	}
}

func TestDepositCircuit(t *testing.T) {
	assert := test.NewAssert(t)

	valid := &DepositCircuit{
		Amount: 40, Debt: 5, UnitPerUnderlying: 1, ExtDataHash: 99,
		Account:  accountSignals(),
		Balances: balances(60, 10, 100, 5),
	}
	assert.ProverSucceeded(&DepositCircuit{}, valid,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	overRepaid := &DepositCircuit{
		Amount: 40, Debt: 15, UnitPerUnderlying: 1, ExtDataHash: 99,
		Account:  accountSignals(),
		Balances: balances(60, 10, 100, -5),
	}
	assert.ProverFailed(&DepositCircuit{}, overRepaid,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestWithdrawCircuit(t *testing.T) {
	field := ecc.BN254.ScalarField()

	valid := &WithdrawCircuit{
		Amount: 30, Debt: 7, UnitPerUnderlying: 1, ExtDataHash: 1,
		Account:  accountSignals(),
		Balances: balances(100, 0, 70, 7),
	}
	require.NoError(t, test.IsSolved(&WithdrawCircuit{}, valid, field))

	// withdrawing more than the balance would need a negative output amount
	overdraw := &WithdrawCircuit{
		Amount: 130, Debt: 0, UnitPerUnderlying: 1, ExtDataHash: 1,
		Account:  accountSignals(),
		Balances: balances(100, 0, -30, 0),
	}
	require.Error(t, test.IsSolved(&WithdrawCircuit{}, overdraw, field))
}

func TestRootCircuits(t *testing.T) {
	field := ecc.BN254.ScalarField()
	var elements [TreeLevels]frontend.Variable
	for i := range elements {
		elements[i] = big.NewInt(int64(i + 1))
	}

	in := &InputRootCircuit{Root: 1, Commitment: 2, PathIndex: 3, PathElements: elements}
	require.NoError(t, test.IsSolved(&InputRootCircuit{}, in, field))

	tooDeep := &InputRootCircuit{Root: 1, Commitment: 2, PathIndex: 1 << TreeLevels, PathElements: elements}
	require.Error(t, test.IsSolved(&InputRootCircuit{}, tooDeep, field))

	out := &OutputRootCircuit{OldRoot: 1, NewRoot: 2, Commitment: 3, PathIndex: 4, PathElements: elements}
	require.NoError(t, test.IsSolved(&OutputRootCircuit{}, out, field))

	unchanged := &OutputRootCircuit{OldRoot: 1, NewRoot: 1, Commitment: 3, PathIndex: 4, PathElements: elements}
	require.Error(t, test.IsSolved(&OutputRootCircuit{}, unchanged, field))
}

func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
		c, err := New(k)
		require.NoError(t, err)
		require.NotNil(t, c)
	}
	_, err := ParseKind("transfer")
	require.Error(t, err)
}
