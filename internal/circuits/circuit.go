// circuit.go - Balance transition circuits for hidden accounts.
//
// Deposit and Withdraw constrain how an account's (amount, debt) pair moves between the
// spent input account and the freshly committed output account. Every public signal the
// pool contract passes to the verifier is bound here.

package circuits

import (
	"github.com/consensys/gnark/frontend"
)

const (
	// ValueBits bounds amounts and debts; the account encoding holds 31 bytes per field.
	ValueBits = 248
	// TreeLevels is the depth of the account tree.
	TreeLevels = 20
)

// AccountSignals are the public signals describing the tree transition.
type AccountSignals struct {
	InputRoot          frontend.Variable `gnark:",public"`
	InputNullifierHash frontend.Variable `gnark:",public"`
	OutputRoot         frontend.Variable `gnark:",public"`
	OutputPathIndex    frontend.Variable `gnark:",public"`
	OutputCommitment   frontend.Variable `gnark:",public"`
}

// Balances are the private values of the input and output accounts.
type Balances struct {
	InputAmount     frontend.Variable
	InputDebt       frontend.Variable
	InputSecret     frontend.Variable
	InputNullifier  frontend.Variable
	OutputAmount    frontend.Variable
	OutputDebt      frontend.Variable
	OutputSecret    frontend.Variable
	OutputNullifier frontend.Variable
}

// DepositCircuit adds Amount to the account and repays Debt.
type DepositCircuit struct {
	Amount            frontend.Variable `gnark:",public"`
	Debt              frontend.Variable `gnark:",public"`
	UnitPerUnderlying frontend.Variable `gnark:",public"`
	ExtDataHash       frontend.Variable `gnark:",public"`
	Account           AccountSignals

	Balances Balances
}

func (c *DepositCircuit) Define(api frontend.API) error {
	b := c.Balances
	api.AssertIsEqual(b.OutputAmount, api.Add(b.InputAmount, c.Amount))
	api.AssertIsEqual(b.InputDebt, api.Add(b.OutputDebt, c.Debt))

	rangeCheck(api, c.Amount, c.Debt, b.InputAmount, b.InputDebt, b.OutputAmount, b.OutputDebt)
	bindAccount(api, c.Account, b)
	api.AssertIsDifferent(c.UnitPerUnderlying, 0)
	api.ToBinary(c.ExtDataHash)
	return nil
}

// WithdrawCircuit takes Amount out of the account and borrows Debt against it.
type WithdrawCircuit struct {
	Amount            frontend.Variable `gnark:",public"`
	Debt              frontend.Variable `gnark:",public"`
	UnitPerUnderlying frontend.Variable `gnark:",public"`
	ExtDataHash       frontend.Variable `gnark:",public"`
	Account           AccountSignals

	Balances Balances
}

func (c *WithdrawCircuit) Define(api frontend.API) error {
	b := c.Balances
	api.AssertIsEqual(b.InputAmount, api.Add(b.OutputAmount, c.Amount))
	api.AssertIsEqual(b.OutputDebt, api.Add(b.InputDebt, c.Debt))

	rangeCheck(api, c.Amount, c.Debt, b.InputAmount, b.InputDebt, b.OutputAmount, b.OutputDebt)
	bindAccount(api, c.Account, b)
	api.AssertIsDifferent(c.UnitPerUnderlying, 0)
	api.ToBinary(c.ExtDataHash)
	return nil
}

// rangeCheck keeps values below 2^ValueBits so that subtraction cannot wrap around the field.
func rangeCheck(api frontend.API, values ...frontend.Variable) {
	for _, v := range values {
		api.ToBinary(v, ValueBits)
	}
}

func bindAccount(api frontend.API, a AccountSignals, b Balances) {
	api.ToBinary(a.OutputPathIndex, TreeLevels)
	for _, v := range []frontend.Variable{
		a.InputRoot, a.InputNullifierHash, a.OutputRoot, a.OutputCommitment,
		b.InputSecret, b.InputNullifier, b.OutputSecret, b.OutputNullifier,
	} {
		api.ToBinary(v)
	}
	// a spent nullifier can never be reused for the output account
	api.AssertIsDifferent(b.InputNullifier, b.OutputNullifier)
}
