package controller

import (
	"math/big"

	"github.com/consensys/gnark/frontend"

	"poofkit/internal/account"
	"poofkit/internal/circuits"
	"poofkit/internal/tree"
)

// Witness is the typed input of one circuit kind.
type Witness interface {
	Kind() circuits.Kind
	Assignment() frontend.Circuit
}

// Transition is the account tree movement shared by deposit and withdraw.
type Transition struct {
	Input      *account.Account
	Output     *account.Account
	InputRoot  *big.Int
	InputPath  tree.Path
	OutputRoot *big.Int
	OutputPath tree.Path
}

func (t Transition) signals() circuits.AccountSignals {
	return circuits.AccountSignals{
		InputRoot:          t.InputRoot,
		InputNullifierHash: t.Input.NullifierHash(),
		OutputRoot:         t.OutputRoot,
		OutputPathIndex:    t.OutputPath.Index,
		OutputCommitment:   t.Output.Commitment(),
	}
}

func (t Transition) balances() circuits.Balances {
	return circuits.Balances{
		InputAmount:     t.Input.Amount,
		InputDebt:       t.Input.Debt,
		InputSecret:     t.Input.Secret,
		InputNullifier:  t.Input.Nullifier,
		OutputAmount:    t.Output.Amount,
		OutputDebt:      t.Output.Debt,
		OutputSecret:    t.Output.Secret,
		OutputNullifier: t.Output.Nullifier,
	}
}

// DepositWitness feeds the Deposit circuit.
type DepositWitness struct {
	Amount            *big.Int
	Debt              *big.Int
	UnitPerUnderlying *big.Int
	ExtDataHash       *big.Int
	Transition
}

func (DepositWitness) Kind() circuits.Kind { return circuits.Deposit }

func (w DepositWitness) Assignment() frontend.Circuit {
	return &circuits.DepositCircuit{
		Amount:            w.Amount,
		Debt:              w.Debt,
		UnitPerUnderlying: w.UnitPerUnderlying,
		ExtDataHash:       w.ExtDataHash,
		Account:           w.signals(),
		Balances:          w.balances(),
	}
}

// WithdrawWitness feeds the Withdraw circuit.
type WithdrawWitness struct {
	Amount            *big.Int
	Debt              *big.Int
	UnitPerUnderlying *big.Int
	ExtDataHash       *big.Int
	Transition
}

func (WithdrawWitness) Kind() circuits.Kind { return circuits.Withdraw }

func (w WithdrawWitness) Assignment() frontend.Circuit {
	return &circuits.WithdrawCircuit{
		Amount:            w.Amount,
		Debt:              w.Debt,
		UnitPerUnderlying: w.UnitPerUnderlying,
		ExtDataHash:       w.ExtDataHash,
		Account:           w.signals(),
		Balances:          w.balances(),
	}
}

// InputRootWitness feeds the InputRoot circuit.
type InputRootWitness struct {
	Root       *big.Int
	Commitment *big.Int
	Path       tree.Path
}

func (InputRootWitness) Kind() circuits.Kind { return circuits.InputRoot }

func (w InputRootWitness) Assignment() frontend.Circuit {
	c := &circuits.InputRootCircuit{Root: w.Root, Commitment: w.Commitment, PathIndex: w.Path.Index}
	fillPath(&c.PathElements, w.Path)
	return c
}

// OutputRootWitness feeds the OutputRoot circuit.
type OutputRootWitness struct {
	OldRoot    *big.Int
	NewRoot    *big.Int
	Commitment *big.Int
	Path       tree.Path
}

func (OutputRootWitness) Kind() circuits.Kind { return circuits.OutputRoot }

func (w OutputRootWitness) Assignment() frontend.Circuit {
	c := &circuits.OutputRootCircuit{OldRoot: w.OldRoot, NewRoot: w.NewRoot, Commitment: w.Commitment, PathIndex: w.Path.Index}
	fillPath(&c.PathElements, w.Path)
	return c
}

func fillPath(dst *[circuits.TreeLevels]frontend.Variable, p tree.Path) {
	for i := range dst {
		if i < len(p.Elements) {
			dst[i] = p.Elements[i]
		} else {
			dst[i] = 0
		}
	}
}
