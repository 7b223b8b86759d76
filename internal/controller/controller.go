// controller.go - Builds proofs and public arguments for pool operations.
//
// For every operation the controller derives the next account, encrypts it for its owner,
// binds the encrypted account (and withdraw parameters) through the external-data hash and
// proves the main circuit together with the input and output root circuits.

package controller

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"poofkit/internal/account"
	"poofkit/internal/circuits"
	"poofkit/internal/contracts"
	"poofkit/internal/crypto"
	"poofkit/internal/keys"
	"poofkit/internal/message"
	"poofkit/internal/metrics"
	"poofkit/internal/prover"
	"poofkit/internal/tree"
)

var (
	ErrNoAccount           = errors.New("no account found")
	ErrUnknownAccount      = errors.New("account commitment is not in the account tree")
	ErrInsufficientBalance = errors.New("insufficient hidden balance")
	ErrInsufficientDebt    = errors.New("repayment exceeds outstanding debt")
	ErrInvalidAmount       = errors.New("amount and debt must be non-negative")
	ErrNoUnit              = errors.New("unit per underlying must be positive")
)

// MaterialSource provides proving material per circuit kind.
type MaterialSource interface {
	Get(ctx context.Context, kind circuits.Kind) (*keys.Material, error)
}

// Controller turns account transitions into proofs.
type Controller struct {
	backend prover.Backend
	keys    MaterialSource
	log     zerolog.Logger
	metrics *metrics.Collector
}

// New creates a controller. metrics may be nil.
func New(backend prover.Backend, keys MaterialSource, log zerolog.Logger, m *metrics.Collector) *Controller {
	return &Controller{backend: backend, keys: keys, log: log, metrics: m}
}

// Proofs holds the main proof followed by the input and output root proofs.
type Proofs struct {
	Main       *prover.Proof
	InputRoot  *prover.Proof
	OutputRoot *prover.Proof
}

// Bytes returns the proofs in the order the pool expects them.
func (p Proofs) Bytes() [][]byte {
	return [][]byte{p.Main.Data, p.InputRoot.Data, p.OutputRoot.Data}
}

// Hex returns the proofs as 0x strings in pool order.
func (p Proofs) Hex() []string {
	return []string{p.Main.Hex(), p.InputRoot.Hex(), p.OutputRoot.Hex()}
}

// DepositParams are the inputs of Deposit. Amount and Debt are in internal units.
type DepositParams struct {
	Account           *account.Account
	PublicKey         string
	Amount            *big.Int
	Debt              *big.Int
	UnitPerUnderlying *big.Int
	// Tree holds every issued commitment. Deposit appends the new account to it.
	Tree *tree.Tree
}

// DepositResult is a ready-to-submit deposit or burn.
type DepositResult struct {
	Method  string
	Proofs  Proofs
	Args    contracts.DepositArgs
	Account *account.Account
}

// WithdrawParams are the inputs of Withdraw. Amount, Debt and Fee are in internal units.
type WithdrawParams struct {
	Account           *account.Account
	PublicKey         string
	Amount            *big.Int
	Debt              *big.Int
	UnitPerUnderlying *big.Int
	Fee               *big.Int
	Recipient         common.Address
	Relayer           common.Address
	// Tree holds every issued commitment. Withdraw appends the new account to it.
	Tree *tree.Tree
}

// WithdrawResult is a ready-to-submit withdraw or mint.
type WithdrawResult struct {
	Method  string
	Proofs  Proofs
	Args    contracts.WithdrawArgs
	Account *account.Account
}

// Deposit adds Amount to the account and repays Debt.
func (c *Controller) Deposit(ctx context.Context, p DepositParams) (*DepositResult, error) {
	if err := checkValues(p.Amount, p.Debt, p.UnitPerUnderlying); err != nil {
		return nil, err
	}
	in := p.Account
	if in == nil {
		in = account.New()
	}
	if p.Debt.Cmp(in.Debt) > 0 {
		return nil, ErrInsufficientDebt
	}
	out, err := account.NewWithBalance(
		new(big.Int).Add(in.Amount, p.Amount),
		new(big.Int).Sub(in.Debt, p.Debt),
	)
	if err != nil {
		return nil, err
	}

	if err := c.loadMaterial(ctx, circuits.Deposit); err != nil {
		return nil, err
	}
	encrypted, err := encryptAccount(out, p.PublicKey)
	if err != nil {
		return nil, err
	}
	ext := contracts.DepositExtData{EncryptedAccount: encrypted}
	extHash, err := ExtDepositArgsHash(ext)
	if err != nil {
		return nil, fmt.Errorf("deposit ext data hash: %w", err)
	}
	tr, err := transition(p.Tree, in, out)
	if err != nil {
		return nil, err
	}

	main := DepositWitness{
		Amount:            p.Amount,
		Debt:              p.Debt,
		UnitPerUnderlying: p.UnitPerUnderlying,
		ExtDataHash:       new(big.Int).SetBytes(extHash[:]),
		Transition:        tr,
	}
	proofs, err := c.prove(ctx, main, tr)
	if err != nil {
		return nil, err
	}

	method := contracts.MethodDeposit
	if p.Debt.Sign() != 0 {
		method = contracts.MethodBurn
	}
	c.log.Info().Str("method", method).Str("commitment", crypto.MustFixedHex(out.Commitment(), 32)).Msg("deposit proof ready")
	return &DepositResult{
		Method: method,
		Proofs: proofs,
		Args: contracts.DepositArgs{
			Amount:            p.Amount,
			Debt:              p.Debt,
			UnitPerUnderlying: p.UnitPerUnderlying,
			ExtDataHash:       extHash,
			ExtData:           ext,
			Account:           tr.update(),
		},
		Account: out,
	}, nil
}

// Withdraw takes Amount out of the account and borrows Debt against it.
func (c *Controller) Withdraw(ctx context.Context, p WithdrawParams) (*WithdrawResult, error) {
	in := p.Account
	if in == nil {
		return nil, ErrNoAccount
	}
	if err := checkValues(p.Amount, p.Debt, p.UnitPerUnderlying); err != nil {
		return nil, err
	}
	if p.Amount.Cmp(in.Amount) > 0 {
		return nil, ErrInsufficientBalance
	}
	fee := p.Fee
	if fee == nil {
		fee = new(big.Int)
	}
	out, err := account.NewWithBalance(
		new(big.Int).Sub(in.Amount, p.Amount),
		new(big.Int).Add(in.Debt, p.Debt),
	)
	if err != nil {
		return nil, err
	}

	if err := c.loadMaterial(ctx, circuits.Withdraw); err != nil {
		return nil, err
	}
	encrypted, err := encryptAccount(out, p.PublicKey)
	if err != nil {
		return nil, err
	}
	ext := contracts.WithdrawExtData{
		Fee:              fee,
		Recipient:        p.Recipient,
		Relayer:          p.Relayer,
		EncryptedAccount: encrypted,
	}
	extHash, err := ExtWithdrawArgsHash(ext)
	if err != nil {
		return nil, fmt.Errorf("withdraw ext data hash: %w", err)
	}
	tr, err := transition(p.Tree, in, out)
	if err != nil {
		return nil, err
	}

	main := WithdrawWitness{
		Amount:            p.Amount,
		Debt:              p.Debt,
		UnitPerUnderlying: p.UnitPerUnderlying,
		ExtDataHash:       new(big.Int).SetBytes(extHash[:]),
		Transition:        tr,
	}
	proofs, err := c.prove(ctx, main, tr)
	if err != nil {
		return nil, err
	}

	method := contracts.MethodWithdraw
	if p.Debt.Sign() != 0 {
		method = contracts.MethodMint
	}
	c.log.Info().Str("method", method).Str("commitment", crypto.MustFixedHex(out.Commitment(), 32)).Msg("withdraw proof ready")
	return &WithdrawResult{
		Method: method,
		Proofs: proofs,
		Args: contracts.WithdrawArgs{
			Amount:            p.Amount,
			Debt:              p.Debt,
			UnitPerUnderlying: p.UnitPerUnderlying,
			ExtDataHash:       extHash,
			ExtData:           ext,
			Account:           tr.update(),
		},
		Account: out,
	}, nil
}

// loadMaterial makes sure every circuit an operation needs is ready before any witness is built.
func (c *Controller) loadMaterial(ctx context.Context, main circuits.Kind) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range []circuits.Kind{main, circuits.InputRoot, circuits.OutputRoot} {
		g.Go(func() error {
			_, err := c.keys.Get(gctx, k)
			return err
		})
	}
	return g.Wait()
}

func (c *Controller) prove(ctx context.Context, main Witness, tr Transition) (Proofs, error) {
	witnesses := []Witness{
		main,
		InputRootWitness{Root: tr.InputRoot, Commitment: tr.Input.Commitment(), Path: tr.InputPath},
		OutputRootWitness{OldRoot: tr.InputRoot, NewRoot: tr.OutputRoot, Commitment: tr.Output.Commitment(), Path: tr.OutputPath},
	}
	proofs := make([]*prover.Proof, len(witnesses))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range witnesses {
		g.Go(func() error {
			material, err := c.keys.Get(gctx, w.Kind())
			if err != nil {
				return err
			}
			start := time.Now()
			proof, err := c.backend.Prove(gctx, w.Kind(), w.Assignment(), material)
			if err != nil {
				c.metrics.RecordError("prove")
				return fmt.Errorf("prove %s: %w", w.Kind(), err)
			}
			c.metrics.RecordProofGeneration(w.Kind().String(), time.Since(start))
			c.log.Debug().Str("circuit", w.Kind().String()).Strs("signals", proof.Signals()).Msg("public signals")
			proofs[i] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Proofs{}, err
	}
	return Proofs{Main: proofs[0], InputRoot: proofs[1], OutputRoot: proofs[2]}, nil
}

// transition locates in inside t and appends out. A fresh empty account that was never
// committed proves against the current root with an empty path.
func transition(t *tree.Tree, in, out *account.Account) (Transition, error) {
	if t == nil {
		var err error
		if t, err = tree.New(tree.DefaultLevels, nil); err != nil {
			return Transition{}, err
		}
	}
	tr := Transition{Input: in, Output: out, InputRoot: t.Root()}
	if idx, ok := t.IndexOf(in.Commitment()); ok {
		path, err := t.Path(idx)
		if err != nil {
			return Transition{}, err
		}
		tr.InputPath = path
	} else if !in.IsZero() {
		return Transition{}, ErrUnknownAccount
	} else {
		tr.InputPath = tree.Path{Elements: make([]*big.Int, t.Levels())}
		for i := range tr.InputPath.Elements {
			tr.InputPath.Elements[i] = new(big.Int)
		}
	}

	if err := t.Insert(out.Commitment()); err != nil {
		return Transition{}, err
	}
	path, err := t.Path(t.Len() - 1)
	if err != nil {
		return Transition{}, err
	}
	tr.OutputRoot = t.Root()
	tr.OutputPath = path
	return tr, nil
}

func (t Transition) update() contracts.AccountUpdate {
	return contracts.AccountUpdate{
		InputRoot:          crypto.FixedBytes32(t.InputRoot),
		InputNullifierHash: crypto.FixedBytes32(t.Input.NullifierHash()),
		OutputRoot:         crypto.FixedBytes32(t.OutputRoot),
		OutputPathIndices:  new(big.Int).SetUint64(t.OutputPath.Index),
		OutputCommitment:   crypto.FixedBytes32(t.Output.Commitment()),
	}
}

func encryptAccount(a *account.Account, publicKey string) ([]byte, error) {
	m, err := a.Encrypt(publicKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt account: %w", err)
	}
	packed, err := message.Pack(m)
	if err != nil {
		return nil, err
	}
	return hexutil.Decode(packed)
}

func checkValues(amount, debt, unit *big.Int) error {
	if amount == nil || debt == nil || amount.Sign() < 0 || debt.Sign() < 0 {
		return ErrInvalidAmount
	}
	if unit == nil || unit.Sign() <= 0 {
		return ErrNoUnit
	}
	return nil
}
