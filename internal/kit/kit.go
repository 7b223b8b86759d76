// kit.go - The hidden-account engine.
//
// A Kit resolves a currency to its pool, recovers the caller's latest account from the
// pool's NewAccount events, asks the controller for proofs and either sends the resulting
// call, returns it unsigned, or hands it to a relayer.

package kit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"poofkit/internal/account"
	"poofkit/internal/contracts"
	"poofkit/internal/controller"
	"poofkit/internal/events"
	"poofkit/internal/message"
	"poofkit/internal/metrics"
	"poofkit/internal/registry"
	"poofkit/internal/relayer"
	"poofkit/internal/tree"
)

// DefaultGasLimit is the gas a relayer is assumed to spend on a withdraw or mint.
const DefaultGasLimit = 1_700_000

var (
	ErrUnknownCurrency   = errors.New("unknown currency")
	ErrNativeCurrency    = errors.New("currency has no token contract")
	ErrAmbiguousFeeBasis = errors.New("relayed operation must move either amount or debt, not both")
	ErrNothingToDo       = errors.New("amount and debt are both zero")
)

// Sender signs and broadcasts calls.
type Sender interface {
	From() common.Address
	Send(ctx context.Context, call *contracts.Call) (common.Hash, error)
}

// Options configure a Kit. Chain, Pools and Controller are required.
type Options struct {
	Chain      Chain
	Pools      *registry.Registry
	Controller *controller.Controller
	Scanner    *events.Scanner
	// Sender is optional; without it operations return unsigned calls.
	Sender Sender
	// Relayer builds a client for a relayer URL; relayer.NewClient when nil.
	Relayer  func(url string) *relayer.Client
	GasLimit uint64
	Log      zerolog.Logger
	Metrics  *metrics.Collector
}

// Kit runs pool operations for one chain.
type Kit struct {
	chain      Chain
	pools      *registry.Registry
	controller *controller.Controller
	scanner    *events.Scanner
	sender     Sender
	relayer    func(url string) *relayer.Client
	gasLimit   uint64
	log        zerolog.Logger
	metrics    *metrics.Collector
}

// New builds a Kit.
func New(o Options) *Kit {
	k := &Kit{
		chain:      o.Chain,
		pools:      o.Pools,
		controller: o.Controller,
		scanner:    o.Scanner,
		sender:     o.Sender,
		relayer:    o.Relayer,
		gasLimit:   o.GasLimit,
		log:        o.Log,
		metrics:    o.Metrics,
	}
	if k.scanner == nil {
		k.scanner = events.NewScanner(nil, o.Log)
	}
	if k.relayer == nil {
		k.relayer = func(url string) *relayer.Client { return relayer.NewClient(url, o.Log) }
	}
	if k.gasLimit == 0 {
		k.gasLimit = DefaultGasLimit
	}
	return k
}

// Result describes a prepared or submitted operation.
type Result struct {
	Method string
	// Call is the pool call; it is unsigned when TxHash is empty and no relayer was used.
	Call *contracts.Call
	// Proofs in pool order, as hex.
	Proofs  []string
	TxHash  string
	JobID   string
	Fee     *big.Int
	Account *account.Account
	// RelayerError is set when the relayer rejected or lost the job; the operation itself did not fail.
	RelayerError error
}

// GenerateKey returns a fresh encryption key pair: hex private key and base64 public key.
func GenerateKey() (priv, pub string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	priv = hex.EncodeToString(b)
	pub, err = message.EncryptionPublicKey(priv)
	return priv, pub, err
}

// PoolMatch resolves currency on the connected chain.
func (k *Kit) PoolMatch(ctx context.Context, currency string) (registry.PoolMatch, error) {
	id, err := k.chain.ChainID(ctx)
	if err != nil {
		return registry.PoolMatch{}, fmt.Errorf("chain id: %w", err)
	}
	p, ok := k.pools.Match(id.Uint64(), currency)
	if !ok {
		var known []string
		for _, pool := range k.pools.Pools(id.Uint64()) {
			known = append(known, pool.Symbol)
		}
		return registry.PoolMatch{}, fmt.Errorf("%w: %s on chain %s (known: %s)", ErrUnknownCurrency, currency, id, strings.Join(known, ", "))
	}
	return p, nil
}

func (k *Kit) token(ctx context.Context, currency string) (registry.PoolMatch, common.Address, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return p, common.Address{}, err
	}
	if p.TokenAddress == nil {
		return p, common.Address{}, fmt.Errorf("%w: %s", ErrNativeCurrency, currency)
	}
	return p, *p.TokenAddress, nil
}

// Allowance is how much of the underlying token the pool may pull from owner.
func (k *Kit) Allowance(ctx context.Context, currency string, owner common.Address) (*big.Int, error) {
	p, token, err := k.token(ctx, currency)
	if err != nil {
		return nil, err
	}
	return contracts.Allowance(ctx, k.chain, token, owner, p.PoolAddress)
}

// Balance is owner's balance of the underlying currency.
func (k *Kit) Balance(ctx context.Context, currency string, owner common.Address) (*big.Int, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return nil, err
	}
	if p.TokenAddress == nil {
		return k.chain.BalanceAt(ctx, owner, nil)
	}
	return contracts.BalanceOf(ctx, k.chain, *p.TokenAddress, owner)
}

// PBalance is owner's balance of the pool token.
func (k *Kit) PBalance(ctx context.Context, currency string, owner common.Address) (*big.Int, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return nil, err
	}
	return contracts.PoolBalanceOf(ctx, k.chain, p.PoolAddress, owner)
}

// Approve lets the pool pull amount of the underlying token.
func (k *Kit) Approve(ctx context.Context, currency string, amount *big.Int) (*Result, error) {
	p, token, err := k.token(ctx, currency)
	if err != nil {
		return nil, err
	}
	call, err := contracts.PackApprove(token, p.PoolAddress, amount)
	if err != nil {
		return nil, err
	}
	return k.dispatch(ctx, &Result{Method: call.Method, Call: call})
}

// UnitPerUnderlying reads the pool's internal-unit multiplier.
func (k *Kit) UnitPerUnderlying(ctx context.Context, currency string) (*big.Int, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return nil, err
	}
	return contracts.UnitPerUnderlying(ctx, k.chain, p.PoolAddress)
}

// AccountEvents returns every NewAccount event of the currency's pool.
func (k *Kit) AccountEvents(ctx context.Context, currency string) ([]events.AccountEvent, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return nil, err
	}
	return k.accountEvents(ctx, p)
}

func (k *Kit) accountEvents(ctx context.Context, p registry.PoolMatch) ([]events.AccountEvent, error) {
	latest, err := k.chain.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	logs, err := k.scanner.PastEvents(ctx, k.chain, events.Query{
		Address: p.PoolAddress,
		Topic:   contracts.NewAccountTopic(),
	}, p.StartBlock, latest+1)
	if err != nil {
		k.metrics.RecordError("events")
		return nil, err
	}
	k.metrics.RecordEvents(len(logs))
	return events.DecodeAccountEvents(logs, k.log), nil
}

// LatestAccount returns the newest account privateKey can open, or nil when there is none.
func (k *Kit) LatestAccount(ctx context.Context, currency, privateKey string) (*account.Account, error) {
	evs, err := k.AccountEvents(ctx, currency)
	if err != nil {
		return nil, err
	}
	acc, _, ok := events.LatestAccount(privateKey, evs)
	if !ok {
		return nil, nil
	}
	return acc, nil
}

// HiddenBalance returns the latest account's amount and debt in currency units.
func (k *Kit) HiddenBalance(ctx context.Context, currency, privateKey string) (amount, debt *big.Int, err error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return nil, nil, err
	}
	unit, err := contracts.UnitPerUnderlying(ctx, k.chain, p.PoolAddress)
	if err != nil {
		return nil, nil, err
	}
	st, err := k.state(ctx, p, privateKey)
	if err != nil {
		return nil, nil, err
	}
	if st.account == nil || unit.Sign() == 0 {
		return new(big.Int), new(big.Int), nil
	}
	return new(big.Int).Quo(st.account.Amount, unit), new(big.Int).Quo(st.account.Debt, unit), nil
}

// Verification reports the token contracts a pool points at.
type Verification struct {
	Pool         common.Address
	Token        common.Address
	DebtToken    common.Address
	HasDebtToken bool
	// TokenMatches is false when the pool's token differs from the registered one.
	TokenMatches bool
}

// Verify checks the pool's token against the registry and reads its optional debt token.
func (k *Kit) Verify(ctx context.Context, currency string) (*Verification, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return nil, err
	}
	v := &Verification{Pool: p.PoolAddress, TokenMatches: true}
	if p.TokenAddress != nil {
		if v.Token, err = contracts.PoolToken(ctx, k.chain, p.PoolAddress); err != nil {
			return nil, err
		}
		v.TokenMatches = v.Token == *p.TokenAddress
	}
	if debt, err := contracts.PoolDebtToken(ctx, k.chain, p.PoolAddress); err == nil {
		v.DebtToken, v.HasDebtToken = debt, true
	} else {
		k.log.Debug().Err(err).Str("pool", p.PoolAddress.Hex()).Msg("pool has no debt token")
	}
	return v, nil
}

// poolState is everything recovered from the chain before an operation.
type poolState struct {
	account *account.Account
	tree    *tree.Tree
}

func (k *Kit) state(ctx context.Context, p registry.PoolMatch, privateKey string) (*poolState, error) {
	evs, err := k.accountEvents(ctx, p)
	if err != nil {
		return nil, err
	}
	t, err := tree.New(tree.DefaultLevels, events.Commitments(evs))
	if err != nil {
		return nil, err
	}
	acc, ev, ok := events.LatestAccount(privateKey, evs)
	if !ok {
		return &poolState{tree: t}, nil
	}
	k.log.Debug().Uint64("block", ev.BlockNumber).Uint64("index", ev.Index).Msg("latest account found")
	return &poolState{account: acc, tree: t}, nil
}

// dispatch sends the call when a sender is configured.
func (k *Kit) dispatch(ctx context.Context, r *Result) (*Result, error) {
	k.metrics.RecordOperation(r.Method)
	if k.sender == nil {
		return r, nil
	}
	hash, err := k.sender.Send(ctx, r.Call)
	if err != nil {
		k.metrics.RecordError("send")
		return nil, err
	}
	r.TxHash = hash.Hex()
	return r, nil
}

func toInternal(v, unit *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(v, unit)
}
