package kit

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poofkit/internal/contracts"
	"poofkit/internal/controller"
	"poofkit/internal/fee"
	"poofkit/internal/message"
	"poofkit/internal/registry"
	"poofkit/internal/relayer"
)

// DepositRequest moves Amount into the hidden account and repays Debt.
// Both are in currency base units.
type DepositRequest struct {
	Currency   string
	Amount     *big.Int
	Debt       *big.Int
	PrivateKey string
}

// WithdrawRequest moves Amount out of the hidden account and borrows Debt against it.
// Both are in currency base units.
type WithdrawRequest struct {
	Currency   string
	Amount     *big.Int
	Debt       *big.Int
	Recipient  common.Address
	PrivateKey string
	// RelayerURL submits through a relayer when set.
	RelayerURL string
}

// Deposit performs a deposit, or a burn when Debt is non-zero.
func (k *Kit) Deposit(ctx context.Context, req DepositRequest) (*Result, error) {
	if isZero(req.Amount) && isZero(req.Debt) {
		return nil, ErrNothingToDo
	}
	p, unit, pub, err := k.prepare(ctx, req.Currency, req.PrivateKey)
	if err != nil {
		return nil, err
	}
	st, err := k.state(ctx, p, req.PrivateKey)
	if err != nil {
		return nil, err
	}

	res, err := k.controller.Deposit(ctx, controller.DepositParams{
		Account:           st.account,
		PublicKey:         pub,
		Amount:            toInternal(req.Amount, unit),
		Debt:              toInternal(req.Debt, unit),
		UnitPerUnderlying: unit,
		Tree:              st.tree,
	})
	if err != nil {
		k.metrics.RecordError("deposit")
		return nil, err
	}
	call, err := contracts.PackDeposit(p.PoolAddress, res.Method, res.Proofs.Bytes(), res.Args)
	if err != nil {
		return nil, err
	}
	if p.Native && !isZero(req.Amount) {
		call.Value = new(big.Int).Set(req.Amount)
	}
	return k.dispatch(ctx, &Result{
		Method:  res.Method,
		Call:    call,
		Proofs:  res.Proofs.Hex(),
		Account: res.Account,
	})
}

// Withdraw performs a withdraw, or a mint when Debt is non-zero.
func (k *Kit) Withdraw(ctx context.Context, req WithdrawRequest) (*Result, error) {
	if isZero(req.Amount) && isZero(req.Debt) {
		return nil, ErrNothingToDo
	}
	p, unit, pub, err := k.prepare(ctx, req.Currency, req.PrivateKey)
	if err != nil {
		return nil, err
	}
	st, err := k.state(ctx, p, req.PrivateKey)
	if err != nil {
		return nil, err
	}
	if st.account == nil {
		return nil, controller.ErrNoAccount
	}

	params := controller.WithdrawParams{
		Account:           st.account,
		PublicKey:         pub,
		Amount:            toInternal(req.Amount, unit),
		Debt:              toInternal(req.Debt, unit),
		UnitPerUnderlying: unit,
		Fee:               new(big.Int),
		Recipient:         req.Recipient,
		Tree:              st.tree,
	}
	var client *relayer.Client
	if req.RelayerURL != "" {
		client = k.relayer(req.RelayerURL)
		if err := k.quote(ctx, client, p, &params); err != nil {
			return nil, err
		}
	}

	res, err := k.controller.Withdraw(ctx, params)
	if err != nil {
		k.metrics.RecordError("withdraw")
		return nil, err
	}
	call, err := contracts.PackWithdraw(p.PoolAddress, res.Method, res.Proofs.Bytes(), res.Args)
	if err != nil {
		return nil, err
	}
	out := &Result{
		Method:  res.Method,
		Call:    call,
		Proofs:  res.Proofs.Hex(),
		Fee:     params.Fee,
		Account: res.Account,
	}
	if client == nil {
		return k.dispatch(ctx, out)
	}
	k.metrics.RecordOperation(res.Method)
	endpoint := relayer.EndpointWithdraw
	if res.Method == contracts.MethodMint {
		endpoint = relayer.EndpointMint
	}
	k.relay(ctx, client, endpoint, relayer.SubmitRequest{
		Contract: p.PoolAddress,
		Proof:    out.Proofs,
		Args:     res.Args,
	}, out)
	return out, nil
}

// quote fills in the relayer address and fee. The fee comes out of whichever of amount and
// debt is moved and must not exceed it.
func (k *Kit) quote(ctx context.Context, client *relayer.Client, p registry.PoolMatch, params *controller.WithdrawParams) error {
	var basis *big.Int
	switch {
	case params.Amount.Sign() > 0 && params.Debt.Sign() > 0:
		return ErrAmbiguousFeeBasis
	case params.Amount.Sign() > 0:
		basis = params.Amount
	default:
		basis = params.Debt
	}
	status, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("relayer status: %w", err)
	}
	price, err := status.Price(p.Symbol)
	if err != nil {
		return err
	}
	serviceFee, err := status.ServiceFee()
	if err != nil {
		return fmt.Errorf("relayer service fee: %w", err)
	}
	gasPrice, err := k.chain.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}
	f, err := fee.Calculate(fee.Params{
		Amount:            basis,
		CurrencyPrice:     price,
		ServiceFeePercent: serviceFee,
		GasPrice:          gasPrice,
		GasLimit:          k.gasLimit,
		UnitPerUnderlying: params.UnitPerUnderlying,
	})
	if err != nil {
		return err
	}
	f = fee.WithBuffer(f)
	if err := fee.CheckCeiling(f, basis); err != nil {
		return err
	}
	params.Fee = f
	params.Relayer = status.RewardAccount
	k.log.Info().Str("fee", f.String()).Str("relayer", status.RewardAccount.Hex()).Msg("relayer fee quoted")
	return nil
}

// relay submits the job and waits for its transaction. Failures are recorded on out, not returned.
func (k *Kit) relay(ctx context.Context, client *relayer.Client, endpoint relayer.Endpoint, req relayer.SubmitRequest, out *Result) {
	id, err := client.Submit(ctx, endpoint, req)
	if err != nil {
		k.relayFailed(out, err)
		return
	}
	out.JobID = id
	hash, found, err := client.WaitForTx(ctx, id)
	switch {
	case err != nil:
		k.metrics.RecordPoll("error")
		k.relayFailed(out, err)
	case !found:
		k.metrics.RecordPoll("exhausted")
		k.log.Warn().Str("job", id).Msg("relayer job still pending, stopped polling")
	default:
		k.metrics.RecordPoll("found")
		out.TxHash = hash
		k.log.Info().Str("job", id).Str("tx", hash).Msg("relayer submitted transaction")
	}
}

func (k *Kit) relayFailed(out *Result, err error) {
	k.metrics.RecordError("relayer")
	out.RelayerError = err
	ev := k.log.Error().Err(err)
	var apiErr *relayer.APIError
	if errors.As(err, &apiErr) {
		ev = ev.Int("status", apiErr.StatusCode).Str("message", apiErr.Message)
	}
	ev.Msg("relayer request failed")
}

func (k *Kit) prepare(ctx context.Context, currency, privateKey string) (registry.PoolMatch, *big.Int, string, error) {
	p, err := k.PoolMatch(ctx, currency)
	if err != nil {
		return p, nil, "", err
	}
	pub, err := message.EncryptionPublicKey(privateKey)
	if err != nil {
		return p, nil, "", err
	}
	unit, err := contracts.UnitPerUnderlying(ctx, k.chain, p.PoolAddress)
	if err != nil {
		return p, nil, "", err
	}
	return p, unit, pub, nil
}

func isZero(v *big.Int) bool { return v == nil || v.Sign() == 0 }
