package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call is an unsigned contract call ready to be signed and sent.
type Call struct {
	To     common.Address `json:"to"`
	Method string         `json:"method"`
	Data   []byte         `json:"data"`
	Value  *big.Int       `json:"value,omitempty"`
}

// Msg converts the call into an ethereum.CallMsg from sender.
func (c *Call) Msg(from common.Address) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: &c.To, Data: c.Data, Value: c.Value}
}

// Method names of the pool's state-changing entry points.
const (
	MethodDeposit  = "deposit"
	MethodBurn     = "burn"
	MethodWithdraw = "withdraw"
	MethodMint     = "mint"
)

// PackDeposit builds a deposit or burn call.
func PackDeposit(pool common.Address, method string, proofs [][]byte, args DepositArgs) (*Call, error) {
	if method != MethodDeposit && method != MethodBurn {
		return nil, fmt.Errorf("pool: %q is not a deposit entry point", method)
	}
	return pack(poolABI, pool, method, proofs, args)
}

// PackWithdraw builds a withdraw or mint call.
func PackWithdraw(pool common.Address, method string, proofs [][]byte, args WithdrawArgs) (*Call, error) {
	if method != MethodWithdraw && method != MethodMint {
		return nil, fmt.Errorf("pool: %q is not a withdraw entry point", method)
	}
	return pack(poolABI, pool, method, proofs, args)
}

// PackApprove builds an ERC20 approve call.
func PackApprove(token, spender common.Address, amount *big.Int) (*Call, error) {
	return pack(erc20ABI, token, "approve", spender, amount)
}

func pack(a abi.ABI, to common.Address, method string, args ...any) (*Call, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return &Call{To: to, Method: method, Data: data}, nil
}

// Caller executes read-only calls.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

func view(ctx context.Context, c Caller, a abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	res, err := a.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return res, nil
}

func viewBig(ctx context.Context, c Caller, a abi.ABI, to common.Address, method string, args ...any) (*big.Int, error) {
	res, err := view(ctx, c, a, to, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := res[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("call %s: unexpected result %T", method, res[0])
	}
	return v, nil
}

func viewAddress(ctx context.Context, c Caller, a abi.ABI, to common.Address, method string) (common.Address, error) {
	res, err := view(ctx, c, a, to, method)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := res[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("call %s: unexpected result %T", method, res[0])
	}
	return v, nil
}

// UnitPerUnderlying reads the pool's internal-unit multiplier.
func UnitPerUnderlying(ctx context.Context, c Caller, pool common.Address) (*big.Int, error) {
	return viewBig(ctx, c, poolABI, pool, "unitPerUnderlying")
}

// PoolToken reads the pool's underlying token.
func PoolToken(ctx context.Context, c Caller, pool common.Address) (common.Address, error) {
	return viewAddress(ctx, c, poolABI, pool, "token")
}

// PoolDebtToken reads the pool's debt token.
func PoolDebtToken(ctx context.Context, c Caller, pool common.Address) (common.Address, error) {
	return viewAddress(ctx, c, poolABI, pool, "debtToken")
}

// PoolBalanceOf reads owner's balance of pool tokens.
func PoolBalanceOf(ctx context.Context, c Caller, pool, owner common.Address) (*big.Int, error) {
	return viewBig(ctx, c, poolABI, pool, "balanceOf", owner)
}

// Allowance reads token.allowance(owner, spender).
func Allowance(ctx context.Context, c Caller, token, owner, spender common.Address) (*big.Int, error) {
	return viewBig(ctx, c, erc20ABI, token, "allowance", owner, spender)
}

// BalanceOf reads token.balanceOf(owner).
func BalanceOf(ctx context.Context, c Caller, token, owner common.Address) (*big.Int, error) {
	return viewBig(ctx, c, erc20ABI, token, "balanceOf", owner)
}

// NewAccountEvent is a decoded NewAccount log.
type NewAccountEvent struct {
	Commitment       [32]byte
	Nullifier        [32]byte
	EncryptedAccount []byte
	Index            *big.Int
}

// NewAccountTopic is the topic of NewAccount logs.
func NewAccountTopic() common.Hash { return poolABI.Events["NewAccount"].ID }

// DecodeNewAccount decodes a NewAccount log.
func DecodeNewAccount(l types.Log) (*NewAccountEvent, error) {
	if len(l.Topics) == 0 || l.Topics[0] != NewAccountTopic() {
		return nil, fmt.Errorf("log %s/%d is not a NewAccount event", l.TxHash, l.Index)
	}
	var ev NewAccountEvent
	if err := poolABI.UnpackIntoInterface(&ev, "NewAccount", l.Data); err != nil {
		return nil, fmt.Errorf("decode NewAccount: %w", err)
	}
	return &ev, nil
}

// EncodeNewAccount builds the log a pool emits for ev; used by simulated backends.
func EncodeNewAccount(pool common.Address, block uint64, ev NewAccountEvent) (types.Log, error) {
	data, err := poolABI.Events["NewAccount"].Inputs.Pack(ev.Commitment, ev.Nullifier, ev.EncryptedAccount, ev.Index)
	if err != nil {
		return types.Log{}, err
	}
	return types.Log{Address: pool, Topics: []common.Hash{NewAccountTopic()}, Data: data, BlockNumber: block}, nil
}

// DecodeDepositCall recovers the proofs and arguments of a packed deposit or burn call.
func DecodeDepositCall(data []byte) (string, [][]byte, *DepositArgs, error) {
	return decodeCall[DepositArgs](data)
}

// DecodeWithdrawCall recovers the proofs and arguments of a packed withdraw or mint call.
func DecodeWithdrawCall(data []byte) (string, [][]byte, *WithdrawArgs, error) {
	return decodeCall[WithdrawArgs](data)
}

func decodeCall[T any](data []byte) (method string, proofs [][]byte, args *T, err error) {
	if len(data) < 4 {
		return "", nil, nil, fmt.Errorf("call data too short")
	}
	m, err := poolABI.MethodById(data[:4])
	if err != nil {
		return "", nil, nil, err
	}
	values, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return "", nil, nil, err
	}
	proofs, ok := values[0].([][]byte)
	if !ok {
		return "", nil, nil, fmt.Errorf("unexpected proofs type %T", values[0])
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode %s args: %v", m.Name, r)
		}
	}()
	args = abi.ConvertType(values[1], new(T)).(*T)
	return m.Name, proofs, args, nil
}
