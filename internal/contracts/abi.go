package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const accountTuple = `{"name":"account","type":"tuple","components":[
	{"name":"inputRoot","type":"bytes32"},
	{"name":"inputNullifierHash","type":"bytes32"},
	{"name":"outputRoot","type":"bytes32"},
	{"name":"outputPathIndices","type":"uint256"},
	{"name":"outputCommitment","type":"bytes32"}]}`

const depositArgs = `{"name":"_args","type":"tuple","components":[
	{"name":"amount","type":"uint256"},
	{"name":"debt","type":"uint256"},
	{"name":"unitPerUnderlying","type":"uint256"},
	{"name":"extDataHash","type":"bytes32"},
	{"name":"extData","type":"tuple","components":[{"name":"encryptedAccount","type":"bytes"}]},
	` + accountTuple + `]}`

const withdrawArgs = `{"name":"_args","type":"tuple","components":[
	{"name":"amount","type":"uint256"},
	{"name":"debt","type":"uint256"},
	{"name":"unitPerUnderlying","type":"uint256"},
	{"name":"extDataHash","type":"bytes32"},
	{"name":"extData","type":"tuple","components":[
		{"name":"fee","type":"uint256"},
		{"name":"recipient","type":"address"},
		{"name":"relayer","type":"address"},
		{"name":"encryptedAccount","type":"bytes"}]},
	` + accountTuple + `]}`

const proofsInput = `{"name":"_proofs","type":"bytes[]"}`

// PoolABI is the subset of the pool contract used by the engine.
const PoolABI = `[
{"type":"function","name":"unitPerUnderlying","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"token","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"debtToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"deposit","stateMutability":"payable","inputs":[` + proofsInput + `,` + depositArgs + `],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[` + proofsInput + `,` + depositArgs + `],"outputs":[]},
{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[` + proofsInput + `,` + withdrawArgs + `],"outputs":[]},
{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[` + proofsInput + `,` + withdrawArgs + `],"outputs":[]},
{"type":"event","name":"NewAccount","anonymous":false,"inputs":[
	{"name":"commitment","type":"bytes32","indexed":false},
	{"name":"nullifier","type":"bytes32","indexed":false},
	{"name":"encryptedAccount","type":"bytes","indexed":false},
	{"name":"index","type":"uint256","indexed":false}]}
]`

// ERC20ABI covers the token calls the engine makes.
const ERC20ABI = `[
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	poolABI  = mustParse(PoolABI)
	erc20ABI = mustParse(ERC20ABI)
)

// Pool returns the parsed pool ABI.
func Pool() abi.ABI { return poolABI }

// ERC20 returns the parsed token ABI.
func ERC20() abi.ABI { return erc20ABI }

func mustParse(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}
