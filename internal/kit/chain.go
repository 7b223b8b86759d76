package kit

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"poofkit/internal/contracts"
	"poofkit/internal/events"
)

// Chain is the read side of an RPC client; *ethclient.Client satisfies it.
type Chain interface {
	contracts.Caller
	events.Filterer
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}
