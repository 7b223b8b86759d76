// scanner.go - Event retrieval split into fixed-size block ranges.
//
// RPC providers cap the block span of a single log query, so a scan walks the requested
// range bucket by bucket, strictly in ascending order, optionally throttled by a limiter.

package events

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultBucketSize is the widest block range requested at once.
const DefaultBucketSize = 10_000

// Filterer is the log query capability of an RPC client.
type Filterer interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Query selects the logs of one event of one contract.
type Query struct {
	Address common.Address
	Topic   common.Hash
}

// Range is an inclusive block range.
type Range struct {
	From uint64
	To   uint64
}

// Scanner retrieves past events.
type Scanner struct {
	BucketSize uint64
	Limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewScanner returns a scanner with the default bucket size. limiter may be nil.
func NewScanner(limiter *rate.Limiter, log zerolog.Logger) *Scanner {
	return &Scanner{BucketSize: DefaultBucketSize, Limiter: limiter, log: log}
}

// Buckets splits [from, to) into bucket-aligned inclusive ranges.
func Buckets(from, to, size uint64) []Range {
	if size == 0 {
		size = DefaultBucketSize
	}
	if to <= from {
		return nil
	}
	var out []Range
	for i := from / size; i < (to+size-1)/size; i++ {
		r := Range{From: max(i*size, from), To: min((i+1)*size, to) - 1}
		out = append(out, r)
	}
	return out
}

// PastEvents returns every log matching q in blocks [from, to), in ascending block order.
func (s *Scanner) PastEvents(ctx context.Context, src Filterer, q Query, from, to uint64) ([]types.Log, error) {
	var logs []types.Log
	for _, r := range Buckets(from, to, s.BucketSize) {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		batch, err := src.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(r.From),
			ToBlock:   new(big.Int).SetUint64(r.To),
			Addresses: []common.Address{q.Address},
			Topics:    [][]common.Hash{{q.Topic}},
		})
		if err != nil {
			return nil, fmt.Errorf("filter logs %d-%d: %w", r.From, r.To, err)
		}
		s.log.Debug().Uint64("from", r.From).Uint64("to", r.To).Int("logs", len(batch)).Msg("scanned block range")
		logs = append(logs, batch...)
	}
	return logs, nil
}
