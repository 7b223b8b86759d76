package events

import (
	"iter"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"poofkit/internal/account"
	"poofkit/internal/contracts"
	"poofkit/internal/message"
)

// AccountEvent is a decoded NewAccount log.
type AccountEvent struct {
	BlockNumber      uint64
	LogIndex         uint
	Index            uint64
	Commitment       *big.Int
	Nullifier        *big.Int
	EncryptedAccount []byte
}

// DecodeAccountEvents decodes NewAccount logs, preserving their order.
// Logs that do not decode are skipped.
func DecodeAccountEvents(logs []types.Log, log zerolog.Logger) []AccountEvent {
	out := make([]AccountEvent, 0, len(logs))
	for _, l := range logs {
		ev, err := contracts.DecodeNewAccount(l)
		if err != nil {
			log.Debug().Err(err).Uint64("block", l.BlockNumber).Uint("log_index", l.Index).Msg("skipping undecodable account event")
			continue
		}
		out = append(out, AccountEvent{
			BlockNumber:      l.BlockNumber,
			LogIndex:         l.Index,
			Index:            ev.Index.Uint64(),
			Commitment:       new(big.Int).SetBytes(ev.Commitment[:]),
			Nullifier:        new(big.Int).SetBytes(ev.Nullifier[:]),
			EncryptedAccount: ev.EncryptedAccount,
		})
	}
	return out
}

// Commitments returns the commitments ordered by their tree index.
func Commitments(events []AccountEvent) []*big.Int {
	sorted := slices.Clone(events)
	slices.SortFunc(sorted, func(a, b AccountEvent) int {
		switch {
		case a.Index < b.Index:
			return -1
		case a.Index > b.Index:
			return 1
		}
		return 0
	})
	out := make([]*big.Int, len(sorted))
	for i, ev := range sorted {
		out[i] = ev.Commitment
	}
	return out
}

// Candidates yields events newest first: descending block, then descending log index.
func Candidates(events []AccountEvent) iter.Seq[AccountEvent] {
	return func(yield func(AccountEvent) bool) {
		sorted := slices.Clone(events)
		slices.SortStableFunc(sorted, func(a, b AccountEvent) int {
			switch {
			case a.BlockNumber != b.BlockNumber:
				if a.BlockNumber > b.BlockNumber {
					return -1
				}
				return 1
			case a.LogIndex > b.LogIndex:
				return -1
			case a.LogIndex < b.LogIndex:
				return 1
			}
			return 0
		})
		for _, ev := range sorted {
			if !yield(ev) {
				return
			}
		}
	}
}

// LatestAccount returns the newest account that decrypts under privateKey.
// Events that do not decrypt belong to other users and are skipped.
func LatestAccount(privateKey string, events []AccountEvent) (*account.Account, AccountEvent, bool) {
	for ev := range Candidates(events) {
		m, err := message.UnpackBytes(ev.EncryptedAccount)
		if err != nil {
			continue
		}
		acc, err := account.Decrypt(privateKey, m)
		if err != nil {
			continue
		}
		// an account that does not open the emitted commitment cannot be spent
		if ev.Commitment != nil && acc.Commitment().Cmp(ev.Commitment) != 0 {
			continue
		}
		return acc, ev, true
	}
	return nil, AccountEvent{}, false
}
