package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"poofkit/internal/account"
	"poofkit/internal/contracts"
	"poofkit/internal/message"
)

type recordingFilterer struct {
	queries []Range
	fail    bool
}

func (f *recordingFilterer) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if f.fail {
		return nil, errors.New("rpc down")
	}
	r := Range{From: q.FromBlock.Uint64(), To: q.ToBlock.Uint64()}
	f.queries = append(f.queries, r)
	return []types.Log{{BlockNumber: r.From}}, nil
}

func TestBuckets(t *testing.T) {
	assert.Equal(t, []Range{{0, 9999}, {10000, 19999}, {20000, 24999}}, Buckets(0, 25_000, DefaultBucketSize))
	assert.Equal(t, []Range{{5000, 9999}, {10000, 10004}}, Buckets(5000, 10_005, DefaultBucketSize))
	assert.Nil(t, Buckets(10, 10, DefaultBucketSize))
}

func TestPastEventsWalksAscending(t *testing.T) {
	f := &recordingFilterer{}
	s := NewScanner(rate.NewLimiter(rate.Inf, 1), zerolog.Nop())
	logs, err := s.PastEvents(context.Background(), f, Query{Address: common.HexToAddress("0x01")}, 0, 25_000)
	require.NoError(t, err)
	assert.Equal(t, []Range{{0, 9999}, {10000, 19999}, {20000, 24999}}, f.queries)
	require.Len(t, logs, 3)
	assert.Equal(t, uint64(20000), logs[2].BlockNumber)

	f.fail = true
	_, err = s.PastEvents(context.Background(), f, Query{}, 0, 10)
	require.Error(t, err)
}

func keyPair(t *testing.T) (string, string) {
	t.Helper()
	b := make([]byte, 32)
	_, err := rand.Read(b)
	require.NoError(t, err)
	priv := hex.EncodeToString(b)
	pub, err := message.EncryptionPublicKey(priv)
	require.NoError(t, err)
	return priv, pub
}

func accountEvent(t *testing.T, pub string, amount int64, block uint64, index uint64) (AccountEvent, *account.Account) {
	t.Helper()
	acc, err := account.NewWithBalance(big.NewInt(amount), big.NewInt(0))
	require.NoError(t, err)
	m, err := acc.Encrypt(pub)
	require.NoError(t, err)
	packed, err := message.Pack(m)
	require.NoError(t, err)
	return AccountEvent{
		BlockNumber:      block,
		Index:            index,
		Commitment:       acc.Commitment(),
		EncryptedAccount: hexutil.MustDecode(packed),
	}, acc
}

func TestLatestAccount(t *testing.T) {
	priv, pub := keyPair(t)
	_, otherPub := keyPair(t)

	old, _ := accountEvent(t, pub, 1, 10, 0)
	mine, want := accountEvent(t, pub, 2, 20, 1)
	foreign, _ := accountEvent(t, otherPub, 3, 30, 2)
	garbage := AccountEvent{BlockNumber: 40, Index: 3, EncryptedAccount: []byte{1, 2, 3}}

	got, ev, ok := LatestAccount(priv, []AccountEvent{old, foreign, garbage, mine})
	require.True(t, ok)
	assert.Equal(t, want.Commitment(), got.Commitment())
	assert.Equal(t, uint64(20), ev.BlockNumber)

	_, _, ok = LatestAccount(priv, []AccountEvent{foreign, garbage})
	assert.False(t, ok)
}

func TestLatestAccountSkipsMismatchedCommitment(t *testing.T) {
	priv, pub := keyPair(t)
	good, want := accountEvent(t, pub, 5, 1, 0)
	forged, _ := accountEvent(t, pub, 500, 2, 1)
	forged.Commitment = big.NewInt(1)

	got, _, ok := LatestAccount(priv, []AccountEvent{good, forged})
	require.True(t, ok)
	assert.Equal(t, want.Commitment(), got.Commitment())
}

func TestCandidatesStopEarly(t *testing.T) {
	events := []AccountEvent{{BlockNumber: 1}, {BlockNumber: 3}, {BlockNumber: 2}}
	var seen []uint64
	for ev := range Candidates(events) {
		seen = append(seen, ev.BlockNumber)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []uint64{3, 2}, seen)
}

func TestDecodeAccountEventsAndCommitments(t *testing.T) {
	pool := common.HexToAddress("0x01")
	var logs []types.Log
	for i, idx := range []int64{1, 0} {
		l, err := contracts.EncodeNewAccount(pool, uint64(10+i), contracts.NewAccountEvent{
			Commitment:       [32]byte{31: byte(100 + idx)},
			EncryptedAccount: []byte{1},
			Index:            big.NewInt(idx),
		})
		require.NoError(t, err)
		logs = append(logs, l)
	}
	evs := DecodeAccountEvents(logs, zerolog.Nop())
	require.Len(t, evs, 2)
	assert.Equal(t, uint64(1), evs[0].Index)

	cms := Commitments(evs)
	assert.Equal(t, int64(100), cms[0].Int64())
	assert.Equal(t, int64(101), cms[1].Int64())
}

func TestDecodeAccountEventsSkipsMalformed(t *testing.T) {
	pool := common.HexToAddress("0x01")
	good, err := contracts.EncodeNewAccount(pool, 10, contracts.NewAccountEvent{
		Commitment:       [32]byte{31: 7},
		EncryptedAccount: []byte{1},
		Index:            big.NewInt(0),
	})
	require.NoError(t, err)
	truncated := good
	truncated.Data = good.Data[:len(good.Data)/2]
	truncated.BlockNumber = 11

	evs := DecodeAccountEvents([]types.Log{truncated, good, {Address: pool, BlockNumber: 12}}, zerolog.Nop())
	require.Len(t, evs, 1)
	assert.Equal(t, uint64(10), evs[0].BlockNumber)
	assert.Equal(t, int64(7), evs[0].Commitment.Int64())
}
