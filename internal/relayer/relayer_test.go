package relayer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(url, zerolog.Nop())
	c.Policy = Policy{Attempts: 3, Interval: time.Millisecond, Backoff: 1}
	return c
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.Write([]byte(`{"celoPrices":{"ceur":"0.95","cusd":1.2},"rewardAccount":"0x00000000000000000000000000000000000000aa","poofServiceFee":"0.1"}`))
	}))
	defer srv.Close()

	s, err := newTestClient(srv.URL).Status(context.Background())
	require.NoError(t, err)
	price, err := s.Price("cEUR")
	require.NoError(t, err)
	assert.InDelta(t, 0.95, price, 1e-9)
	price, err = s.Price("cusd")
	require.NoError(t, err)
	assert.InDelta(t, 1.2, price, 1e-9)
	_, err = s.Price("celo")
	require.Error(t, err)

	fee, err := s.ServiceFee()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, fee, 1e-9)
	assert.Equal(t, common.HexToAddress("0xaa"), s.RewardAccount)
}

func TestSubmitAndWait(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/mint":
			var req SubmitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"0x01"}, req.Proof)
			w.Write([]byte(`{"id":"job-1"}`))
		case "/v1/jobs/job-1":
			if polls.Add(1) < 2 {
				w.Write([]byte(`{"id":"job-1","status":"QUEUED"}`))
				return
			}
			w.Write([]byte(`{"id":"job-1","status":"SENT","txHash":"0xabc"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	id, err := c.Submit(context.Background(), EndpointMint, SubmitRequest{Proof: []string{"0x01"}, Args: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	hash, found, err := c.WaitForTx(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0xabc", hash)
	assert.Equal(t, int32(2), polls.Load())
}

func TestWaitExhausts(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		w.Write([]byte(`{"id":"x","status":"QUEUED"}`))
	}))
	defer srv.Close()

	hash, found, err := newTestClient(srv.URL).WaitForTx(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, hash)
	assert.Equal(t, int32(3), polls.Load())
}

func TestErrorMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/withdraw" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Fee is too low"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()
	c := newTestClient(srv.URL)

	_, err := c.Submit(context.Background(), EndpointWithdraw, SubmitRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Fee is too low", apiErr.Message)

	_, err = c.Status(context.Background())
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestPollStateMachine(t *testing.T) {
	p := NewPoll(2)
	assert.Equal(t, Polling, p.State)

	p = p.Observe(&Job{Status: "QUEUED"})
	assert.Equal(t, Polling, p.State)
	assert.Equal(t, 1, p.AttemptsLeft)

	found := p.Observe(&Job{TxHash: "0x1"})
	assert.Equal(t, Found, found.State)
	assert.Equal(t, "0x1", found.TxHash)
	assert.Equal(t, found, found.Observe(&Job{TxHash: "0x2"}))

	exhausted := p.Observe(nil)
	assert.Equal(t, Exhausted, exhausted.State)
	assert.Equal(t, Exhausted, NewPoll(0).State)
}
