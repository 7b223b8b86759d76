package relayer

import (
	"context"
	"time"
)

// Policy bounds job polling.
type Policy struct {
	Attempts int
	Interval time.Duration
	// Backoff multiplies the interval after each attempt; values <= 1 keep it constant.
	Backoff float64
}

// DefaultPolicy polls 20 times, one second apart.
func DefaultPolicy() Policy {
	return Policy{Attempts: 20, Interval: time.Second, Backoff: 1}
}

// PollState is the phase of a Poll.
type PollState int

const (
	Polling PollState = iota
	Found
	Exhausted
)

func (s PollState) String() string {
	switch s {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	}
	return "polling"
}

// Poll tracks the search for a job's transaction hash.
type Poll struct {
	State        PollState
	AttemptsLeft int
	TxHash       string
}

// NewPoll starts polling with the given attempt budget.
func NewPoll(attempts int) Poll {
	if attempts <= 0 {
		return Poll{State: Exhausted}
	}
	return Poll{State: Polling, AttemptsLeft: attempts}
}

// Observe consumes one attempt. A job carrying a transaction hash ends the poll.
func (p Poll) Observe(j *Job) Poll {
	if p.State != Polling {
		return p
	}
	if j != nil && j.TxHash != "" {
		return Poll{State: Found, TxHash: j.TxHash, AttemptsLeft: p.AttemptsLeft - 1}
	}
	p.AttemptsLeft--
	if p.AttemptsLeft <= 0 {
		p.State = Exhausted
	}
	return p
}

// WaitForTx polls the job until it reports a transaction hash or the attempts run out.
// found is false when the budget was exhausted; err is set only for transport or context failures.
func (c *Client) WaitForTx(ctx context.Context, id string) (txHash string, found bool, err error) {
	p := NewPoll(c.Policy.Attempts)
	interval := c.Policy.Interval
	for p.State == Polling {
		job, err := c.Job(ctx, id)
		if err != nil {
			return "", false, err
		}
		p = p.Observe(job)
		c.log.Debug().Str("job", id).Str("state", p.State.String()).Int("attempts_left", p.AttemptsLeft).Str("status", job.Status).Msg("polled relayer job")
		if p.State != Polling {
			break
		}
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-time.After(interval):
		}
		if c.Policy.Backoff > 1 {
			interval = time.Duration(float64(interval) * c.Policy.Backoff)
		}
	}
	return p.TxHash, p.State == Found, nil
}
