// client.go - HTTP client for a Poof relayer.
//
// The relayer quotes prices and its fee on /status, accepts withdraw and mint jobs on the
// v2 endpoints and reports job progress on /v1/jobs/{id}.

package relayer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Endpoint is a job submission path.
type Endpoint string

const (
	EndpointWithdraw Endpoint = "/v2/withdraw"
	EndpointMint     Endpoint = "/v2/mint"
)

// APIError is a non-2xx relayer response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relayer: %d: %s", e.StatusCode, e.Message)
}

// Status is the relayer's /status payload.
type Status struct {
	Prices         map[string]json.Number `json:"celoPrices"`
	RewardAccount  common.Address         `json:"rewardAccount"`
	PoofServiceFee json.Number            `json:"poofServiceFee"`
}

// Price returns the native-currency price of symbol.
func (s *Status) Price(symbol string) (float64, error) {
	for k, v := range s.Prices {
		if strings.EqualFold(k, symbol) {
			return v.Float64()
		}
	}
	return 0, fmt.Errorf("relayer: no price for %s", symbol)
}

// ServiceFee returns the service fee percentage.
func (s *Status) ServiceFee() (float64, error) {
	if s.PoofServiceFee == "" {
		return 0, nil
	}
	return strconv.ParseFloat(string(s.PoofServiceFee), 64)
}

// SubmitRequest is the body of a job submission.
type SubmitRequest struct {
	Contract common.Address `json:"contract"`
	Proof    []string       `json:"proof"`
	Args     any            `json:"args"`
}

// Job is the /v1/jobs/{id} payload.
type Job struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	TxHash        string `json:"txHash"`
	FailedReason  string `json:"failedReason"`
	Confirmations int    `json:"confirmations"`
}

// Client talks to one relayer.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Policy  Policy
	log     zerolog.Logger
}

// NewClient returns a client with the default polling policy.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Policy:  DefaultPolicy(),
		log:     log,
	}
}

// Status fetches the relayer status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var s Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Submit posts a job and returns its id.
func (c *Client) Submit(ctx context.Context, endpoint Endpoint, req SubmitRequest) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, string(endpoint), req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("relayer: submission returned no job id")
	}
	c.log.Info().Str("job", out.ID).Str("endpoint", string(endpoint)).Msg("relayer accepted job")
	return out.ID, nil
}

// Job fetches the state of a job.
func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+id, nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("relayer: encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("relayer: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("relayer: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("relayer: decode %s: %w", path, err)
	}
	return nil
}

// errorMessage prefers the payload's "error" field and falls back to the raw body, then the status text.
func errorMessage(raw []byte, status string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return status
}
