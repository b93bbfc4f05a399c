// Package provider talks to the custodial wallet provider: its hosted login
// page (Authenticator) and its wallet API (Client).
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Status is the provider's own session vocabulary.
type Status string

const (
	StatusLoggedOut  Status = "logged-out"
	StatusInProgress Status = "in-progress"
	StatusLoggedIn   Status = "logged-in"
)

var (
	ErrNotSignedIn      = errors.New("provider: not signed in")
	ErrMalformedPayload = errors.New("provider: malformed response")
)

// APIError is a non-2xx answer from the wallet API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: %d: %s", e.StatusCode, e.Message)
}

// TokenSource yields the current session token, "" when signed out.
type TokenSource interface {
	Token() string
}

// TransferResult is the provider's verdict on a transfer or funding request.
type TransferResult struct {
	ID            string
	Succeeded     bool
	FailureReason string
}

// Client calls the wallet API on behalf of the signed-in user.
type Client struct {
	baseURL string
	apiKey  string
	chainID string
	tokens  TokenSource
	http    *http.Client
}

// NewClient returns a wallet API client. tokens may be nil for calls that need
// only the API key.
func NewClient(baseURL, apiKey, chainID string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		chainID: chainID,
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Balances returns the wallet's balance per asset symbol (lower case).
func (c *Client) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	q := url.Values{"chain": {c.chainID}}
	body, err := c.do(ctx, http.MethodGet, "/api/v1/wallets/me/balances?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	list := gjson.GetBytes(body, "balances")
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: balances is not a list", ErrMalformedPayload)
	}
	out := make(map[string]decimal.Decimal)
	for _, item := range list.Array() {
		token := strings.ToLower(item.Get("token").String())
		amount, err := decimal.NewFromString(item.Get("amount").String())
		if token == "" || err != nil {
			return nil, fmt.Errorf("%w: balance entry %s", ErrMalformedPayload, item.Raw)
		}
		out[token] = amount
	}
	return out, nil
}

// Balance returns the available balance of one asset; a missing asset is zero.
func (c *Client) Balance(ctx context.Context, asset string) (decimal.Decimal, error) {
	all, err := c.Balances(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return all[strings.ToLower(asset)], nil
}

// DepositAddress returns the address funds can be sent to.
func (c *Client) DepositAddress(ctx context.Context) (string, error) {
	q := url.Values{"chain": {c.chainID}}
	body, err := c.do(ctx, http.MethodGet, "/api/v1/wallets/me?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	addr := gjson.GetBytes(body, "address").String()
	if addr == "" {
		return "", fmt.Errorf("%w: missing address", ErrMalformedPayload)
	}
	return addr, nil
}

// SubmitTransfer asks the provider to send amount of asset to target.
func (c *Client) SubmitTransfer(ctx context.Context, target string, amount decimal.Decimal, asset string) (TransferResult, error) {
	return c.transfer(ctx, "/api/v1/wallets/me/transfers", map[string]string{
		"to":     target,
		"amount": amount.String(),
		"token":  strings.ToLower(asset),
		"chain":  c.chainID,
	})
}

// FundWallet credits the wallet with amount of asset through the provider's
// funding route (staging faucet or on-ramp).
func (c *Client) FundWallet(ctx context.Context, amount decimal.Decimal, asset string) (TransferResult, error) {
	return c.transfer(ctx, "/api/v1/wallets/me/fund", map[string]string{
		"amount": amount.String(),
		"token":  strings.ToLower(asset),
		"chain":  c.chainID,
	})
}

// RevokeSession invalidates the current session token on the provider side.
func (c *Client) RevokeSession(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/sessions/current", nil)
	return err
}

func (c *Client) transfer(ctx context.Context, path string, payload map[string]string) (TransferResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return TransferResult{}, err
	}
	body, err := c.do(ctx, http.MethodPost, path, raw)
	if err != nil {
		return TransferResult{}, err
	}
	res := gjson.ParseBytes(body)
	out := TransferResult{ID: res.Get("id").String()}
	switch strings.ToLower(res.Get("status").String()) {
	case "succeeded", "success", "confirmed":
		out.Succeeded = true
	case "failed", "rejected":
		out.FailureReason = errorMessage(res)
		if out.FailureReason == "" {
			out.FailureReason = "rejected by provider"
		}
	default:
		return TransferResult{}, fmt.Errorf("%w: unexpected status %q", ErrMalformedPayload, res.Get("status").String())
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token == "" {
		return nil, ErrNotSignedIn
	}
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		res := gjson.ParseBytes(body)
		msg := errorMessage(res)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Code: res.Get("error.code").String(), Message: msg}
	}
	return body, nil
}

func errorMessage(res gjson.Result) string {
	for _, path := range []string{"error.message", "message", "error"} {
		if v := res.Get(path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}
