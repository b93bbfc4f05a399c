package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "ck_test_key", "base-sepolia", staticToken("session-token"))
}

func TestBalances(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/wallets/me/balances", r.URL.Path)
		require.Equal(t, "base-sepolia", r.URL.Query().Get("chain"))
		require.Equal(t, "ck_test_key", r.Header.Get("X-API-KEY"))
		require.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"balances":[{"token":"USDC","amount":"12.500000"},{"token":"eth","amount":"0.01"}]}`))
	})

	all, err := c.Balances(context.Background())
	require.NoError(t, err)
	require.True(t, all["usdc"].Equal(decimal.RequireFromString("12.5")))

	bal, err := c.Balance(context.Background(), "ETH")
	require.NoError(t, err)
	require.Equal(t, "0.01", bal.String())

	missing, err := c.Balance(context.Background(), "dai")
	require.NoError(t, err)
	require.True(t, missing.IsZero())
}

func TestBalancesMalformed(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balances":[{"token":"usdc","amount":"lots"}]}`))
	})
	_, err := c.Balances(context.Background())
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestDepositAddress(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/wallets/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"address":"0x52908400098527886e0f7030069857d2e4169ee7","type":"evm-smart-wallet"}`))
	})
	addr, err := c.DepositAddress(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", addr)
}

func TestSubmitTransferOutcomes(t *testing.T) {
	t.Parallel()

	got := make(chan map[string]string, 2)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/wallets/me/transfers", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got <- body
		if body["to"] == "0xdead" {
			_, _ = w.Write([]byte(`{"id":"tx_2","status":"failed","error":{"message":"insufficient funds"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"tx_1","status":"succeeded"}`))
	})

	res, err := c.SubmitTransfer(context.Background(), "0xabc", decimal.RequireFromString("2.5"), "USDC")
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	require.Equal(t, "tx_1", res.ID)
	require.Equal(t, map[string]string{"to": "0xabc", "amount": "2.5", "token": "usdc", "chain": "base-sepolia"}, <-got)

	res, err = c.SubmitTransfer(context.Background(), "0xdead", decimal.RequireFromString("2.5"), "usdc")
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	require.Equal(t, "insufficient funds", res.FailureReason)
}

func TestAPIErrorAndMissingToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"origin_not_allowed","message":"origin is not allow-listed"}}`))
	})
	_, err := c.FundWallet(context.Background(), decimal.NewFromInt(1), "usdc")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "origin_not_allowed", apiErr.Code)

	anon := NewClient("http://127.0.0.1:1", "k", "base", staticToken(""))
	_, err = anon.DepositAddress(context.Background())
	require.ErrorIs(t, err, ErrNotSignedIn)
}
