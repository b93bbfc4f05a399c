package demo

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWalletTransfers(t *testing.T) {
	ctx := context.Background()
	w := NewWallet(map[string]decimal.Decimal{"USDC": decimal.NewFromInt(5)})

	res, err := w.SubmitTransfer(ctx, "0xabc", decimal.NewFromInt(10), "usdc")
	require.NoError(t, err)
	require.False(t, res.Succeeded)
	require.Equal(t, "insufficient funds", res.FailureReason)

	res, err = w.SubmitTransfer(ctx, "0xabc", decimal.RequireFromString("1.5"), "USDC")
	require.NoError(t, err)
	require.True(t, res.Succeeded)
	require.Equal(t, "demo_tx_2", res.ID)

	bal, err := w.Balance(ctx, "usdc")
	require.NoError(t, err)
	require.Equal(t, "3.5", bal.String())

	_, err = w.FundWallet(ctx, decimal.NewFromInt(2), "eth")
	require.NoError(t, err)
	all, err := w.Balances(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "2", all["eth"].String())

	addr, err := w.DepositAddress(ctx)
	require.NoError(t, err)
	require.Equal(t, PlaceholderAddress, addr)
}

func TestBalancesIsACopy(t *testing.T) {
	w := NewWallet(DefaultBalances())
	all, err := w.Balances(context.Background())
	require.NoError(t, err)
	all["usdc"] = decimal.Zero

	bal, err := w.Balance(context.Background(), "usdc")
	require.NoError(t, err)
	require.Equal(t, "125.5", bal.String())
}
