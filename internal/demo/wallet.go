// Package demo is an in-memory wallet for exploring the dashboard without
// provider credentials.
package demo

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jask/credawallet/internal/provider"
)

// PlaceholderAddress is shown as the demo wallet's deposit address.
const PlaceholderAddress = "0x1234...5678"

// DefaultBalances seeds a demo wallet.
func DefaultBalances() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"usdc": decimal.RequireFromString("125.50"),
		"eth":  decimal.RequireFromString("0.042"),
	}
}

// Wallet keeps balances in memory and settles every request immediately.
type Wallet struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	seq      int
}

// NewWallet returns a wallet holding a copy of balances.
func NewWallet(balances map[string]decimal.Decimal) *Wallet {
	w := &Wallet{balances: make(map[string]decimal.Decimal, len(balances))}
	for k, v := range balances {
		w.balances[strings.ToLower(k)] = v
	}
	return w
}

func (w *Wallet) Balances(context.Context) (map[string]decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(w.balances))
	for k, v := range w.balances {
		out[k] = v
	}
	return out, nil
}

func (w *Wallet) Balance(_ context.Context, asset string) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[strings.ToLower(asset)], nil
}

func (w *Wallet) DepositAddress(context.Context) (string, error) {
	return PlaceholderAddress, nil
}

// SubmitTransfer debits the wallet. Overdrafts are rejected the way the
// provider rejects them.
func (w *Wallet) SubmitTransfer(_ context.Context, target string, amount decimal.Decimal, asset string) (provider.TransferResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	asset = strings.ToLower(asset)
	id := w.nextIDLocked()
	if amount.GreaterThan(w.balances[asset]) {
		return provider.TransferResult{ID: id, FailureReason: "insufficient funds"}, nil
	}
	w.balances[asset] = w.balances[asset].Sub(amount)
	return provider.TransferResult{ID: id, Succeeded: true}, nil
}

// FundWallet credits the wallet.
func (w *Wallet) FundWallet(_ context.Context, amount decimal.Decimal, asset string) (provider.TransferResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	asset = strings.ToLower(asset)
	w.balances[asset] = w.balances[asset].Add(amount)
	return provider.TransferResult{ID: w.nextIDLocked(), Succeeded: true}, nil
}

func (w *Wallet) nextIDLocked() string {
	w.seq++
	return fmt.Sprintf("demo_tx_%d", w.seq)
}
