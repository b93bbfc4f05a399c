package flow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jask/credawallet/internal/provider"
)

// Transferer sends funds out of the wallet.
type Transferer interface {
	SubmitTransfer(ctx context.Context, target string, amount decimal.Decimal, asset string) (provider.TransferResult, error)
}

// Funder credits the wallet.
type Funder interface {
	FundWallet(ctx context.Context, amount decimal.Decimal, asset string) (provider.TransferResult, error)
}

// SendExecutor executes send intents.
type SendExecutor struct {
	Wallet Transferer
}

func (e SendExecutor) Execute(ctx context.Context, in Intent) (Receipt, error) {
	res, err := e.Wallet.SubmitTransfer(ctx, in.TargetAddress, in.Amount, in.Asset)
	return receiptOf(res, err)
}

// DepositExecutor executes deposit intents.
type DepositExecutor struct {
	Wallet Funder
}

func (e DepositExecutor) Execute(ctx context.Context, in Intent) (Receipt, error) {
	res, err := e.Wallet.FundWallet(ctx, in.Amount, in.Asset)
	return receiptOf(res, err)
}

func receiptOf(res provider.TransferResult, err error) (Receipt, error) {
	if err != nil {
		return Receipt{}, err
	}
	if !res.Succeeded {
		return Receipt{}, &Rejection{Reason: res.FailureReason}
	}
	return Receipt{TxID: res.ID}, nil
}
