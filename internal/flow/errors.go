package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validated fields.
const (
	FieldTarget = "targetAddress"
	FieldAmount = "amount"
)

// Validation reasons.
const (
	ReasonRequired          = "required"
	ReasonInvalidAddress    = "invalid address"
	ReasonInvalidAmount     = "not a number"
	ReasonNotPositive       = "must be greater than zero"
	ReasonTooPrecise        = "too many decimal places"
	ReasonInsufficientFunds = "insufficient funds"
)

const genericFailure = "the transaction could not be completed, try again"

// ValidationError is a local, field-scoped failure found before submitting.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Rejection is a definitive "no" from the provider, with a reason safe to show.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return "rejected: " + r.Reason }

// TransferError is a failure after submitting. Reason is shown to the user;
// Err keeps the detail for the log.
type TransferError struct {
	Reason string
	Err    error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer failed: %s: %v", e.Reason, e.Err)
	}
	return "transfer failed: " + e.Reason
}

func (e *TransferError) Unwrap() error { return e.Err }

func toTransferError(err error) *TransferError {
	var terr *TransferError
	if errors.As(err, &terr) {
		return terr
	}
	var rej *Rejection
	if errors.As(err, &rej) && rej.Reason != "" {
		return &TransferError{Reason: rej.Reason, Err: err}
	}
	return &TransferError{Reason: genericFailure, Err: err}
}

// ParseAmount parses a positive, finite decimal with at most decimals places.
func ParseAmount(text string, decimals int32) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, &ValidationError{Field: FieldAmount, Reason: ReasonRequired}
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: FieldAmount, Reason: ReasonInvalidAmount, Err: err}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: FieldAmount, Reason: ReasonNotPositive}
	}
	if !amount.Equal(amount.Truncate(decimals)) {
		return decimal.Zero, &ValidationError{Field: FieldAmount, Reason: ReasonTooPrecise}
	}
	return amount, nil
}

// DecimalsFor returns the on-chain precision of a known asset, 18 otherwise.
func DecimalsFor(asset string) int32 {
	switch strings.ToLower(asset) {
	case "usdc", "usdt", "usdxm", "eurc":
		return 6
	case "gas":
		return 8
	case "neo":
		return 0
	default:
		return 18
	}
}
