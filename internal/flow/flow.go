// Package flow runs one deposit or send interaction: it owns a transaction
// intent from draft to confirmed or failed and reports completion once.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jask/credawallet/internal/chain"
)

// Kind is the type of transaction a flow collects.
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindSend    Kind = "send"
)

// Status is the lifecycle of an intent.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Intent is the in-progress record of a deposit or send.
type Intent struct {
	ID            string
	Kind          Kind
	Asset         string
	TargetAddress string
	AmountText    string
	Amount        decimal.Decimal
	Status        Status
	// Failure is the user-facing reason of the last failed attempt.
	Failure string
	TxID    string
}

var (
	ErrAlreadySubmitted   = errors.New("transaction already submitted")
	ErrFlowClosed         = errors.New("flow is no longer active")
	ErrBalanceUnavailable = errors.New("available balance could not be loaded")
)

// BalanceSource reports the available balance of an asset.
type BalanceSource interface {
	Balance(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Receipt is what a successful execution returns.
type Receipt struct {
	TxID string
}

// Executor carries out a validated intent against the wallet provider.
type Executor interface {
	Execute(ctx context.Context, in Intent) (Receipt, error)
}

// Recorder journals intent transitions. Errors are logged, never surfaced.
type Recorder interface {
	Record(ctx context.Context, in Intent) error
}

// Config wires one flow instance.
type Config struct {
	Kind     Kind
	Asset    string
	Chain    chain.Chain
	Balances BalanceSource
	Executor Executor
	// OnComplete runs at most once, after the intent is confirmed.
	OnComplete func()
	Recorder   Recorder
	Logger     zerolog.Logger
}

// Flow owns one Intent. It is safe for use from the UI goroutine and the
// command goroutines that run Submit.
type Flow struct {
	cfg Config
	log zerolog.Logger

	mu     sync.Mutex
	intent Intent
	// validating holds edits and other submits off while Submit checks a
	// snapshot outside the lock.
	validating bool
	closed     bool
	completed  bool
}

// New starts a flow with a fresh draft intent.
func New(cfg Config) *Flow {
	id := uuid.NewString()
	return &Flow{
		cfg: cfg,
		log: cfg.Logger.With().Str("intent", id).Str("kind", string(cfg.Kind)).Logger(),
		intent: Intent{
			ID:     id,
			Kind:   cfg.Kind,
			Asset:  strings.ToLower(cfg.Asset),
			Status: StatusDraft,
		},
	}
}

func (f *Flow) ID() string { return f.intent.ID }

func (f *Flow) Kind() Kind { return f.cfg.Kind }

// Intent returns a snapshot of the intent.
func (f *Flow) Intent() Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intent
}

// Closed reports whether the flow completed or was abandoned.
func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed || f.completed
}

// SetTarget edits the destination address of a draft or failed intent.
func (f *Flow) SetTarget(addr string) error {
	return f.edit(func(in *Intent) { in.TargetAddress = strings.TrimSpace(addr) })
}

// SetAmount edits the amount text of a draft or failed intent. It is parsed on
// validation.
func (f *Flow) SetAmount(text string) error {
	return f.edit(func(in *Intent) { in.AmountText = strings.TrimSpace(text) })
}

func (f *Flow) edit(apply func(*Intent)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	apply(&f.intent)
	return nil
}

func (f *Flow) editableLocked() error {
	switch {
	case f.closed || f.intent.Status == StatusConfirmed:
		return ErrFlowClosed
	case f.intent.Status == StatusSubmitted || f.validating:
		return ErrAlreadySubmitted
	}
	return nil
}

// Submit validates the intent and, when it passes, executes it exactly once.
// Validation failures leave the status unchanged and never reach the
// executor. A failed intent can be submitted again.
func (f *Flow) Submit(ctx context.Context) (Intent, error) {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		in := f.intent
		f.mu.Unlock()
		return in, err
	}
	f.validating = true
	snapshot := f.intent
	f.mu.Unlock()

	amount, err := f.validate(ctx, snapshot)

	f.mu.Lock()
	f.validating = false
	if err != nil {
		f.mu.Unlock()
		f.log.Debug().Err(err).Msg("validation failed")
		return snapshot, err
	}
	if err := f.editableLocked(); err != nil {
		in := f.intent
		f.mu.Unlock()
		return in, err
	}
	f.intent.Amount = amount
	f.intent.Status = StatusSubmitted
	f.intent.Failure = ""
	submitted := f.intent
	f.mu.Unlock()

	f.log.Info().Str("asset", submitted.Asset).Str("amount", amount.String()).Msg("intent submitted")
	f.record(ctx, submitted)

	receipt, execErr := f.execute(ctx, submitted)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		f.log.Info().Msg("result for abandoned flow dropped")
		f.record(ctx, settled(submitted, receipt, execErr))
		return submitted, ErrFlowClosed
	}
	if execErr != nil {
		terr := toTransferError(execErr)
		f.intent.Status = StatusFailed
		f.intent.Failure = terr.Reason
		failed := f.intent
		f.mu.Unlock()

		f.log.Warn().Err(execErr).Msg("intent failed")
		f.record(ctx, failed)
		return failed, terr
	}
	f.intent.Status = StatusConfirmed
	f.intent.TxID = receipt.TxID
	confirmed := f.intent
	fire := !f.completed
	f.completed = true
	f.mu.Unlock()

	f.log.Info().Str("tx", receipt.TxID).Msg("intent confirmed")
	f.record(ctx, confirmed)
	if fire && f.cfg.OnComplete != nil {
		f.cfg.OnComplete()
	}
	return confirmed, nil
}

// Abandon closes the flow. A draft intent is discarded; an in-flight result
// that arrives later is dropped.
func (f *Flow) Abandon() Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.log.Info().Str("status", string(f.intent.Status)).Msg("flow abandoned")
	}
	return f.intent
}

// settled is the final form of in once the executor has answered. The flow's
// own intent is not touched.
func settled(in Intent, receipt Receipt, execErr error) Intent {
	if execErr != nil {
		in.Status = StatusFailed
		in.Failure = toTransferError(execErr).Reason
		return in
	}
	in.Status = StatusConfirmed
	in.TxID = receipt.TxID
	return in
}

func (f *Flow) validate(ctx context.Context, in Intent) (decimal.Decimal, error) {
	if f.cfg.Kind == KindSend {
		if in.TargetAddress == "" {
			return decimal.Zero, &ValidationError{Field: FieldTarget, Reason: ReasonRequired}
		}
		if err := f.cfg.Chain.ValidateAddress(in.TargetAddress); err != nil {
			return decimal.Zero, &ValidationError{Field: FieldTarget, Reason: ReasonInvalidAddress, Err: err}
		}
	}

	amount, err := ParseAmount(in.AmountText, DecimalsFor(in.Asset))
	if err != nil {
		return decimal.Zero, err
	}

	if f.cfg.Kind == KindSend {
		if f.cfg.Balances == nil {
			return decimal.Zero, ErrBalanceUnavailable
		}
		available, err := f.cfg.Balances.Balance(ctx, in.Asset)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrBalanceUnavailable, err)
		}
		if amount.GreaterThan(available) {
			return decimal.Zero, &ValidationError{Field: FieldAmount, Reason: ReasonInsufficientFunds}
		}
	}
	return amount, nil
}

func (f *Flow) execute(ctx context.Context, in Intent) (receipt Receipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error().Interface("panic", r).Msg("executor panicked")
			err = &TransferError{Reason: genericFailure, Err: fmt.Errorf("executor panic: %v", r)}
		}
	}()
	if f.cfg.Executor == nil {
		return Receipt{}, &TransferError{Reason: genericFailure, Err: errors.New("no executor configured")}
	}
	return f.cfg.Executor.Execute(ctx, in)
}

func (f *Flow) record(ctx context.Context, in Intent) {
	if f.cfg.Recorder == nil {
		return
	}
	if err := f.cfg.Recorder.Record(ctx, in); err != nil {
		f.log.Warn().Err(err).Msg("journal write failed")
	}
}
