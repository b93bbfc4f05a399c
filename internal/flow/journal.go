package flow

import (
	"context"

	"github.com/jask/credawallet/internal/database/repository"
)

// Journal records intent transitions in the activity table. Drafts are never
// written: an intent enters the journal when it is first submitted.
type Journal struct {
	Activity *repository.ActivityRepo
}

func (j Journal) Record(ctx context.Context, in Intent) error {
	if in.Status == StatusDraft {
		return nil
	}
	a := repository.Activity{
		ID:     in.ID,
		Kind:   string(in.Kind),
		Asset:  in.Asset,
		Amount: in.Amount.String(),
		Status: string(in.Status),
	}
	if in.TargetAddress != "" {
		a.TargetAddress = &in.TargetAddress
	}
	if in.Failure != "" {
		a.Failure = &in.Failure
	}
	if in.TxID != "" {
		a.TxID = &in.TxID
	}
	return j.Activity.Upsert(ctx, a)
}
