package subscription

import (
	"time"

	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/types"
)

// HistoryRecord is one entry in a subscription's append-only audit trail,
// capturing the plan and period that resulted from a transition.
type HistoryRecord struct {
	ID             string            `json:"id"`
	TenantID       string            `json:"tenant_id"`
	SubscriptionID string            `json:"subscription_id"`
	ChangeType     types.ChangeType  `json:"change_type"`
	Plan           types.PlanType    `json:"plan"`
	Amount         int64             `json:"amount"`
	PeriodStart    types.BillingDay  `json:"period_start"`
	PeriodEnd      types.BillingDay  `json:"period_end"`
	Actor          types.ChangeActor `json:"actor"`
	Note           string            `json:"note,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (r *HistoryRecord) Validate() error {
	if r.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if r.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").Mark(ierr.ErrValidation)
	}
	if r.ChangeType == "" {
		return ierr.NewError("change_type is required").Mark(ierr.ErrValidation)
	}
	return nil
}

// NewHistoryRecord builds a system-actor record from the subscription's
// current state.
func NewHistoryRecord(sub *Subscription, changeType types.ChangeType, note string) *HistoryRecord {
	return &HistoryRecord{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_HISTORY),
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		ChangeType:     changeType,
		Plan:           sub.Plan,
		Amount:         sub.Amount,
		PeriodStart:    sub.CurrentPeriodStart,
		PeriodEnd:      sub.CurrentPeriodEnd,
		Actor:          types.ChangeActorSystem,
		Note:           note,
		CreatedAt:      time.Now().UTC(),
	}
}
