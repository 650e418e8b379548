package types

import ierr "github.com/stackbill/stackbill/internal/errors"

// SubscriptionStatus is the automated lifecycle state of a tenant
// subscription. The billing run is the only writer of these transitions.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial         SubscriptionStatus = "trial"
	SubscriptionStatusActive        SubscriptionStatus = "active"
	SubscriptionStatusPastDue       SubscriptionStatus = "past_due"
	SubscriptionStatusSuspended     SubscriptionStatus = "suspended"
	SubscriptionStatusPendingCancel SubscriptionStatus = "pending_cancel"
	SubscriptionStatusCanceled      SubscriptionStatus = "canceled"
	SubscriptionStatusExpired       SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusSuspended, SubscriptionStatusPendingCancel,
		SubscriptionStatusCanceled, SubscriptionStatusExpired:
		return nil
	}
	return ierr.NewErrorf("invalid subscription status: %s", s).Mark(ierr.ErrValidation)
}

// PlanType is the closed set of sellable plans.
type PlanType string

const (
	PlanTypeBasic      PlanType = "basic"
	PlanTypeStandard   PlanType = "standard"
	PlanTypeEnterprise PlanType = "enterprise"
)

func (p PlanType) Validate() error {
	switch p {
	case PlanTypeBasic, PlanTypeStandard, PlanTypeEnterprise:
		return nil
	}
	return ierr.NewErrorf("invalid plan type: %s", p).Mark(ierr.ErrValidation)
}

// IsManuallyBilled reports whether the plan is invoiced outside the
// automated run. Enterprise tenants carry no next billing date.
func (p PlanType) IsManuallyBilled() bool {
	return p == PlanTypeEnterprise
}

// PendingChangeMode distinguishes how a scheduled change is applied.
// Trial conversions charge on activation; scheduled changes swap the plan
// without moving money.
type PendingChangeMode string

const (
	PendingChangeModeScheduled    PendingChangeMode = "scheduled"
	PendingChangeModeTrialConvert PendingChangeMode = "trial_convert"
)

// ChangeType classifies a subscription history entry.
type ChangeType string

const (
	ChangeTypeNew        ChangeType = "new"
	ChangeTypeUpgrade    ChangeType = "upgrade"
	ChangeTypeDowngrade  ChangeType = "downgrade"
	ChangeTypeRenew      ChangeType = "renew"
	ChangeTypeCancel     ChangeType = "cancel"
	ChangeTypeExpire     ChangeType = "expire"
	ChangeTypeReactivate ChangeType = "reactivate"
)

// ChangeActor identifies who drove a state transition.
type ChangeActor string

const (
	ChangeActorSystem ChangeActor = "system"
	ChangeActorAdmin  ChangeActor = "admin"
	ChangeActorUser   ChangeActor = "user"
)
