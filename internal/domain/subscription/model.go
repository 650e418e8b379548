package subscription

import (
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/types"
)

// Subscription is the per-tenant billing record. The automated billing run
// is the sole writer of the lifecycle fields; manual admin edits go through
// a separate serialized path.
type Subscription struct {
	ID                 string                   `json:"id"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	Plan               types.PlanType           `json:"plan"`

	// Amount is what the tenant actually pays per cycle, in the minor
	// currency unit. BaseAmount is the plan list price; the two diverge
	// while a price lock is in effect.
	Amount     int64 `json:"amount"`
	BaseAmount int64 `json:"base_amount"`

	// BillingKeyRef is the opaque reference to the stored payment
	// instrument used for unattended charges. Empty means no credential
	// on file.
	BillingKeyRef   string `json:"billing_key_ref,omitempty"`
	CardExpiryMonth int    `json:"card_expiry_month,omitempty"`
	CardExpiryYear  int    `json:"card_expiry_year,omitempty"`
	CardLast4       string `json:"card_last4,omitempty"`

	// BillingEmail receives card-expiry alerts. Empty means no email on
	// file; alerts are skipped, webhooks still fire.
	BillingEmail string `json:"billing_email,omitempty"`

	CurrentPeriodStart types.BillingDay `json:"current_period_start"`
	CurrentPeriodEnd   types.BillingDay `json:"current_period_end"`
	// NextBillingDate is zero for expired, canceled, and enterprise-billed
	// subscriptions.
	NextBillingDate types.BillingDay `json:"next_billing_date"`

	RetryCount       int              `json:"retry_count"`
	GracePeriodUntil types.BillingDay `json:"grace_period_until"`
	PriceLockedUntil types.BillingDay `json:"price_locked_until"`

	PendingPlan     *types.PlanType          `json:"pending_plan,omitempty"`
	PendingAmount   *int64                   `json:"pending_amount,omitempty"`
	PendingChangeAt types.BillingDay         `json:"pending_change_at"`
	PendingMode     *types.PendingChangeMode `json:"pending_mode,omitempty"`

	PreviousPlan   *types.PlanType `json:"previous_plan,omitempty"`
	PreviousAmount *int64          `json:"previous_amount,omitempty"`

	LastPaymentError    string           `json:"last_payment_error,omitempty"`
	LastPaymentFailedAt types.BillingDay `json:"last_payment_failed_at"`

	types.BaseModel
}

// Validate checks the closed enum fields.
func (s *Subscription) Validate() error {
	if s.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if err := s.Plan.Validate(); err != nil {
		return err
	}
	if s.PendingPlan != nil {
		if err := s.PendingPlan.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// HasPendingChange reports whether a future plan/price change is scheduled.
func (s *Subscription) HasPendingChange() bool {
	return s.PendingPlan != nil
}

// HasBillingCredential reports whether a stored payment instrument exists.
func (s *Subscription) HasBillingCredential() bool {
	return s.BillingKeyRef != ""
}

// IsPendingChangeDue reports whether the scheduled change has reached its
// effective date.
func (s *Subscription) IsPendingChangeDue(asOf types.BillingDay) bool {
	return s.HasPendingChange() && !s.PendingChangeAt.IsZero() && s.PendingChangeAt.OnOrBefore(asOf)
}

// IsTrialLapsed reports whether an unconverted trial has run past its
// period end.
func (s *Subscription) IsTrialLapsed(asOf types.BillingDay) bool {
	return s.SubscriptionStatus == types.SubscriptionStatusTrial &&
		!s.HasPendingChange() &&
		!s.CurrentPeriodEnd.IsZero() &&
		s.CurrentPeriodEnd.Before(asOf)
}

// IsBillingDue reports whether an active subscription owes a recurring
// charge as of the given day.
func (s *Subscription) IsBillingDue(asOf types.BillingDay) bool {
	return s.SubscriptionStatus == types.SubscriptionStatusActive &&
		!s.NextBillingDate.IsZero() &&
		s.NextBillingDate.OnOrBefore(asOf)
}

// IsRetryDue implements the retry ladder: attempts land on D+1 and D+2
// after the first failure on D, and stop once the attempt cap is reached.
// LastPaymentFailedAt anchors the ladder and is never advanced by later
// failures within the same cycle.
func (s *Subscription) IsRetryDue(asOf types.BillingDay, maxRetries int) bool {
	if s.SubscriptionStatus != types.SubscriptionStatusPastDue {
		return false
	}
	if s.RetryCount >= maxRetries || s.LastPaymentFailedAt.IsZero() {
		return false
	}
	return asOf.DaysSince(s.LastPaymentFailedAt) == s.RetryCount
}

// IsGraceLapsed reports whether the grace window has fully elapsed.
func (s *Subscription) IsGraceLapsed(asOf types.BillingDay) bool {
	return s.SubscriptionStatus == types.SubscriptionStatusPastDue &&
		!s.GracePeriodUntil.IsZero() &&
		s.GracePeriodUntil.Before(asOf)
}

// ClearPendingChange drops all scheduled-change fields.
func (s *Subscription) ClearPendingChange() {
	s.PendingPlan = nil
	s.PendingAmount = nil
	s.PendingChangeAt = types.BillingDay{}
	s.PendingMode = nil
}

// ClearPaymentFailure resets the retry state after a successful charge.
func (s *Subscription) ClearPaymentFailure() {
	s.RetryCount = 0
	s.GracePeriodUntil = types.BillingDay{}
	s.LastPaymentError = ""
	s.LastPaymentFailedAt = types.BillingDay{}
}
