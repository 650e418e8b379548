package types

import (
	"encoding/json"
	"time"
)

// WebhookEventName is the closed set of notification events emitted by the
// billing run. Delivery is best-effort and never required for correctness.
type WebhookEventName string

const (
	WebhookEventTrialConverted          WebhookEventName = "trial_converted"
	WebhookEventTrialExpired            WebhookEventName = "trial_expired"
	WebhookEventCardExpiry30D           WebhookEventName = "card_expiry_30d"
	WebhookEventCardExpiry7D            WebhookEventName = "card_expiry_7d"
	WebhookEventPlanChangeApplied       WebhookEventName = "plan_change_applied"
	WebhookEventSubscriptionCanceled    WebhookEventName = "subscription_canceled"
	WebhookEventSubscriptionSuspended   WebhookEventName = "subscription_suspended"
	WebhookEventPaymentSuccess          WebhookEventName = "payment_success"
	WebhookEventPaymentRetry1           WebhookEventName = "payment_retry_1"
	WebhookEventPaymentRetry2           WebhookEventName = "payment_retry_2"
	WebhookEventPaymentFailedGrace      WebhookEventName = "payment_failed_grace_period"
)

// WebhookEvent is the envelope posted to the external workflow system.
type WebhookEvent struct {
	ID        string           `json:"id"`
	EventName WebhookEventName `json:"event"`
	TenantID  string           `json:"tenant_id"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
}
