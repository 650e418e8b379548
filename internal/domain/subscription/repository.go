package subscription

import (
	"context"

	"github.com/stackbill/stackbill/internal/types"
)

// Repository defines persistence for subscription records. The store is
// treated as a document store: filtered scans plus single-document
// read/update, each update atomic at the document level.
type Repository interface {
	// Create inserts a new subscription.
	Create(ctx context.Context, sub *Subscription) error

	// Get retrieves a subscription by id.
	Get(ctx context.Context, id string) (*Subscription, error)

	// GetByTenant retrieves the one subscription owned by a tenant.
	GetByTenant(ctx context.Context, tenantID string) (*Subscription, error)

	// ListByStatus scans subscriptions in the given lifecycle status.
	ListByStatus(ctx context.Context, status types.SubscriptionStatus) ([]*Subscription, error)

	// ListDueForBilling scans active subscriptions whose next billing date
	// is on or before asOf.
	ListDueForBilling(ctx context.Context, asOf types.BillingDay) ([]*Subscription, error)

	// ListScheduledChanges scans subscriptions carrying a scheduled pending
	// change effective on or before asOf.
	ListScheduledChanges(ctx context.Context, asOf types.BillingDay) ([]*Subscription, error)

	// Update persists the full subscription document.
	Update(ctx context.Context, sub *Subscription) error
}

// HistoryRepository is the append-only audit trail of state transitions.
// Records are superseded by new entries, never edited.
type HistoryRepository interface {
	// Append adds a history record.
	Append(ctx context.Context, record *HistoryRecord) error

	// ListBySubscription returns a subscription's records, newest first.
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*HistoryRecord, error)
}
