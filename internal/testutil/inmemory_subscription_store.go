package testutil

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/stackbill/stackbill/internal/domain/subscription"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository. Every read
// and write goes through copySubscription so callers never share memory with
// the store; mutating a returned subscription without a committed Update must
// not change what a later Get observes.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
	updateErrs map[string]error
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
		updateErrs:    make(map[string]error),
	}
}

// FailUpdateFor makes Update fail for the given subscription id. A nil err
// clears the injection.
func (s *InMemorySubscriptionStore) FailUpdateFor(id string, err error) {
	if err == nil {
		delete(s.updateErrs, id)
		return
	}
	s.updateErrs[id] = err
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	if sub.PendingPlan != nil {
		copied.PendingPlan = lo.ToPtr(*sub.PendingPlan)
	}
	if sub.PendingAmount != nil {
		copied.PendingAmount = lo.ToPtr(*sub.PendingAmount)
	}
	if sub.PendingMode != nil {
		copied.PendingMode = lo.ToPtr(*sub.PendingMode)
	}
	if sub.PreviousPlan != nil {
		copied.PreviousPlan = lo.ToPtr(*sub.PreviousPlan)
	}
	if sub.PreviousAmount != nil {
		copied.PreviousAmount = lo.ToPtr(*sub.PreviousAmount)
	}
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetByTenant(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	for _, sub := range s.List(ctx) {
		if sub.TenantID == tenantID {
			return copySubscription(sub), nil
		}
	}
	return nil, ierr.NewError("subscription not found").
		WithReportableDetails(map[string]interface{}{"tenant_id": tenantID}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemorySubscriptionStore) ListByStatus(ctx context.Context, status types.SubscriptionStatus) ([]*subscription.Subscription, error) {
	return s.sorted(lo.Filter(s.List(ctx), func(sub *subscription.Subscription, _ int) bool {
		return sub.SubscriptionStatus == status
	})), nil
}

func (s *InMemorySubscriptionStore) ListDueForBilling(ctx context.Context, asOf types.BillingDay) ([]*subscription.Subscription, error) {
	return s.sorted(lo.Filter(s.List(ctx), func(sub *subscription.Subscription, _ int) bool {
		return sub.SubscriptionStatus == types.SubscriptionStatusActive &&
			!sub.NextBillingDate.IsZero() &&
			sub.NextBillingDate.OnOrBefore(asOf)
	})), nil
}

func (s *InMemorySubscriptionStore) ListScheduledChanges(ctx context.Context, asOf types.BillingDay) ([]*subscription.Subscription, error) {
	return s.sorted(lo.Filter(s.List(ctx), func(sub *subscription.Subscription, _ int) bool {
		return sub.PendingMode != nil &&
			*sub.PendingMode == types.PendingChangeModeScheduled &&
			sub.SubscriptionStatus != types.SubscriptionStatusTrial &&
			!sub.PendingChangeAt.IsZero() &&
			sub.PendingChangeAt.OnOrBefore(asOf)
	})), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription is nil").Mark(ierr.ErrValidation)
	}
	if err := s.updateErrs[sub.ID]; err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) sorted(subs []*subscription.Subscription) []*subscription.Subscription {
	out := lo.Map(subs, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out
}
