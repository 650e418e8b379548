package testutil

import (
	"context"
	"sort"

	"github.com/stackbill/stackbill/internal/domain/payment"
	ierr "github.com/stackbill/stackbill/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository.
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{InMemoryStore: NewInMemoryStore[*payment.Payment]()}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil {
		return ierr.NewError("payment is nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPaymentStore) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	for _, p := range s.List(ctx) {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, ierr.NewError("payment not found").
		WithReportableDetails(map[string]interface{}{"order_id": orderID}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryPaymentStore) ListByTenant(ctx context.Context, tenantID string) ([]*payment.Payment, error) {
	var out []*payment.Payment
	for _, p := range s.List(ctx) {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// All returns every payment regardless of tenant.
func (s *InMemoryPaymentStore) All() []*payment.Payment {
	return s.List(context.Background())
}
