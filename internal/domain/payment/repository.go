package payment

import "context"

// Repository defines persistence for payment records. Payments are written
// once and never updated.
type Repository interface {
	// Create appends a payment record.
	Create(ctx context.Context, p *Payment) error

	// GetByOrderID retrieves a payment by its order id.
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)

	// ListByTenant returns a tenant's payments, newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]*Payment, error)
}
