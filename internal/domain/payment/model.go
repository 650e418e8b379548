package payment

import (
	"time"

	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/types"
)

// Payment is one charge attempt that reached the gateway. Records are
// append-only; the idempotency key is the de-duplication unit.
type Payment struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenant_id"`
	OrderID        string              `json:"order_id"`
	Amount         int64               `json:"amount"`
	PaymentStatus  types.PaymentStatus `json:"payment_status"`
	PaymentType    types.PaymentType   `json:"payment_type"`
	IdempotencyKey string              `json:"idempotency_key"`
	TransactionID  string              `json:"transaction_id,omitempty"`
	Method         string              `json:"method,omitempty"`
	ReceiptURL     string              `json:"receipt_url,omitempty"`
	FailureReason  string              `json:"failure_reason,omitempty"`
	PaidAt         time.Time           `json:"paid_at"`
	CreatedAt      time.Time           `json:"created_at"`
}

func (p *Payment) Validate() error {
	if p.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if p.OrderID == "" {
		return ierr.NewError("order_id is required").Mark(ierr.ErrValidation)
	}
	if p.Amount < 0 {
		return ierr.NewError("amount cannot be negative").Mark(ierr.ErrValidation)
	}
	return nil
}
