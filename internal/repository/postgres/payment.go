package postgres

import (
	"context"
	"database/sql"

	"github.com/stackbill/stackbill/internal/domain/payment"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	db "github.com/stackbill/stackbill/internal/postgres"
	"github.com/stackbill/stackbill/internal/types"
)

const paymentColumns = `
	id, tenant_id, order_id, amount, payment_status, payment_type,
	idempotency_key, transaction_id, method, receipt_url, failure_reason,
	paid_at, created_at`

type paymentRepository struct {
	client *db.Client
	logger *logger.Logger
}

// NewPaymentRepository creates the Postgres payment repository.
func NewPaymentRepository(client *db.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, logger: log}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if err := p.Validate(); err != nil {
		return err
	}

	q := `INSERT INTO payments (` + paymentColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, q,
		p.ID, p.TenantID, p.OrderID, p.Amount,
		string(p.PaymentStatus), string(p.PaymentType),
		p.IdempotencyKey, p.TransactionID, p.Method, p.ReceiptURL,
		p.FailureReason, p.PaidAt, p.CreatedAt)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create payment").
			WithReportableDetails(map[string]interface{}{"order_id": p.OrderID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID string) (*payment.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	p, err := scanPayment(r.client.Querier(ctx).QueryRowContext(ctx, q, orderID))
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("payment not found").
			WithReportableDetails(map[string]interface{}{"order_id": orderID}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return p, nil
}

func (r *paymentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*payment.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments
		WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.client.Querier(ctx).QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan payment row").
				Mark(ierr.ErrDatabase)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var (
		p       payment.Payment
		status  string
		payType string
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.OrderID, &p.Amount, &status, &payType,
		&p.IdempotencyKey, &p.TransactionID, &p.Method, &p.ReceiptURL,
		&p.FailureReason, &p.PaidAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentStatus = types.PaymentStatus(status)
	p.PaymentType = types.PaymentType(payType)
	return &p, nil
}
