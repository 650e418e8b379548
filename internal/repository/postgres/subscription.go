package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/lo"

	"github.com/stackbill/stackbill/internal/domain/subscription"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	db "github.com/stackbill/stackbill/internal/postgres"
	"github.com/stackbill/stackbill/internal/types"
)

const subscriptionColumns = `
	id, tenant_id, subscription_status, plan, amount, base_amount,
	billing_key_ref, card_expiry_month, card_expiry_year, card_last4,
	billing_email,
	current_period_start, current_period_end, next_billing_date,
	retry_count, grace_period_until, price_locked_until,
	pending_plan, pending_amount, pending_change_at, pending_mode,
	previous_plan, previous_amount,
	last_payment_error, last_payment_failed_at,
	status, created_at, updated_at, created_by, updated_by`

type subscriptionRepository struct {
	client *db.Client
	logger *logger.Logger
}

// NewSubscriptionRepository creates the Postgres subscription repository.
func NewSubscriptionRepository(client *db.Client, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, logger: log}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	q := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
		$29, $30)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, q, r.writeArgs(sub)...)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{"id": sub.ID}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	row := r.client.Querier(ctx).QueryRowContext(ctx, q, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return sub, nil
}

func (r *subscriptionRepository) GetByTenant(ctx context.Context, tenantID string) (*subscription.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE tenant_id = $1`
	row := r.client.Querier(ctx).QueryRowContext(ctx, q, tenantID)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{"tenant_id": tenantID}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription by tenant").
			Mark(ierr.ErrDatabase)
	}
	return sub, nil
}

func (r *subscriptionRepository) ListByStatus(ctx context.Context, status types.SubscriptionStatus) ([]*subscription.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE subscription_status = $1 ORDER BY tenant_id`
	return r.list(ctx, q, string(status))
}

func (r *subscriptionRepository) ListDueForBilling(ctx context.Context, asOf types.BillingDay) ([]*subscription.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE subscription_status = $1
		  AND next_billing_date IS NOT NULL
		  AND next_billing_date <= $2
		ORDER BY tenant_id`
	return r.list(ctx, q, string(types.SubscriptionStatusActive), asOf)
}

func (r *subscriptionRepository) ListScheduledChanges(ctx context.Context, asOf types.BillingDay) ([]*subscription.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE pending_mode = $1
		  AND subscription_status <> $2
		  AND pending_change_at IS NOT NULL
		  AND pending_change_at <= $3
		ORDER BY tenant_id`
	return r.list(ctx, q,
		string(types.PendingChangeModeScheduled),
		string(types.SubscriptionStatusTrial),
		asOf)
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	sub.UpdatedAt = time.Now().UTC()

	q := `UPDATE subscriptions SET
		tenant_id = $2, subscription_status = $3, plan = $4, amount = $5,
		base_amount = $6, billing_key_ref = $7, card_expiry_month = $8,
		card_expiry_year = $9, card_last4 = $10, billing_email = $11,
		current_period_start = $12, current_period_end = $13,
		next_billing_date = $14, retry_count = $15, grace_period_until = $16,
		price_locked_until = $17, pending_plan = $18, pending_amount = $19,
		pending_change_at = $20, pending_mode = $21, previous_plan = $22,
		previous_amount = $23, last_payment_error = $24,
		last_payment_failed_at = $25, status = $26, created_at = $27,
		updated_at = $28, created_by = $29, updated_by = $30
		WHERE id = $1`

	res, err := r.client.Querier(ctx).ExecContext(ctx, q, r.writeArgs(sub)...)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			WithReportableDetails(map[string]interface{}{"id": sub.ID}).
			Mark(ierr.ErrDatabase)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{"id": sub.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) list(ctx context.Context, q string, args ...interface{}) ([]*subscription.Subscription, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to scan subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription row").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) writeArgs(sub *subscription.Subscription) []interface{} {
	return []interface{}{
		sub.ID, sub.TenantID, string(sub.SubscriptionStatus), string(sub.Plan),
		sub.Amount, sub.BaseAmount, sub.BillingKeyRef,
		sub.CardExpiryMonth, sub.CardExpiryYear, sub.CardLast4,
		sub.BillingEmail,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.NextBillingDate,
		sub.RetryCount, sub.GracePeriodUntil, sub.PriceLockedUntil,
		nullablePlan(sub.PendingPlan), nullableInt(sub.PendingAmount),
		sub.PendingChangeAt, nullableMode(sub.PendingMode),
		nullablePlan(sub.PreviousPlan), nullableInt(sub.PreviousAmount),
		sub.LastPaymentError, sub.LastPaymentFailedAt,
		string(sub.Status), sub.CreatedAt, sub.UpdatedAt,
		sub.CreatedBy, sub.UpdatedBy,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(row rowScanner) (*subscription.Subscription, error) {
	var (
		sub          subscription.Subscription
		status       string
		plan         string
		recordStatus string
		pendingPlan  sql.NullString
		pendingAmt   sql.NullInt64
		pendingMode  sql.NullString
		prevPlan     sql.NullString
		prevAmt      sql.NullInt64
	)

	err := row.Scan(
		&sub.ID, &sub.TenantID, &status, &plan, &sub.Amount, &sub.BaseAmount,
		&sub.BillingKeyRef, &sub.CardExpiryMonth, &sub.CardExpiryYear,
		&sub.CardLast4, &sub.BillingEmail,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.NextBillingDate,
		&sub.RetryCount, &sub.GracePeriodUntil, &sub.PriceLockedUntil,
		&pendingPlan, &pendingAmt, &sub.PendingChangeAt, &pendingMode,
		&prevPlan, &prevAmt,
		&sub.LastPaymentError, &sub.LastPaymentFailedAt,
		&recordStatus, &sub.CreatedAt, &sub.UpdatedAt,
		&sub.CreatedBy, &sub.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	sub.SubscriptionStatus = types.SubscriptionStatus(status)
	sub.Plan = types.PlanType(plan)
	sub.Status = types.Status(recordStatus)
	if pendingPlan.Valid {
		sub.PendingPlan = lo.ToPtr(types.PlanType(pendingPlan.String))
	}
	if pendingAmt.Valid {
		sub.PendingAmount = lo.ToPtr(pendingAmt.Int64)
	}
	if pendingMode.Valid {
		sub.PendingMode = lo.ToPtr(types.PendingChangeMode(pendingMode.String))
	}
	if prevPlan.Valid {
		sub.PreviousPlan = lo.ToPtr(types.PlanType(prevPlan.String))
	}
	if prevAmt.Valid {
		sub.PreviousAmount = lo.ToPtr(prevAmt.Int64)
	}
	return &sub, nil
}

func nullablePlan(p *types.PlanType) interface{} {
	if p == nil {
		return nil
	}
	return string(*p)
}

func nullableMode(m *types.PendingChangeMode) interface{} {
	if m == nil {
		return nil
	}
	return string(*m)
}

func nullableInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
