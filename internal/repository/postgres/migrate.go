package postgres

import (
	"context"

	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	db "github.com/stackbill/stackbill/internal/postgres"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL UNIQUE,
		subscription_status TEXT NOT NULL,
		plan TEXT NOT NULL,
		amount BIGINT NOT NULL DEFAULT 0,
		base_amount BIGINT NOT NULL DEFAULT 0,
		billing_key_ref TEXT NOT NULL DEFAULT '',
		card_expiry_month INT NOT NULL DEFAULT 0,
		card_expiry_year INT NOT NULL DEFAULT 0,
		card_last4 TEXT NOT NULL DEFAULT '',
		billing_email TEXT NOT NULL DEFAULT '',
		current_period_start DATE,
		current_period_end DATE,
		next_billing_date DATE,
		retry_count INT NOT NULL DEFAULT 0,
		grace_period_until DATE,
		price_locked_until DATE,
		pending_plan TEXT,
		pending_amount BIGINT,
		pending_change_at DATE,
		pending_mode TEXT,
		previous_plan TEXT,
		previous_amount BIGINT,
		last_payment_error TEXT NOT NULL DEFAULT '',
		last_payment_failed_at DATE,
		status TEXT NOT NULL DEFAULT 'published',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_by TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_status_next_billing
		ON subscriptions (subscription_status, next_billing_date)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_pending_change
		ON subscriptions (pending_mode, pending_change_at)
		WHERE pending_mode IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		order_id TEXT NOT NULL UNIQUE,
		amount BIGINT NOT NULL,
		payment_status TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		idempotency_key TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		receipt_url TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		paid_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments (tenant_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS subscription_history (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		subscription_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		plan TEXT NOT NULL,
		amount BIGINT NOT NULL,
		period_start DATE,
		period_end DATE,
		actor TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_subscription
		ON subscription_history (subscription_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema idempotently at startup.
func Migrate(ctx context.Context, client *db.Client, log *logger.Logger) error {
	for _, stmt := range schemaStatements {
		if _, err := client.DB().ExecContext(ctx, stmt); err != nil {
			return ierr.WithError(err).
				WithHint("Failed to apply schema migration").
				Mark(ierr.ErrDatabase)
		}
	}
	log.Info("Database schema is up to date")
	return nil
}
