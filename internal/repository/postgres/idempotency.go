package postgres

import (
	"context"
	"time"

	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/idempotency"
	"github.com/stackbill/stackbill/internal/logger"
	db "github.com/stackbill/stackbill/internal/postgres"
)

type idempotencyStore struct {
	client *db.Client
	logger *logger.Logger
}

// NewIdempotencyStore creates the durable idempotency key store.
func NewIdempotencyStore(client *db.Client, log *logger.Logger) idempotency.Store {
	return &idempotencyStore{client: client, logger: log}
}

func (s *idempotencyStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.client.Querier(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM idempotency_keys WHERE key = $1)`, key).
		Scan(&exists)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check idempotency key").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

func (s *idempotencyStore) Record(ctx context.Context, key string, paymentID string) error {
	res, err := s.client.Querier(ctx).ExecContext(ctx,
		`INSERT INTO idempotency_keys (key, payment_id, created_at)
		 VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`,
		key, paymentID, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record idempotency key").
			Mark(ierr.ErrDatabase)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewError("idempotency key already recorded").
			WithReportableDetails(map[string]interface{}{"payment_id": paymentID}).
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}
