package postgres

import (
	"context"

	"github.com/stackbill/stackbill/internal/domain/subscription"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	db "github.com/stackbill/stackbill/internal/postgres"
	"github.com/stackbill/stackbill/internal/types"
)

const historyColumns = `
	id, tenant_id, subscription_id, change_type, plan, amount,
	period_start, period_end, actor, note, created_at`

type historyRepository struct {
	client *db.Client
	logger *logger.Logger
}

// NewHistoryRepository creates the Postgres subscription history repository.
func NewHistoryRepository(client *db.Client, log *logger.Logger) subscription.HistoryRepository {
	return &historyRepository{client: client, logger: log}
}

func (r *historyRepository) Append(ctx context.Context, rec *subscription.HistoryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	q := `INSERT INTO subscription_history (` + historyColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, q,
		rec.ID, rec.TenantID, rec.SubscriptionID, string(rec.ChangeType),
		string(rec.Plan), rec.Amount, rec.PeriodStart, rec.PeriodEnd,
		string(rec.Actor), rec.Note, rec.CreatedAt)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to append history record").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": rec.SubscriptionID,
				"change_type":     rec.ChangeType,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *historyRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*subscription.HistoryRecord, error) {
	q := `SELECT ` + historyColumns + ` FROM subscription_history
		WHERE subscription_id = $1 ORDER BY created_at DESC`

	rows, err := r.client.Querier(ctx).QueryContext(ctx, q, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list history records").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var records []*subscription.HistoryRecord
	for rows.Next() {
		var (
			rec        subscription.HistoryRecord
			changeType string
			plan       string
			actor      string
		)
		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.SubscriptionID, &changeType,
			&plan, &rec.Amount, &rec.PeriodStart, &rec.PeriodEnd,
			&actor, &rec.Note, &rec.CreatedAt,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan history row").
				Mark(ierr.ErrDatabase)
		}
		rec.ChangeType = types.ChangeType(changeType)
		rec.Plan = types.PlanType(plan)
		rec.Actor = types.ChangeActor(actor)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return records, nil
}
