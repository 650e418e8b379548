package service

import (
	"context"

	"github.com/stackbill/stackbill/internal/cache"
	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/domain/payment"
	"github.com/stackbill/stackbill/internal/domain/subscription"
	"github.com/stackbill/stackbill/internal/email"
	"github.com/stackbill/stackbill/internal/gateway"
	"github.com/stackbill/stackbill/internal/idempotency"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/webhook"
)

// TxRunner runs fn atomically when a transactional backend is available.
// *postgres.Client satisfies it; tests use a pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner executes fn without a transaction.
type NopTxRunner struct{}

func (NopTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ServiceParams bundles the dependencies every service receives. Keeping one
// struct makes constructor signatures stable as the dependency set grows.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	TxRunner TxRunner

	SubRepo     subscription.Repository
	HistoryRepo subscription.HistoryRepository
	PaymentRepo payment.Repository

	IdempotencyStore idempotency.Store
	Gateway          gateway.Client
	Publisher        webhook.Publisher
	EmailSender      email.Sender
	Cache            cache.Cache
}
