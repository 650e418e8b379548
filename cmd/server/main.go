package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/stackbill/stackbill/internal/api/cron"
	"github.com/stackbill/stackbill/internal/cache"
	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/domain/payment"
	"github.com/stackbill/stackbill/internal/domain/subscription"
	"github.com/stackbill/stackbill/internal/email"
	"github.com/stackbill/stackbill/internal/gateway"
	"github.com/stackbill/stackbill/internal/idempotency"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/postgres"
	pgrepo "github.com/stackbill/stackbill/internal/repository/postgres"
	"github.com/stackbill/stackbill/internal/rest"
	"github.com/stackbill/stackbill/internal/service"
	"github.com/stackbill/stackbill/internal/webhook"

	redisClient "github.com/stackbill/stackbill/internal/redis"
)

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			newPostgresClient,
			newRedisClient,
			newCache,
			pgrepo.NewSubscriptionRepository,
			pgrepo.NewHistoryRepository,
			pgrepo.NewPaymentRepository,
			newIdempotencyStore,
			gateway.NewClient,
			webhook.NewHTTPPublisher,
			email.NewClient,
			email.NewSender,
			newServiceParams,
			service.NewPricingService,
			service.NewBillingRunService,
			newBillingHandler,
			newRouter,
		),
		fx.Invoke(startServer),
	).Run()
}

func newPostgresClient(cfg *config.Configuration, log *logger.Logger) (*postgres.Client, error) {
	return postgres.NewClient(cfg.Postgres, log)
}

// newRedisClient connects to Redis when the redis cache backend is selected.
// Failure downgrades to the in-memory cache instead of blocking startup.
func newRedisClient(cfg *config.Configuration, log *logger.Logger) *redisClient.Client {
	if !cfg.Cache.Enabled || cache.CacheType(cfg.Cache.Type) != cache.CacheTypeRedis {
		return nil
	}
	rc, err := redisClient.NewClient(cfg.Redis, log)
	if err != nil {
		log.Warnw("redis unavailable, falling back to in-memory cache", "error", err)
		return nil
	}
	return rc
}

func newCache(cfg *config.Configuration, rc *redisClient.Client, log *logger.Logger) cache.Cache {
	return cache.Initialize(cfg, rc, log)
}

func newIdempotencyStore(client *postgres.Client, c cache.Cache, log *logger.Logger) idempotency.Store {
	return idempotency.NewCachedStore(pgrepo.NewIdempotencyStore(client, log), c)
}

type serviceParamsIn struct {
	fx.In

	Logger *logger.Logger
	Config *config.Configuration
	DB     *postgres.Client

	SubRepo     subscription.Repository
	HistoryRepo subscription.HistoryRepository
	PaymentRepo payment.Repository

	IdempotencyStore idempotency.Store
	Gateway          gateway.Client
	Publisher        webhook.Publisher
	EmailSender      email.Sender
	Cache            cache.Cache
}

func newServiceParams(in serviceParamsIn) service.ServiceParams {
	return service.ServiceParams{
		Logger:           in.Logger,
		Config:           in.Config,
		TxRunner:         in.DB,
		SubRepo:          in.SubRepo,
		HistoryRepo:      in.HistoryRepo,
		PaymentRepo:      in.PaymentRepo,
		IdempotencyStore: in.IdempotencyStore,
		Gateway:          in.Gateway,
		Publisher:        in.Publisher,
		EmailSender:      in.EmailSender,
		Cache:            in.Cache,
	}
}

func newBillingHandler(billing service.BillingRunService, db *postgres.Client, log *logger.Logger) *cron.BillingHandler {
	return cron.NewBillingHandler(billing, db, log)
}

func newRouter(handler *cron.BillingHandler, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	return rest.NewRouter(rest.Handlers{Billing: handler}, cfg, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	db *postgres.Client,
	router *gin.Engine,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := pgrepo.Migrate(ctx, db, log); err != nil {
				return err
			}
			go func() {
				log.Infow("starting server", "address", cfg.Server.Address)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			if err := server.Shutdown(ctx); err != nil {
				return err
			}
			return db.Close()
		},
	})
}
