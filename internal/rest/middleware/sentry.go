package middleware

import (
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/logger"
)

// InitSentry initializes the Sentry SDK. Returns false when reporting is
// disabled or initialization fails; the server runs fine without it.
func InitSentry(cfg *config.Configuration, log *logger.Logger) bool {
	if !cfg.Sentry.Enabled || cfg.Sentry.DSN == "" {
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Deployment.Mode,
		TracesSampleRate: cfg.Sentry.SampleRate,
	})
	if err != nil {
		log.Errorw("failed to initialize sentry", "error", err)
		return false
	}
	return true
}

// Sentry reports panics and attaches request context to events.
func Sentry() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}
