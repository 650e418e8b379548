package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackbill/stackbill/internal/api/cron"
	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/rest/middleware"
)

// Handlers bundles the HTTP handlers the router mounts.
type Handlers struct {
	Billing *cron.BillingHandler
}

// NewRouter builds the gin engine with the full middleware chain.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = log.GetGinLogger()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	if middleware.InitSentry(cfg, log) {
		router.Use(middleware.Sentry())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cronGroup := router.Group("/cron", middleware.CronAuth(cfg.Cron.Secret, log))
	cronGroup.POST("/billing/daily", handlers.Billing.RunDailyBilling)

	return router
}
