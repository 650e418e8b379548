package cron

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackbill/stackbill/internal/api/dto"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/service"
)

const dailyRunLockName = "stackbill:daily_billing_run"

// RunLocker serializes daily-run invocations. *postgres.Client implements
// it with an advisory lock.
type RunLocker interface {
	TryAcquireRunLock(ctx context.Context, name string) (release func(), ok bool, err error)
}

// BillingHandler exposes the daily billing run to the external cron
// dispatcher.
type BillingHandler struct {
	billing service.BillingRunService
	locker  RunLocker
	logger  *logger.Logger
}

func NewBillingHandler(billing service.BillingRunService, locker RunLocker, log *logger.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, locker: locker, logger: log}
}

// RunDailyBilling handles POST /cron/billing/daily. The body is optional;
// an as_of date overrides the run day for replays. Overlapping invocations
// skip instead of double-scanning.
func (h *BillingHandler) RunDailyBilling(c *gin.Context) {
	var req dto.BillingRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	asOf, err := req.AsOfDay()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"hint":  ierr.Hint(err),
		})
		return
	}

	ctx := c.Request.Context()
	release, ok, err := h.locker.TryAcquireRunLock(ctx, dailyRunLockName)
	if err != nil {
		h.logger.Errorw("failed to acquire run lock", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to acquire run lock"})
		return
	}
	if !ok {
		h.logger.Warnw("daily billing run already in progress, skipping")
		c.JSON(http.StatusConflict, gin.H{
			"status": "skipped",
			"reason": "another run is in progress",
		})
		return
	}
	defer release()

	summary, err := h.billing.Run(ctx, asOf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"hint":  ierr.Hint(err),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
