package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackbill/stackbill/internal/cache"
	"github.com/stackbill/stackbill/internal/config"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/types"
)

func newPricingService() PricingService {
	return NewPricingService(ServiceParams{
		Logger: logger.GetLogger(),
		Config: config.GetDefaultConfig(),
		Cache:  cache.NewInMemoryCache(),
	})
}

func TestGetPlan(t *testing.T) {
	svc := newPricingService()
	ctx := context.Background()

	t.Run("returns catalog prices", func(t *testing.T) {
		basic, err := svc.GetPlan(ctx, types.PlanTypeBasic)
		require.NoError(t, err)
		assert.Equal(t, int64(49000), basic.ListAmount())
		assert.False(t, basic.ManuallyBilled)

		standard, err := svc.GetPlan(ctx, types.PlanTypeStandard)
		require.NoError(t, err)
		assert.Equal(t, int64(99000), standard.ListAmount())

		enterprise, err := svc.GetPlan(ctx, types.PlanTypeEnterprise)
		require.NoError(t, err)
		assert.True(t, enterprise.ManuallyBilled)
		assert.Equal(t, int64(0), enterprise.ListAmount())
	})

	t.Run("second lookup hits the cache", func(t *testing.T) {
		first, err := svc.GetPlan(ctx, types.PlanTypeBasic)
		require.NoError(t, err)
		second, err := svc.GetPlan(ctx, types.PlanTypeBasic)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("rejects unknown plans", func(t *testing.T) {
		_, err := svc.GetPlan(ctx, types.PlanType("platinum"))
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestEffectiveAmount(t *testing.T) {
	svc := newPricingService()
	ctx := context.Background()
	asOf := types.NewBillingDay(2024, 3, 1)

	t.Run("locked discount holds while the lock is open", func(t *testing.T) {
		sub := activeSub("tnt_1", asOf)
		sub.Amount = 79000
		sub.BaseAmount = 99000
		sub.PriceLockedUntil = asOf.AddDays(30)

		assert.Equal(t, int64(79000), svc.EffectiveAmount(ctx, sub, asOf))
		assert.Equal(t, int64(79000), svc.EffectiveAmount(ctx, sub, sub.PriceLockedUntil))
	})

	t.Run("reverts to list price after the lock lapses", func(t *testing.T) {
		sub := activeSub("tnt_1", asOf)
		sub.Amount = 79000
		sub.BaseAmount = 99000
		sub.PriceLockedUntil = asOf.AddDays(-1)

		assert.Equal(t, int64(99000), svc.EffectiveAmount(ctx, sub, asOf))
	})

	t.Run("lock above list price is ignored", func(t *testing.T) {
		sub := activeSub("tnt_1", asOf)
		sub.Amount = 120000
		sub.BaseAmount = 99000
		sub.PriceLockedUntil = asOf.AddDays(30)

		assert.Equal(t, int64(99000), svc.EffectiveAmount(ctx, sub, asOf))
	})

	t.Run("no lock charges the base amount", func(t *testing.T) {
		sub := activeSub("tnt_1", asOf)
		assert.Equal(t, int64(99000), svc.EffectiveAmount(ctx, sub, asOf))
	})
}
