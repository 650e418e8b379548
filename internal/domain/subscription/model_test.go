package subscription

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/stackbill/stackbill/internal/types"
)

func day(y int, m time.Month, d int) types.BillingDay {
	return types.NewBillingDay(y, m, d)
}

func TestIsRetryDue(t *testing.T) {
	failedAt := day(2024, time.March, 1)

	sub := func(retryCount int) *Subscription {
		return &Subscription{
			SubscriptionStatus:  types.SubscriptionStatusPastDue,
			RetryCount:          retryCount,
			LastPaymentFailedAt: failedAt,
		}
	}

	t.Run("ladder lands on D+1 and D+2", func(t *testing.T) {
		assert.True(t, sub(1).IsRetryDue(failedAt.AddDays(1), 3))
		assert.True(t, sub(2).IsRetryDue(failedAt.AddDays(2), 3))
	})

	t.Run("off-ladder days do not retry", func(t *testing.T) {
		assert.False(t, sub(1).IsRetryDue(failedAt, 3))
		assert.False(t, sub(1).IsRetryDue(failedAt.AddDays(2), 3))
		assert.False(t, sub(2).IsRetryDue(failedAt.AddDays(1), 3))
	})

	t.Run("cap stops the ladder", func(t *testing.T) {
		assert.False(t, sub(3).IsRetryDue(failedAt.AddDays(3), 3))
	})

	t.Run("only past_due retries", func(t *testing.T) {
		s := sub(1)
		s.SubscriptionStatus = types.SubscriptionStatusActive
		assert.False(t, s.IsRetryDue(failedAt.AddDays(1), 3))
	})

	t.Run("missing anchor never retries", func(t *testing.T) {
		s := sub(1)
		s.LastPaymentFailedAt = types.BillingDay{}
		assert.False(t, s.IsRetryDue(failedAt.AddDays(1), 3))
	})
}

func TestLifecyclePredicates(t *testing.T) {
	asOf := day(2024, time.March, 1)

	t.Run("IsTrialLapsed", func(t *testing.T) {
		s := &Subscription{
			SubscriptionStatus: types.SubscriptionStatusTrial,
			CurrentPeriodEnd:   asOf.AddDays(-1),
		}
		assert.True(t, s.IsTrialLapsed(asOf))

		// A scheduled conversion shields the trial from expiry.
		s.PendingPlan = lo.ToPtr(types.PlanTypeBasic)
		assert.False(t, s.IsTrialLapsed(asOf))

		s.PendingPlan = nil
		s.CurrentPeriodEnd = asOf
		assert.False(t, s.IsTrialLapsed(asOf), "period end day itself is still in the trial")
	})

	t.Run("IsBillingDue", func(t *testing.T) {
		s := &Subscription{
			SubscriptionStatus: types.SubscriptionStatusActive,
			NextBillingDate:    asOf,
		}
		assert.True(t, s.IsBillingDue(asOf))
		assert.True(t, s.IsBillingDue(asOf.AddDays(5)), "overdue dates stay due")
		assert.False(t, s.IsBillingDue(asOf.AddDays(-1)))

		s.NextBillingDate = types.BillingDay{}
		assert.False(t, s.IsBillingDue(asOf), "manually billed subscriptions are never due")
	})

	t.Run("IsGraceLapsed", func(t *testing.T) {
		s := &Subscription{
			SubscriptionStatus: types.SubscriptionStatusPastDue,
			GracePeriodUntil:   asOf,
		}
		assert.False(t, s.IsGraceLapsed(asOf), "the last grace day is still inside the window")
		assert.True(t, s.IsGraceLapsed(asOf.AddDays(1)))
	})

	t.Run("ClearPaymentFailure resets the retry machine", func(t *testing.T) {
		s := &Subscription{
			RetryCount:          3,
			GracePeriodUntil:    asOf,
			LastPaymentError:    "card declined",
			LastPaymentFailedAt: asOf,
		}
		s.ClearPaymentFailure()
		assert.Zero(t, s.RetryCount)
		assert.True(t, s.GracePeriodUntil.IsZero())
		assert.Empty(t, s.LastPaymentError)
		assert.True(t, s.LastPaymentFailedAt.IsZero())
	})
}
