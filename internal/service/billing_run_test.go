package service

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackbill/stackbill/internal/cache"
	"github.com/stackbill/stackbill/internal/config"
	"github.com/stackbill/stackbill/internal/domain/payment"
	"github.com/stackbill/stackbill/internal/domain/subscription"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/logger"
	"github.com/stackbill/stackbill/internal/testutil"
	"github.com/stackbill/stackbill/internal/types"
)

type testEnv struct {
	subs     *testutil.InMemorySubscriptionStore
	history  *testutil.InMemoryHistoryStore
	payments *testutil.InMemoryPaymentStore
	idem     *testutil.InMemoryIdempotencyStore
	gateway  *testutil.FakeGateway
	events   *testutil.CapturePublisher
	emails   *testutil.CaptureEmailSender
	svc      BillingRunService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		subs:     testutil.NewInMemorySubscriptionStore(),
		history:  testutil.NewInMemoryHistoryStore(),
		payments: testutil.NewInMemoryPaymentStore(),
		idem:     testutil.NewInMemoryIdempotencyStore(),
		gateway:  testutil.NewFakeGateway(),
		events:   testutil.NewCapturePublisher(),
		emails:   testutil.NewCaptureEmailSender(),
	}

	params := ServiceParams{
		Logger:           logger.GetLogger(),
		Config:           config.GetDefaultConfig(),
		TxRunner:         NopTxRunner{},
		SubRepo:          env.subs,
		HistoryRepo:      env.history,
		PaymentRepo:      env.payments,
		IdempotencyStore: env.idem,
		Gateway:          env.gateway,
		Publisher:        env.events,
		EmailSender:      env.emails,
		Cache:            cache.NewInMemoryCache(),
	}
	env.svc = NewBillingRunService(params, NewPricingService(params))
	return env
}

func day(t *testing.T, s string) types.BillingDay {
	t.Helper()
	d, err := types.ParseBillingDay(s)
	require.NoError(t, err)
	return d
}

func activeSub(tenantID string, next types.BillingDay) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		SubscriptionStatus: types.SubscriptionStatusActive,
		Plan:               types.PlanTypeStandard,
		Amount:             99000,
		BaseAmount:         99000,
		BillingKeyRef:      "bk_" + tenantID,
		CurrentPeriodStart: next.AddMonths(-1),
		CurrentPeriodEnd:   next.AddDays(-1),
		NextBillingDate:    next,
		BaseModel:          types.GetDefaultBaseModel(tenantID),
	}
}

func trialSub(tenantID string, periodEnd types.BillingDay) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		SubscriptionStatus: types.SubscriptionStatusTrial,
		Plan:               types.PlanTypeBasic,
		BillingKeyRef:      "bk_" + tenantID,
		CurrentPeriodStart: periodEnd.AddDays(-13),
		CurrentPeriodEnd:   periodEnd,
		BaseModel:          types.GetDefaultBaseModel(tenantID),
	}
}

func (env *testEnv) run(t *testing.T, asOf types.BillingDay) {
	t.Helper()
	_, err := env.svc.Run(context.Background(), asOf)
	require.NoError(t, err)
}

func (env *testEnv) get(t *testing.T, id string) *subscription.Subscription {
	t.Helper()
	sub, err := env.subs.Get(context.Background(), id)
	require.NoError(t, err)
	return sub
}

func TestTrialResolution(t *testing.T) {
	t.Run("converts due trial with a charge", func(t *testing.T) {
		env := newTestEnv(t)
		asOf := day(t, "2024-03-01")

		sub := trialSub("tnt_1", asOf)
		sub.PendingPlan = lo.ToPtr(types.PlanTypeStandard)
		sub.PendingChangeAt = asOf
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeTrialConvert)
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, asOf)

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusActive, got.SubscriptionStatus)
		assert.Equal(t, types.PlanTypeStandard, got.Plan)
		assert.Equal(t, int64(99000), got.Amount)
		assert.Equal(t, day(t, "2024-03-01"), got.CurrentPeriodStart)
		assert.Equal(t, day(t, "2024-04-01"), got.NextBillingDate)
		assert.Equal(t, day(t, "2024-03-31"), got.CurrentPeriodEnd)
		assert.Nil(t, got.PendingPlan)

		payments := env.payments.All()
		require.Len(t, payments, 1)
		assert.Equal(t, types.PaymentTypeTrialConvert, payments[0].PaymentType)
		assert.Equal(t, types.PaymentStatusDone, payments[0].PaymentStatus)

		records := env.history.All()
		require.Len(t, records, 1)
		assert.Equal(t, types.ChangeTypeNew, records[0].ChangeType)

		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventTrialConverted)
	})

	t.Run("second run on the same day charges nothing", func(t *testing.T) {
		env := newTestEnv(t)
		asOf := day(t, "2024-03-01")

		sub := trialSub("tnt_1", asOf)
		sub.PendingPlan = lo.ToPtr(types.PlanTypeStandard)
		sub.PendingChangeAt = asOf
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeTrialConvert)
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, asOf)
		env.run(t, asOf)

		assert.Equal(t, 1, env.gateway.ChargeCount("tnt_1"))
		assert.Len(t, env.payments.All(), 1)
	})

	t.Run("failed conversion charge leaves the trial untouched", func(t *testing.T) {
		env := newTestEnv(t)
		asOf := day(t, "2024-03-01")

		sub := trialSub("tnt_1", asOf)
		sub.PendingPlan = lo.ToPtr(types.PlanTypeStandard)
		sub.PendingChangeAt = asOf
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeTrialConvert)
		require.NoError(t, env.subs.Create(context.Background(), sub))
		env.gateway.FailTenant("tnt_1", "card declined")

		env.run(t, asOf)

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusTrial, got.SubscriptionStatus)
		assert.NotNil(t, got.PendingPlan)
		assert.Equal(t, 0, got.RetryCount)
		assert.Empty(t, env.payments.All())
		assert.Empty(t, env.history.All())
	})

	t.Run("expires lapsed trial without charging", func(t *testing.T) {
		env := newTestEnv(t)

		sub := trialSub("tnt_1", day(t, "2024-02-29"))
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-01"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusExpired, got.SubscriptionStatus)
		assert.True(t, got.NextBillingDate.IsZero())
		assert.Equal(t, 0, env.gateway.ChargeCount("tnt_1"))

		records := env.history.All()
		require.Len(t, records, 1)
		assert.Equal(t, types.ChangeTypeExpire, records[0].ChangeType)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventTrialExpired)
	})

	t.Run("trial with pending change is never expired", func(t *testing.T) {
		env := newTestEnv(t)

		// Period already over, but the conversion is scheduled for later.
		sub := trialSub("tnt_1", day(t, "2024-02-29"))
		sub.PendingPlan = lo.ToPtr(types.PlanTypeBasic)
		sub.PendingChangeAt = day(t, "2024-03-05")
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeTrialConvert)
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-01"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusTrial, got.SubscriptionStatus)
	})
}

func TestCardExpiryAlerts(t *testing.T) {
	t.Run("fires at exactly 30 and 7 days before the last valid day", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-05-01"))
		sub.CardExpiryMonth = 3
		sub.CardExpiryYear = 2024
		sub.CardLast4 = "4242"
		sub.BillingEmail = "billing@tenant.example"
		require.NoError(t, env.subs.Create(context.Background(), sub))

		// Card is valid through 2024-03-31.
		env.run(t, day(t, "2024-03-01"))
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventCardExpiry30D)

		env.run(t, day(t, "2024-03-24"))
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventCardExpiry7D)

		alerts := env.emails.Alerts()
		require.Len(t, alerts, 2)
		assert.Equal(t, 30, alerts[0].DaysLeft)
		assert.Equal(t, 7, alerts[1].DaysLeft)
		assert.Equal(t, "4242", alerts[0].Last4)
	})

	t.Run("quiet outside the alert windows", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-05-01"))
		sub.CardExpiryMonth = 3
		sub.CardExpiryYear = 2024
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-02"))

		assert.NotContains(t, env.events.EventNames("tnt_1"), types.WebhookEventCardExpiry30D)
		assert.NotContains(t, env.events.EventNames("tnt_1"), types.WebhookEventCardExpiry7D)
		assert.Empty(t, env.emails.Alerts())
	})
}

func TestScheduledPlanChanges(t *testing.T) {
	scheduleChange(t, "classifies a price increase as upgrade", types.PlanTypeBasic, 49000, types.PlanTypeStandard, types.ChangeTypeUpgrade)
	scheduleChange(t, "classifies a price decrease as downgrade", types.PlanTypeStandard, 99000, types.PlanTypeBasic, types.ChangeTypeDowngrade)

	t.Run("no money moves on a plan change", func(t *testing.T) {
		env := newTestEnv(t)
		asOf := day(t, "2024-03-01")

		sub := activeSub("tnt_1", day(t, "2024-04-01"))
		sub.PendingPlan = lo.ToPtr(types.PlanTypeBasic)
		sub.PendingChangeAt = asOf
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeScheduled)
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, asOf)

		assert.Equal(t, 0, env.gateway.ChargeCount("tnt_1"))
		got := env.get(t, sub.ID)
		assert.Equal(t, types.PlanTypeBasic, got.Plan)
		assert.Equal(t, lo.ToPtr(types.PlanTypeStandard), got.PreviousPlan)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventPlanChangeApplied)
	})

	t.Run("enterprise destination leaves the automated cycle", func(t *testing.T) {
		env := newTestEnv(t)
		asOf := day(t, "2024-03-01")

		sub := activeSub("tnt_1", day(t, "2024-04-01"))
		sub.PendingPlan = lo.ToPtr(types.PlanTypeEnterprise)
		sub.PendingAmount = lo.ToPtr(int64(500000))
		sub.PendingChangeAt = asOf
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeScheduled)
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, asOf)

		got := env.get(t, sub.ID)
		assert.Equal(t, types.PlanTypeEnterprise, got.Plan)
		assert.True(t, got.NextBillingDate.IsZero())
	})
}

func scheduleChange(t *testing.T, name string, fromPlan types.PlanType, fromAmount int64, toPlan types.PlanType, want types.ChangeType) {
	t.Run(name, func(t *testing.T) {
		env := newTestEnv(t)
		asOf := day(t, "2024-03-01")

		sub := activeSub("tnt_1", day(t, "2024-04-01"))
		sub.Plan = fromPlan
		sub.Amount = fromAmount
		sub.BaseAmount = fromAmount
		sub.PendingPlan = lo.ToPtr(toPlan)
		sub.PendingChangeAt = asOf
		sub.PendingMode = lo.ToPtr(types.PendingChangeModeScheduled)
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, asOf)

		records := env.history.All()
		require.Len(t, records, 1)
		assert.Equal(t, want, records[0].ChangeType)
	})
}

func TestCancellations(t *testing.T) {
	t.Run("finalizes once the paid period ends", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		sub.SubscriptionStatus = types.SubscriptionStatusPendingCancel
		sub.CurrentPeriodEnd = day(t, "2024-03-01")
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-02-29"))
		assert.Equal(t, types.SubscriptionStatusPendingCancel, env.get(t, sub.ID).SubscriptionStatus)

		env.run(t, day(t, "2024-03-01"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusCanceled, got.SubscriptionStatus)
		assert.True(t, got.NextBillingDate.IsZero())
		assert.Equal(t, 0, env.gateway.ChargeCount("tnt_1"))
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventSubscriptionCanceled)
	})
}

func TestRecurringCharges(t *testing.T) {
	t.Run("successful charge advances the period without shifting the anchor", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-01"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusActive, got.SubscriptionStatus)
		assert.Equal(t, day(t, "2024-03-01"), got.CurrentPeriodStart)
		assert.Equal(t, day(t, "2024-04-01"), got.NextBillingDate)
		assert.Equal(t, day(t, "2024-03-31"), got.CurrentPeriodEnd)
		assert.Equal(t, 0, got.RetryCount)

		payments := env.payments.All()
		require.Len(t, payments, 1)
		assert.Equal(t, types.PaymentTypeAuto, payments[0].PaymentType)
		assert.Equal(t, int64(99000), payments[0].Amount)

		records := env.history.All()
		require.Len(t, records, 1)
		assert.Equal(t, types.ChangeTypeRenew, records[0].ChangeType)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventPaymentSuccess)
	})

	t.Run("double run on the same day produces exactly one payment", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-01"))
		env.run(t, day(t, "2024-03-01"))

		assert.Equal(t, 1, env.gateway.ChargeCount("tnt_1"))
		assert.Len(t, env.payments.All(), 1)
	})

	t.Run("state write failure after the charge never re-charges", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), sub))
		env.subs.FailUpdateFor(sub.ID, ierr.NewError("connection reset").Mark(ierr.ErrDatabase))

		summary, err := env.svc.Run(context.Background(), day(t, "2024-03-01"))
		require.NoError(t, err)
		assert.Equal(t, 1, summary.TotalFailed())

		// The charge landed but the subscription kept its old state.
		assert.Equal(t, 1, env.gateway.ChargeCount("tnt_1"))
		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusActive, got.SubscriptionStatus)
		assert.Equal(t, day(t, "2024-03-01"), got.NextBillingDate)
		assert.Equal(t, day(t, "2024-02-01"), got.CurrentPeriodStart)

		// The key recorded at charge time blocks the same-day rerun even
		// though the subscription still looks due.
		env.subs.FailUpdateFor(sub.ID, nil)
		env.run(t, day(t, "2024-03-01"))

		assert.Equal(t, 1, env.gateway.ChargeCount("tnt_1"))
		assert.Equal(t, day(t, "2024-03-01"), env.get(t, sub.ID).NextBillingDate)
	})

	t.Run("idempotency store error fails closed", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), sub))
		env.idem.ExistsErr = ierr.NewError("store down").Mark(ierr.ErrDatabase)

		env.run(t, day(t, "2024-03-01"))

		assert.Equal(t, 0, env.gateway.ChargeCount("tnt_1"))
		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusActive, got.SubscriptionStatus)
		assert.Equal(t, day(t, "2024-03-01"), got.NextBillingDate)
	})

	t.Run("one tenant's failure never touches another", func(t *testing.T) {
		env := newTestEnv(t)

		bad := activeSub("tnt_bad", day(t, "2024-03-01"))
		good := activeSub("tnt_good", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), bad))
		require.NoError(t, env.subs.Create(context.Background(), good))
		env.gateway.FailTenant("tnt_bad", "insufficient funds")

		env.run(t, day(t, "2024-03-01"))

		assert.Equal(t, types.SubscriptionStatusPastDue, env.get(t, bad.ID).SubscriptionStatus)
		gotGood := env.get(t, good.ID)
		assert.Equal(t, types.SubscriptionStatusActive, gotGood.SubscriptionStatus)
		assert.Equal(t, day(t, "2024-04-01"), gotGood.NextBillingDate)
	})

	t.Run("price lock keeps the discounted amount until it lapses", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		sub.Amount = 79000
		sub.BaseAmount = 99000
		sub.PriceLockedUntil = day(t, "2024-03-31")
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-01"))

		payments := env.payments.All()
		require.Len(t, payments, 1)
		assert.Equal(t, int64(79000), payments[0].Amount)

		// The lock lapses before the next cycle; the charge reverts.
		env.run(t, day(t, "2024-04-01"))

		payments, err := env.payments.ListByTenant(context.Background(), "tnt_1")
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, int64(99000), payments[0].Amount)
	})
}

func TestPaymentFailureLadder(t *testing.T) {
	env := newTestEnv(t)

	sub := activeSub("tnt_1", day(t, "2024-03-01"))
	require.NoError(t, env.subs.Create(context.Background(), sub))
	env.gateway.FailTenant("tnt_1", "card declined by issuer")

	t.Run("first failure anchors the ladder", func(t *testing.T) {
		env.run(t, day(t, "2024-03-01"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusPastDue, got.SubscriptionStatus)
		assert.Equal(t, 1, got.RetryCount)
		assert.Equal(t, day(t, "2024-03-07"), got.GracePeriodUntil)
		assert.Equal(t, day(t, "2024-03-01"), got.LastPaymentFailedAt)
		assert.Equal(t, "card declined by issuer", got.LastPaymentError)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventPaymentRetry1)
	})

	t.Run("retries land on the next two days and stop", func(t *testing.T) {
		env.run(t, day(t, "2024-03-02"))
		got := env.get(t, sub.ID)
		assert.Equal(t, 2, got.RetryCount)
		assert.Equal(t, day(t, "2024-03-07"), got.GracePeriodUntil)
		assert.Equal(t, day(t, "2024-03-01"), got.LastPaymentFailedAt)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventPaymentRetry2)

		env.run(t, day(t, "2024-03-03"))
		got = env.get(t, sub.ID)
		assert.Equal(t, 3, got.RetryCount)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventPaymentFailedGrace)

		// The cap is reached: further runs within grace charge nothing.
		for _, d := range []string{"2024-03-04", "2024-03-05", "2024-03-06", "2024-03-07"} {
			env.run(t, day(t, d))
		}
		assert.Equal(t, 3, env.gateway.ChargeCount("tnt_1"))
		assert.Equal(t, types.SubscriptionStatusPastDue, env.get(t, sub.ID).SubscriptionStatus)
	})

	t.Run("suspension lands the day after grace ends", func(t *testing.T) {
		env.run(t, day(t, "2024-03-08"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusSuspended, got.SubscriptionStatus)
		assert.Contains(t, env.events.EventNames("tnt_1"), types.WebhookEventSubscriptionSuspended)

		// Suspended is terminal for automation.
		env.run(t, day(t, "2024-04-01"))
		assert.Equal(t, 3, env.gateway.ChargeCount("tnt_1"))
	})
}

func TestRetryRecovery(t *testing.T) {
	t.Run("successful retry restores the subscription", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), sub))
		env.gateway.FailTenant("tnt_1", "temporary gateway outage")

		env.run(t, day(t, "2024-03-01"))
		require.Equal(t, types.SubscriptionStatusPastDue, env.get(t, sub.ID).SubscriptionStatus)

		env.gateway.FailWith = map[string]error{}
		env.run(t, day(t, "2024-03-02"))

		got := env.get(t, sub.ID)
		assert.Equal(t, types.SubscriptionStatusActive, got.SubscriptionStatus)
		assert.Equal(t, 0, got.RetryCount)
		assert.True(t, got.GracePeriodUntil.IsZero())
		assert.Empty(t, got.LastPaymentError)
		// The period anchors on the missed billing date, not the retry day.
		assert.Equal(t, day(t, "2024-03-01"), got.CurrentPeriodStart)
		assert.Equal(t, day(t, "2024-04-01"), got.NextBillingDate)

		payments, err := env.payments.ListByTenant(context.Background(), "tnt_1")
		require.NoError(t, err)
		done := lo.Filter(payments, func(p *payment.Payment, _ int) bool {
			return p.PaymentStatus == types.PaymentStatusDone
		})
		require.Len(t, done, 1)
		assert.Equal(t, types.PaymentTypeRetry, done[0].PaymentType)
	})
}

func TestManuallyBilledPlans(t *testing.T) {
	t.Run("enterprise subscriptions are never charged", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_ent", day(t, "2024-03-01"))
		sub.Plan = types.PlanTypeEnterprise
		sub.NextBillingDate = day(t, "2024-03-01")
		require.NoError(t, env.subs.Create(context.Background(), sub))

		env.run(t, day(t, "2024-03-01"))

		assert.Equal(t, 0, env.gateway.ChargeCount("tnt_ent"))
		assert.Empty(t, env.payments.All())
	})
}

func TestRunSummary(t *testing.T) {
	t.Run("reports all six phases in order", func(t *testing.T) {
		env := newTestEnv(t)

		summary, err := env.svc.Run(context.Background(), day(t, "2024-03-01"))
		require.NoError(t, err)

		require.Len(t, summary.Phases, 6)
		assert.Equal(t, PhaseTrialResolution, summary.Phases[0].Phase)
		assert.Equal(t, PhaseCardExpiryAlerts, summary.Phases[1].Phase)
		assert.Equal(t, PhasePlanChanges, summary.Phases[2].Phase)
		assert.Equal(t, PhaseCancellations, summary.Phases[3].Phase)
		assert.Equal(t, PhaseGraceExpiry, summary.Phases[4].Phase)
		assert.Equal(t, PhaseRecurringCharges, summary.Phases[5].Phase)
		assert.NotEmpty(t, summary.RunID)
		assert.False(t, summary.CompletedAt.Before(summary.StartedAt))
	})

	t.Run("failures show up in the phase counters", func(t *testing.T) {
		env := newTestEnv(t)

		sub := activeSub("tnt_1", day(t, "2024-03-01"))
		require.NoError(t, env.subs.Create(context.Background(), sub))
		env.gateway.FailTenant("tnt_1", "card declined")

		summary, err := env.svc.Run(context.Background(), day(t, "2024-03-01"))
		require.NoError(t, err)

		charges := summary.Phases[5]
		assert.Equal(t, 1, charges.Processed)
		assert.Equal(t, 1, charges.Failed)
		assert.Equal(t, 1, summary.TotalFailed())
	})
}

func TestPeriodContinuityAcrossMonths(t *testing.T) {
	env := newTestEnv(t)

	sub := activeSub("tnt_1", day(t, "2024-01-31"))
	require.NoError(t, env.subs.Create(context.Background(), sub))

	env.run(t, day(t, "2024-01-31"))

	got := env.get(t, sub.ID)
	// Jan 31 + 1 month normalizes to Mar 2 in a leap year.
	assert.Equal(t, day(t, "2024-03-02"), got.NextBillingDate)
	assert.Equal(t, day(t, "2024-03-01"), got.CurrentPeriodEnd)
	assert.Equal(t, day(t, "2024-01-31"), got.CurrentPeriodStart)
}
