package service

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/stackbill/stackbill/internal/api/dto"
	"github.com/stackbill/stackbill/internal/domain/payment"
	"github.com/stackbill/stackbill/internal/domain/subscription"
	"github.com/stackbill/stackbill/internal/email"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/gateway"
	"github.com/stackbill/stackbill/internal/idempotency"
	"github.com/stackbill/stackbill/internal/types"
	"github.com/stackbill/stackbill/internal/webhook"
)

// Phase names as they appear in the run summary.
const (
	PhaseTrialResolution  = "trial_resolution"
	PhaseCardExpiryAlerts = "card_expiry_alerts"
	PhasePlanChanges      = "scheduled_plan_changes"
	PhaseCancellations    = "cancellations"
	PhaseGraceExpiry      = "grace_expiry"
	PhaseRecurringCharges = "recurring_charges"
)

const (
	actionTrialConvert    = "trial_convert"
	actionTrialExpire     = "trial_expire"
	actionCardExpiryAlert = "card_expiry_alert"
	actionPlanChange      = "plan_change"
	actionCancel          = "cancel"
	actionSuspend         = "suspend"
	actionCharge          = "charge"
	actionRetryCharge     = "retry_charge"
)

// BillingRunService executes the daily billing run: six phases in fixed
// order, each scanning its candidate set and advancing subscriptions one at
// a time. A failure on one subscription never touches another.
type BillingRunService interface {
	Run(ctx context.Context, asOf types.BillingDay) (*dto.BillingRunSummary, error)
}

type billingRunService struct {
	ServiceParams
	pricing PricingService
}

// NewBillingRunService creates the daily run orchestrator.
func NewBillingRunService(params ServiceParams, pricing PricingService) BillingRunService {
	return &billingRunService{ServiceParams: params, pricing: pricing}
}

// Run executes all phases for the given day. A zero asOf anchors to today in
// the configured billing timezone. Only phase-setup failures (a candidate
// scan erroring out) abort the run; per-subscription errors are captured in
// the summary.
func (s *billingRunService) Run(ctx context.Context, asOf types.BillingDay) (*dto.BillingRunSummary, error) {
	if asOf.IsZero() {
		asOf = types.BillingDayOf(time.Now(), s.Config.BillingLocation())
	}

	summary := &dto.BillingRunSummary{
		RunID:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RUN),
		AsOf:      asOf,
		StartedAt: time.Now().UTC(),
	}

	s.Logger.Infow("starting daily billing run", "run_id", summary.RunID, "as_of", asOf.String())

	phases := []func(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error){
		s.runTrialResolution,
		s.runCardExpiryAlerts,
		s.runScheduledPlanChanges,
		s.runCancellations,
		s.runGraceExpiry,
		s.runRecurringCharges,
	}

	for _, phase := range phases {
		ps, err := phase(ctx, asOf)
		if err != nil {
			s.Logger.Errorw("billing run aborted",
				"run_id", summary.RunID,
				"as_of", asOf.String(),
				"error", err)
			return nil, err
		}
		summary.Phases = append(summary.Phases, *ps)
	}

	summary.CompletedAt = time.Now().UTC()
	s.Logger.Infow("daily billing run completed",
		"run_id", summary.RunID,
		"as_of", asOf.String(),
		"failed", summary.TotalFailed(),
		"duration", summary.CompletedAt.Sub(summary.StartedAt).String())
	return summary, nil
}

// Phase 1: resolve trials. A due pending plan converts with a charge; a
// lapsed trial without one expires. Expiry never charges.
func (s *billingRunService) runTrialResolution(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error) {
	subs, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusTrial)
	if err != nil {
		return nil, err
	}

	return s.processPhase(ctx, PhaseTrialResolution, subs, func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
		switch {
		case sub.IsPendingChangeDue(asOf):
			return s.convertTrial(ctx, sub, asOf)
		case sub.IsTrialLapsed(asOf):
			return s.expireTrial(ctx, sub)
		default:
			return skipped(sub, actionTrialConvert, "not due")
		}
	}), nil
}

func (s *billingRunService) convertTrial(ctx context.Context, sub *subscription.Subscription, asOf types.BillingDay) dto.SubscriptionResult {
	if !sub.HasBillingCredential() {
		s.Logger.Warnw("trial conversion due but no billing credential on file",
			"tenant_id", sub.TenantID,
			"subscription_id", sub.ID)
		return skipped(sub, actionTrialConvert, "no billing credential")
	}

	key := idempotency.DailyChargeKey(idempotency.ScopeTrialConvert, sub.TenantID, asOf)
	exists, err := s.IdempotencyStore.Exists(ctx, key)
	if err != nil {
		// Fail closed: an unknown key state must never turn into a charge.
		s.Logger.Errorw("idempotency check failed, skipping tenant",
			"tenant_id", sub.TenantID,
			"error", err)
		return skipped(sub, actionTrialConvert, "idempotency check failed")
	}
	if exists {
		return skipped(sub, actionTrialConvert, "already processed today")
	}

	targetPlan := *sub.PendingPlan
	plan, err := s.pricing.GetPlan(ctx, targetPlan)
	if err != nil {
		return failed(sub, actionTrialConvert, err)
	}

	amount := plan.ListAmount()
	if sub.PendingAmount != nil {
		amount = *sub.PendingAmount
	}

	var pay *payment.Payment
	if !plan.ManuallyBilled && amount > 0 {
		resp, err := s.Gateway.Charge(ctx, &gateway.ChargeRequest{
			BillingKeyRef: sub.BillingKeyRef,
			PayerID:       sub.TenantID,
			Amount:        amount,
			OrderID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER),
			OrderName:     fmt.Sprintf("%s plan subscription", targetPlan),
		})
		if err != nil {
			// Leave the subscription in trial; the next run retries.
			s.Logger.Errorw("trial conversion charge failed",
				"tenant_id", sub.TenantID,
				"error", err)
			return failed(sub, actionTrialConvert, err)
		}
		pay = newPaymentFromCharge(sub, resp, types.PaymentTypeTrialConvert, key)

		// The key lands right after the charge, before any state write, so
		// a crash mid-update cannot re-charge on the rerun.
		if err := s.IdempotencyStore.Record(ctx, key, pay.ID); err != nil && !ierr.IsAlreadyExists(err) {
			s.Logger.Errorw("failed to record idempotency key after charge",
				"tenant_id", sub.TenantID,
				"payment_id", pay.ID,
				"error", err)
		}
	}

	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.Plan = targetPlan
	sub.Amount = amount
	sub.BaseAmount = plan.ListAmount()
	sub.CurrentPeriodStart = asOf
	if plan.ManuallyBilled {
		sub.NextBillingDate = types.BillingDay{}
		sub.CurrentPeriodEnd = asOf.AddMonths(1).AddDays(-1)
	} else {
		sub.NextBillingDate = asOf.AddMonths(1)
		sub.CurrentPeriodEnd = sub.NextBillingDate.AddDays(-1)
	}
	sub.ClearPendingChange()
	sub.ClearPaymentFailure()

	err = s.TxRunner.WithTx(ctx, func(ctx context.Context) error {
		if pay != nil {
			if err := s.PaymentRepo.Create(ctx, pay); err != nil {
				return err
			}
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.HistoryRepo.Append(ctx,
			subscription.NewHistoryRecord(sub, types.ChangeTypeNew, "trial converted"))
	})
	if err != nil {
		s.Logger.Errorw("failed to persist trial conversion, idempotency key blocks a same-day re-charge",
			"tenant_id", sub.TenantID,
			"error", err)
		return failed(sub, actionTrialConvert, err)
	}

	s.notify(ctx, types.WebhookEventTrialConverted, sub, map[string]interface{}{
		"plan":   targetPlan,
		"amount": amount,
	})
	return succeeded(sub, actionTrialConvert)
}

func (s *billingRunService) expireTrial(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
	sub.SubscriptionStatus = types.SubscriptionStatusExpired
	sub.NextBillingDate = types.BillingDay{}

	err := s.TxRunner.WithTx(ctx, func(ctx context.Context) error {
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.HistoryRepo.Append(ctx,
			subscription.NewHistoryRecord(sub, types.ChangeTypeExpire, "trial lapsed without conversion"))
	})
	if err != nil {
		return failed(sub, actionTrialExpire, err)
	}

	s.notify(ctx, types.WebhookEventTrialExpired, sub, nil)
	return succeeded(sub, actionTrialExpire)
}

// Phase 2: card-expiry alerts, fired at exactly 30 and 7 days before the
// card's last valid day. Read-only: no subscription state changes here.
func (s *billingRunService) runCardExpiryAlerts(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error) {
	subs, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}

	withCards := lo.Filter(subs, func(sub *subscription.Subscription, _ int) bool {
		return sub.CardExpiryMonth >= 1 && sub.CardExpiryMonth <= 12 && sub.CardExpiryYear > 0
	})

	return s.processPhase(ctx, PhaseCardExpiryAlerts, withCards, func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
		lastValid := types.LastDayOfMonth(sub.CardExpiryYear, time.Month(sub.CardExpiryMonth))
		daysLeft := lastValid.DaysSince(asOf)

		var event types.WebhookEventName
		switch daysLeft {
		case 30:
			event = types.WebhookEventCardExpiry30D
		case 7:
			event = types.WebhookEventCardExpiry7D
		default:
			return skipped(sub, actionCardExpiryAlert, "outside alert window")
		}

		s.notify(ctx, event, sub, map[string]interface{}{
			"days_left": daysLeft,
			"expiry":    fmt.Sprintf("%02d/%d", sub.CardExpiryMonth, sub.CardExpiryYear),
		})

		if err := s.EmailSender.SendCardExpiryAlert(ctx, email.CardExpiryAlertRequest{
			ToAddress:   sub.BillingEmail,
			TenantID:    sub.TenantID,
			Last4:       sub.CardLast4,
			ExpiryMonth: sub.CardExpiryMonth,
			ExpiryYear:  sub.CardExpiryYear,
			DaysLeft:    daysLeft,
		}); err != nil {
			s.Logger.Warnw("card expiry email failed",
				"tenant_id", sub.TenantID,
				"error", err)
		}
		return succeeded(sub, actionCardExpiryAlert)
	}), nil
}

// Phase 3: apply scheduled plan changes that have reached their effective
// date. No money moves; the new price bills on the next cycle.
func (s *billingRunService) runScheduledPlanChanges(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error) {
	subs, err := s.SubRepo.ListScheduledChanges(ctx, asOf)
	if err != nil {
		return nil, err
	}

	return s.processPhase(ctx, PhasePlanChanges, subs, func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
		switch sub.SubscriptionStatus {
		case types.SubscriptionStatusCanceled,
			types.SubscriptionStatusExpired,
			types.SubscriptionStatusSuspended:
			return skipped(sub, actionPlanChange, "terminal status")
		}
		if !sub.HasPendingChange() {
			return skipped(sub, actionPlanChange, "no pending change")
		}

		targetPlan := *sub.PendingPlan
		plan, err := s.pricing.GetPlan(ctx, targetPlan)
		if err != nil {
			return failed(sub, actionPlanChange, err)
		}

		newAmount := plan.ListAmount()
		if sub.PendingAmount != nil {
			newAmount = *sub.PendingAmount
		}

		// Equal amounts classify as an upgrade.
		changeType := types.ChangeTypeUpgrade
		if newAmount < sub.Amount {
			changeType = types.ChangeTypeDowngrade
		}

		fromPlan := sub.Plan
		sub.PreviousPlan = lo.ToPtr(sub.Plan)
		sub.PreviousAmount = lo.ToPtr(sub.Amount)
		sub.Plan = targetPlan
		sub.Amount = newAmount
		sub.BaseAmount = plan.ListAmount()
		if plan.ManuallyBilled {
			sub.NextBillingDate = types.BillingDay{}
		}
		sub.ClearPendingChange()

		err = s.TxRunner.WithTx(ctx, func(ctx context.Context) error {
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			return s.HistoryRepo.Append(ctx,
				subscription.NewHistoryRecord(sub, changeType, "scheduled plan change applied"))
		})
		if err != nil {
			return failed(sub, actionPlanChange, err)
		}

		s.notify(ctx, types.WebhookEventPlanChangeApplied, sub, map[string]interface{}{
			"from_plan": fromPlan,
			"to_plan":   targetPlan,
			"amount":    newAmount,
		})
		return succeeded(sub, actionPlanChange)
	}), nil
}

// Phase 4: finalize scheduled cancellations whose paid period has ended.
func (s *billingRunService) runCancellations(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error) {
	subs, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusPendingCancel)
	if err != nil {
		return nil, err
	}

	return s.processPhase(ctx, PhaseCancellations, subs, func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
		if sub.CurrentPeriodEnd.IsZero() || sub.CurrentPeriodEnd.After(asOf) {
			return skipped(sub, actionCancel, "period still running")
		}

		sub.SubscriptionStatus = types.SubscriptionStatusCanceled
		sub.NextBillingDate = types.BillingDay{}

		err := s.TxRunner.WithTx(ctx, func(ctx context.Context) error {
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
			return s.HistoryRepo.Append(ctx,
				subscription.NewHistoryRecord(sub, types.ChangeTypeCancel, "scheduled cancellation finalized"))
		})
		if err != nil {
			return failed(sub, actionCancel, err)
		}

		s.notify(ctx, types.WebhookEventSubscriptionCanceled, sub, nil)
		return succeeded(sub, actionCancel)
	}), nil
}

// Phase 5: suspend past-due subscriptions whose grace window has fully
// elapsed. Suspension is terminal for automation; reactivation is a manual
// path.
func (s *billingRunService) runGraceExpiry(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error) {
	subs, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusPastDue)
	if err != nil {
		return nil, err
	}

	return s.processPhase(ctx, PhaseGraceExpiry, subs, func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
		if !sub.IsGraceLapsed(asOf) {
			return skipped(sub, actionSuspend, "grace period still open")
		}

		sub.SubscriptionStatus = types.SubscriptionStatusSuspended
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return failed(sub, actionSuspend, err)
		}

		s.notify(ctx, types.WebhookEventSubscriptionSuspended, sub, map[string]interface{}{
			"grace_period_until": sub.GracePeriodUntil.String(),
			"last_error":         sub.LastPaymentError,
		})
		return succeeded(sub, actionSuspend)
	}), nil
}

// Phase 6: recurring charges for active subscriptions that are due, plus
// retry attempts for past-due ones whose ladder day has arrived.
func (s *billingRunService) runRecurringCharges(ctx context.Context, asOf types.BillingDay) (*dto.PhaseSummary, error) {
	due, err := s.SubRepo.ListDueForBilling(ctx, asOf)
	if err != nil {
		return nil, err
	}
	pastDue, err := s.SubRepo.ListByStatus(ctx, types.SubscriptionStatusPastDue)
	if err != nil {
		return nil, err
	}

	retries := lo.Filter(pastDue, func(sub *subscription.Subscription, _ int) bool {
		return sub.IsRetryDue(asOf, s.Config.Billing.MaxRetries)
	})

	candidates := append(due, retries...)
	return s.processPhase(ctx, PhaseRecurringCharges, candidates, func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult {
		return s.chargeSubscription(ctx, sub, asOf)
	}), nil
}

func (s *billingRunService) chargeSubscription(ctx context.Context, sub *subscription.Subscription, asOf types.BillingDay) dto.SubscriptionResult {
	action := actionCharge
	payType := types.PaymentTypeAuto
	if sub.SubscriptionStatus == types.SubscriptionStatusPastDue {
		action = actionRetryCharge
		payType = types.PaymentTypeRetry
	}

	if sub.Plan.IsManuallyBilled() {
		return skipped(sub, action, "manually billed plan")
	}

	key := idempotency.DailyChargeKey(idempotency.ScopeAutoBilling, sub.TenantID, asOf)
	exists, err := s.IdempotencyStore.Exists(ctx, key)
	if err != nil {
		// Fail closed.
		s.Logger.Errorw("idempotency check failed, skipping tenant",
			"tenant_id", sub.TenantID,
			"error", err)
		return skipped(sub, action, "idempotency check failed")
	}
	if exists {
		return skipped(sub, action, "already charged today")
	}

	amount := s.pricing.EffectiveAmount(ctx, sub, asOf)
	if amount <= 0 {
		return skipped(sub, action, "zero charge amount")
	}

	if !sub.HasBillingCredential() {
		reason := ierr.NewError("no billing credential on file").Mark(ierr.ErrGateway)
		return s.recordChargeFailure(ctx, sub, asOf, action, payType, "", 0, reason)
	}

	orderID := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER)
	resp, err := s.Gateway.Charge(ctx, &gateway.ChargeRequest{
		BillingKeyRef: sub.BillingKeyRef,
		PayerID:       sub.TenantID,
		Amount:        amount,
		OrderID:       orderID,
		OrderName:     fmt.Sprintf("%s plan renewal", sub.Plan),
	})
	if err != nil {
		return s.recordChargeFailure(ctx, sub, asOf, action, payType, orderID, amount, err)
	}

	return s.recordChargeSuccess(ctx, sub, action, payType, key, resp, amount)
}

func (s *billingRunService) recordChargeSuccess(
	ctx context.Context,
	sub *subscription.Subscription,
	action string,
	payType types.PaymentType,
	key string,
	resp *gateway.ChargeResponse,
	amount int64,
) dto.SubscriptionResult {
	pay := newPaymentFromCharge(sub, resp, payType, key)

	if err := s.IdempotencyStore.Record(ctx, key, pay.ID); err != nil && !ierr.IsAlreadyExists(err) {
		s.Logger.Errorw("charge succeeded but idempotency key write failed",
			"tenant_id", sub.TenantID,
			"payment_id", pay.ID,
			"error", err)
	}

	// The new period starts where the old one was scheduled to bill, so a
	// late run never shifts the anchor day.
	oldNext := sub.NextBillingDate
	sub.CurrentPeriodStart = oldNext
	sub.NextBillingDate = oldNext.AddMonths(1)
	sub.CurrentPeriodEnd = sub.NextBillingDate.AddDays(-1)
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.Amount = amount
	sub.ClearPaymentFailure()

	err := s.TxRunner.WithTx(ctx, func(ctx context.Context) error {
		if err := s.PaymentRepo.Create(ctx, pay); err != nil {
			return err
		}
		if err := s.SubRepo.Update(ctx, sub); err != nil {
			return err
		}
		return s.HistoryRepo.Append(ctx,
			subscription.NewHistoryRecord(sub, types.ChangeTypeRenew, "recurring charge"))
	})
	if err != nil {
		s.Logger.Errorw("charge landed but state write failed, idempotency key blocks a same-day re-charge",
			"tenant_id", sub.TenantID,
			"payment_id", pay.ID,
			"error", err)
		return failed(sub, action, err)
	}

	s.notify(ctx, types.WebhookEventPaymentSuccess, sub, map[string]interface{}{
		"payment_id": pay.ID,
		"amount":     amount,
		"plan":       sub.Plan,
	})
	return succeeded(sub, action)
}

func (s *billingRunService) recordChargeFailure(
	ctx context.Context,
	sub *subscription.Subscription,
	asOf types.BillingDay,
	action string,
	payType types.PaymentType,
	orderID string,
	amount int64,
	chargeErr error,
) dto.SubscriptionResult {
	firstFailure := sub.SubscriptionStatus == types.SubscriptionStatusActive

	sub.RetryCount++
	if firstFailure {
		// The ladder anchors on the first failure of the cycle; later
		// failures never move these.
		sub.GracePeriodUntil = asOf.AddDays(s.Config.Billing.GraceDays)
		sub.LastPaymentFailedAt = asOf
	}
	sub.SubscriptionStatus = types.SubscriptionStatusPastDue
	sub.LastPaymentError = chargeErr.Error()

	var pay *payment.Payment
	if orderID != "" {
		pay = &payment.Payment{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			TenantID:      sub.TenantID,
			OrderID:       orderID,
			Amount:        amount,
			PaymentStatus: types.PaymentStatusFailed,
			PaymentType:   payType,
			FailureReason: chargeErr.Error(),
			CreatedAt:     time.Now().UTC(),
		}
	}

	err := s.TxRunner.WithTx(ctx, func(ctx context.Context) error {
		if pay != nil {
			if err := s.PaymentRepo.Create(ctx, pay); err != nil {
				return err
			}
		}
		return s.SubRepo.Update(ctx, sub)
	})
	if err != nil {
		s.Logger.Errorw("failed to persist charge failure",
			"tenant_id", sub.TenantID,
			"error", err)
		return failed(sub, action, err)
	}

	event := types.WebhookEventPaymentFailedGrace
	if sub.RetryCount < s.Config.Billing.MaxRetries {
		switch sub.RetryCount {
		case 1:
			event = types.WebhookEventPaymentRetry1
		case 2:
			event = types.WebhookEventPaymentRetry2
		}
	}

	s.notify(ctx, event, sub, map[string]interface{}{
		"retry_count":        sub.RetryCount,
		"error":              sub.LastPaymentError,
		"grace_period_until": sub.GracePeriodUntil.String(),
	})
	return failed(sub, action, chargeErr)
}

// processPhase runs fn over each candidate, recovering per-subscription
// panics so one tenant cannot take down the run.
func (s *billingRunService) processPhase(
	ctx context.Context,
	name string,
	subs []*subscription.Subscription,
	fn func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult,
) *dto.PhaseSummary {
	ps := &dto.PhaseSummary{Phase: name}
	for _, sub := range subs {
		ps.Add(s.processOne(ctx, sub, fn))
	}
	s.Logger.Infow("phase completed",
		"phase", name,
		"processed", ps.Processed,
		"succeeded", ps.Succeeded,
		"failed", ps.Failed,
		"skipped", ps.Skipped)
	return ps
}

func (s *billingRunService) processOne(
	ctx context.Context,
	sub *subscription.Subscription,
	fn func(ctx context.Context, sub *subscription.Subscription) dto.SubscriptionResult,
) (result dto.SubscriptionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Errorw("panic while processing subscription",
				"tenant_id", sub.TenantID,
				"subscription_id", sub.ID,
				"panic", r)
			result = dto.SubscriptionResult{
				TenantID:       sub.TenantID,
				SubscriptionID: sub.ID,
				Action:         "unhandled",
				Outcome:        dto.OutcomeFailed,
				Error:          fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return fn(ctx, sub)
}

// notify publishes a webhook event. The publisher already swallows delivery
// failures, so any error here is a programming bug worth logging.
func (s *billingRunService) notify(ctx context.Context, name types.WebhookEventName, sub *subscription.Subscription, payload map[string]interface{}) {
	if err := s.Publisher.Publish(ctx, webhook.NewEvent(name, sub.TenantID, payload)); err != nil {
		s.Logger.Warnw("webhook publish returned error",
			"event", name,
			"tenant_id", sub.TenantID,
			"error", err)
	}
}

func newPaymentFromCharge(sub *subscription.Subscription, resp *gateway.ChargeResponse, payType types.PaymentType, idemKey string) *payment.Payment {
	return &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		TenantID:       sub.TenantID,
		OrderID:        resp.OrderID,
		Amount:         resp.Amount,
		PaymentStatus:  types.PaymentStatusDone,
		PaymentType:    payType,
		IdempotencyKey: idemKey,
		TransactionID:  resp.TransactionID,
		Method:         resp.Method,
		ReceiptURL:     resp.ReceiptURL,
		PaidAt:         resp.ApprovedAt,
		CreatedAt:      time.Now().UTC(),
	}
}

func succeeded(sub *subscription.Subscription, action string) dto.SubscriptionResult {
	return dto.SubscriptionResult{
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		Action:         action,
		Outcome:        dto.OutcomeSucceeded,
	}
}

func failed(sub *subscription.Subscription, action string, err error) dto.SubscriptionResult {
	return dto.SubscriptionResult{
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		Action:         action,
		Outcome:        dto.OutcomeFailed,
		Error:          err.Error(),
	}
}

func skipped(sub *subscription.Subscription, action string, reason string) dto.SubscriptionResult {
	return dto.SubscriptionResult{
		TenantID:       sub.TenantID,
		SubscriptionID: sub.ID,
		Action:         action,
		Outcome:        dto.OutcomeSkipped,
		Error:          reason,
	}
}
