package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stackbill/stackbill/internal/cache"
	"github.com/stackbill/stackbill/internal/domain/subscription"
	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/types"
)

// Plan is one entry of the sellable plan catalog. Prices are monthly, in the
// minor currency unit.
type Plan struct {
	Type           types.PlanType  `json:"type"`
	ListPrice      decimal.Decimal `json:"list_price"`
	ManuallyBilled bool            `json:"manually_billed"`
}

// ListAmount returns the list price as an integer charge amount.
func (p *Plan) ListAmount() int64 {
	return p.ListPrice.IntPart()
}

// planCatalog is the built-in catalog. Enterprise is invoiced manually and
// never charged by the automated run.
var planCatalog = map[types.PlanType]Plan{
	types.PlanTypeBasic: {
		Type:      types.PlanTypeBasic,
		ListPrice: decimal.NewFromInt(49000),
	},
	types.PlanTypeStandard: {
		Type:      types.PlanTypeStandard,
		ListPrice: decimal.NewFromInt(99000),
	},
	types.PlanTypeEnterprise: {
		Type:           types.PlanTypeEnterprise,
		ListPrice:      decimal.Zero,
		ManuallyBilled: true,
	},
}

const planCacheTTL = 30 * time.Minute

// PricingService resolves plan list prices and the effective amount a
// subscription owes on a given day.
type PricingService interface {
	GetPlan(ctx context.Context, plan types.PlanType) (*Plan, error)
	EffectiveAmount(ctx context.Context, sub *subscription.Subscription, asOf types.BillingDay) int64
}

type pricingService struct {
	ServiceParams
}

// NewPricingService creates the pricing service.
func NewPricingService(params ServiceParams) PricingService {
	return &pricingService{ServiceParams: params}
}

func (s *pricingService) GetPlan(ctx context.Context, plan types.PlanType) (*Plan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	cacheKey := "pricing:plan:" + string(plan)
	if v, found := s.Cache.Get(ctx, cacheKey); found {
		if p, ok := cache.UnmarshalCacheValue[Plan](v); ok {
			return p, nil
		}
	}

	p, ok := planCatalog[plan]
	if !ok {
		return nil, ierr.NewErrorf("plan %s is not in the catalog", plan).
			Mark(ierr.ErrNotFound)
	}

	s.Cache.Set(ctx, cacheKey, &p, planCacheTTL)
	return &p, nil
}

// EffectiveAmount honors temporary price protection: while the lock holds
// and the locked amount undercuts the list price, the tenant keeps paying
// the locked amount. Once the lock lapses the charge reverts to BaseAmount.
func (s *pricingService) EffectiveAmount(ctx context.Context, sub *subscription.Subscription, asOf types.BillingDay) int64 {
	locked := decimal.NewFromInt(sub.Amount)
	list := decimal.NewFromInt(sub.BaseAmount)

	if !sub.PriceLockedUntil.IsZero() &&
		asOf.OnOrBefore(sub.PriceLockedUntil) &&
		locked.LessThan(list) {
		return sub.Amount
	}

	if sub.BaseAmount > 0 {
		return sub.BaseAmount
	}
	return sub.Amount
}
