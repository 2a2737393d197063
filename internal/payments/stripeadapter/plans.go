package stripeadapter

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// GetPlans lists the active recurring prices from the vendor catalog. Prices
// outside the configured price table are skipped so experiments in the Stripe
// dashboard never leak into the product plan list.
func (a *Adapter) GetPlans(ctx context.Context) payments.Result[[]payments.Plan] {
	prices, err := a.api.PriceList(ctx, &stripe.PriceListParams{
		Active: stripe.Bool(true),
		Type:   stripe.String(string(stripe.PriceTypeRecurring)),
		ListParams: stripe.ListParams{
			Expand: []*string{stripe.String("data.product")},
		},
	})
	if err != nil {
		return payments.Fail[[]payments.Plan](payments.ErrPlansFetchFailed, vendorMessage(err))
	}

	plans := make([]payments.Plan, 0, len(prices))
	for _, p := range prices {
		key, ok := a.priceTable.Lookup(p.ID)
		if !ok {
			if a.logg != nil {
				a.logg.Warn(ctx, "active stripe price not in price table, skipping: "+p.ID)
			}
			continue
		}
		plans = append(plans, a.planFromPrice(p, key))
	}
	return payments.OK(plans)
}

// GetPlan fetches a single price by vendor id.
func (a *Adapter) GetPlan(ctx context.Context, planID string) payments.Result[payments.Plan] {
	p, err := a.api.PriceGet(ctx, planID, &stripe.PriceParams{
		Expand: []*string{stripe.String("product")},
	})
	if err != nil {
		if isResourceMissing(err) {
			return payments.Fail[payments.Plan](payments.ErrPlanNotFound, vendorMessage(err))
		}
		return payments.Fail[payments.Plan](payments.ErrPlansFetchFailed, vendorMessage(err))
	}
	key, ok := a.priceTable.Lookup(p.ID)
	if !ok {
		return payments.Fail[payments.Plan](payments.ErrPlanNotFound, "price is not part of the configured catalog")
	}
	return payments.OK(a.planFromPrice(p, key))
}

func (a *Adapter) planFromPrice(p *stripe.Price, key payments.PriceKey) payments.Plan {
	plan := payments.Plan{
		ID:             p.ID,
		Provider:       enums.ProviderStripe,
		ProviderPlanID: p.ID,
		Tier:           key.Tier,
		Currency:       string(p.Currency),
		Amount:         p.UnitAmount,
		Interval:       key.Interval,
		IsActive:       p.Active,
	}
	if p.Product != nil {
		plan.Name = p.Product.Name
	}
	if plan.Name == "" {
		plan.Name = displayName(key)
	}
	return plan
}

// displayName is the fallback plan name when the vendor product has none.
func displayName(key payments.PriceKey) string {
	return key.Tier.String() + " " + key.Interval.String()
}

// MajorUnits converts a minor-unit amount to its decimal representation for
// display. Stripe reports everything in minor units.
func MajorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-2)
}
