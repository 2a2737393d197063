package stripeadapter

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// mapStatus normalizes Stripe subscription statuses onto the internal
// lifecycle. Unpaid collapses into past_due; the incomplete states map to
// pending/canceled depending on whether the first payment can still succeed.
func mapStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return enums.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusIncomplete:
		return enums.SubscriptionStatusPending
	case stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusCanceled
	case stripe.SubscriptionStatusPaused:
		return enums.SubscriptionStatusPaused
	default:
		return enums.SubscriptionStatusInactive
	}
}

// mapInterval translates a Stripe recurring price into a billing interval.
// Semiannual plans are modeled vendor-side as month × 6.
func mapInterval(recurring *stripe.PriceRecurring) enums.BillingInterval {
	if recurring == nil {
		return enums.IntervalMonth
	}
	switch recurring.Interval {
	case stripe.PriceRecurringIntervalYear:
		return enums.IntervalYear
	case stripe.PriceRecurringIntervalMonth:
		if recurring.IntervalCount == 6 {
			return enums.IntervalSemiannual
		}
		return enums.IntervalMonth
	default:
		return enums.IntervalMonth
	}
}

// mapSubscription normalizes a vendor subscription. Period boundaries live on
// the subscription item in this API version.
func (a *Adapter) mapSubscription(ctx context.Context, sub *stripe.Subscription) payments.Subscription {
	out := payments.Subscription{
		ID:                sub.ID,
		Provider:          enums.ProviderStripe,
		Status:            mapStatus(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.TrialEnd > 0 {
		trialEnd := time.Unix(sub.TrialEnd, 0).UTC()
		out.TrialEnd = &trialEnd
	}
	if len(sub.Metadata) > 0 {
		out.Metadata = sub.Metadata
	}

	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return out
	}
	item := sub.Items.Data[0]
	if item.CurrentPeriodStart > 0 {
		out.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
	}
	if item.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	if item.Price == nil {
		return out
	}
	out.PlanID = item.Price.ID
	out.Currency = string(item.Price.Currency)
	out.Amount = item.Price.UnitAmount
	out.Interval = mapInterval(item.Price.Recurring)
	out.Tier = a.resolveTier(ctx, item.Price.ID, sub.Metadata)
	return out
}

// resolveTier determines the entitlement tier for a subscription: the price
// table is authoritative, subscription metadata is the secondary source, and
// an unresolvable price degrades to starter with a warning rather than
// failing the sync.
func (a *Adapter) resolveTier(ctx context.Context, priceID string, metadata map[string]string) enums.SubscriptionTier {
	if key, ok := a.priceTable.Lookup(priceID); ok {
		return key.Tier
	}
	if raw, ok := metadata[metadataTier]; ok {
		if tier, err := enums.ParseSubscriptionTier(raw); err == nil {
			return tier
		}
	}
	if a.logg != nil {
		a.logg.Warn(ctx, "stripe price not in price table, defaulting tier to starter: "+priceID)
	}
	return enums.TierStarter
}
