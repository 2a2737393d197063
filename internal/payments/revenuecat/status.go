package revenuecat

import (
	"context"
	"strings"
	"time"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

type subscriberResponse struct {
	Subscriber Subscriber `json:"subscriber"`
}

// Subscriber is the vendor-side customer record. Subscriptions are keyed by
// store product id.
type Subscriber struct {
	OriginalAppUserID    string                            `json:"original_app_user_id"`
	ManagementURL        string                            `json:"management_url"`
	Subscriptions        map[string]SubscriberSubscription `json:"subscriptions"`
	SubscriberAttributes map[string]SubscriberAttribute    `json:"subscriber_attributes"`
}

// SubscriberSubscription is one store subscription on the subscriber.
type SubscriberSubscription struct {
	PurchaseDate            *time.Time `json:"purchase_date"`
	ExpiresDate             *time.Time `json:"expires_date"`
	UnsubscribeDetectedAt   *time.Time `json:"unsubscribe_detected_at"`
	BillingIssuesDetectedAt *time.Time `json:"billing_issues_detected_at"`
	PeriodType              string     `json:"period_type"`
	Store                   string     `json:"store"`
	IsSandbox               bool       `json:"is_sandbox"`
}

// SubscriberAttribute is a reserved or custom attribute value.
type SubscriberAttribute struct {
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updated_at_ms"`
}

const (
	periodTypeTrial = "trial"
	periodTypeIntro = "intro"
)

// productPlanIDs maps store product identifiers to internal plan ids. The
// store consoles name products per platform; entitlement code keys on the
// internal id.
var productPlanIDs = map[string]string{
	// App Store Connect
	"com.scanmyscale.premium.monthly":    "premium_month",
	"com.scanmyscale.premium.semiannual": "premium_semiannual",
	"com.scanmyscale.premium.annual":     "premium_year",
	"com.scanmyscale.pro.monthly":        "pro_month",
	"com.scanmyscale.pro.annual":         "pro_year",
	// Play Console
	"premium_monthly":    "premium_month",
	"premium_semiannual": "premium_semiannual",
	"premium_annual":     "premium_year",
	"pro_monthly":        "pro_month",
	"pro_annual":         "pro_year",
}

// planIDForProduct resolves a store product id to its internal plan id. A
// product missing from the table passes through raw with a warning so a new
// store listing surfaces in the logs instead of breaking the sync.
func (a *Adapter) planIDForProduct(ctx context.Context, productID string) string {
	if planID, ok := productPlanIDs[strings.ToLower(productID)]; ok {
		return planID
	}
	if a.logg != nil {
		a.logg.Warn(ctx, "revenuecat product not in plan table, passing through: "+productID)
	}
	return productID
}

// resolveSubscription picks the authoritative store subscription for a
// subscriber and normalizes it. A currently-active record wins (the one
// expiring last when several are active); when nothing is active the most
// recently purchased record carries the lapsed state. The second return is
// false when the subscriber has never purchased.
func resolveSubscription(sub *Subscriber, appUserID string, now time.Time) (payments.Subscription, bool) {
	var (
		bestID     string
		best       SubscriberSubscription
		bestSeen   bool
		bestActive bool
	)
	for productID, candidate := range sub.Subscriptions {
		active := isUnexpired(candidate.ExpiresDate, now)
		var better bool
		switch {
		case !bestSeen:
			better = true
		case active != bestActive:
			better = active
		case active:
			better = expiresAfter(candidate.ExpiresDate, best.ExpiresDate)
		default:
			better = purchasedAfter(candidate.PurchaseDate, best.PurchaseDate)
		}
		if better {
			bestID = productID
			best = candidate
			bestSeen = true
			bestActive = active
		}
	}
	if !bestSeen {
		return payments.Subscription{}, false
	}

	out := payments.Subscription{
		ID:         appUserID,
		CustomerID: appUserID,
		Provider:   enums.ProviderRevenueCat,
		PlanID:     bestID,
		Tier:       tierFromProduct(bestID),
		Interval:   intervalFromProduct(bestID),
		Status:     subscriptionStatus(best, now),
		Metadata: map[string]string{
			"product_id": bestID,
			"store":      best.Store,
		},
	}
	if best.PurchaseDate != nil {
		out.CurrentPeriodStart = best.PurchaseDate.UTC()
	}
	if best.ExpiresDate != nil {
		out.CurrentPeriodEnd = best.ExpiresDate.UTC()
	}
	if best.UnsubscribeDetectedAt != nil {
		out.CancelAtPeriodEnd = true
	}
	if strings.EqualFold(best.PeriodType, periodTypeTrial) && best.ExpiresDate != nil {
		trialEnd := best.ExpiresDate.UTC()
		out.TrialEnd = &trialEnd
	}
	return out, true
}

// subscriptionStatus is the store-subscription state machine. The stores own
// the billing lifecycle, so status is derived rather than tracked:
//
//	expired                      -> canceled
//	billing issue, not expired   -> past_due
//	trial period, not expired    -> trialing
//	anything else, not expired   -> active (an unsubscribed-but-unexpired
//	                                subscription stays active through the
//	                                grace window it already paid for)
func subscriptionStatus(sub SubscriberSubscription, now time.Time) enums.SubscriptionStatus {
	expired := sub.ExpiresDate != nil && !sub.ExpiresDate.After(now)
	if expired {
		return enums.SubscriptionStatusCanceled
	}
	if sub.BillingIssuesDetectedAt != nil {
		return enums.SubscriptionStatusPastDue
	}
	if strings.EqualFold(sub.PeriodType, periodTypeTrial) {
		return enums.SubscriptionStatusTrialing
	}
	return enums.SubscriptionStatusActive
}

func expiresAfter(a, b *time.Time) bool {
	if a == nil {
		// No expiry means a lifetime purchase; it beats anything dated.
		return true
	}
	if b == nil {
		return false
	}
	return a.After(*b)
}

// isUnexpired treats a missing expiry as a lifetime purchase.
func isUnexpired(expires *time.Time, now time.Time) bool {
	return expires == nil || expires.After(now)
}

func purchasedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// intervalFromProduct derives the billing interval from the store product id.
// Store products carry no machine-readable recurrence in the subscriber
// payload, so the naming convention (e.g. premium_semiannual_v2) is the
// contract. period_type is trial/intro/normal and says nothing about length.
func intervalFromProduct(productID string) enums.BillingInterval {
	id := strings.ToLower(productID)
	switch {
	case strings.Contains(id, "semiannual"), strings.Contains(id, "6month"), strings.Contains(id, "6_month"):
		return enums.IntervalSemiannual
	case strings.Contains(id, "annual"), strings.Contains(id, "year"):
		return enums.IntervalYear
	default:
		return enums.IntervalMonth
	}
}

func tierFromProduct(productID string) enums.SubscriptionTier {
	id := strings.ToLower(productID)
	switch {
	case strings.Contains(id, "premium"):
		return enums.TierPremium
	case strings.Contains(id, "pro"):
		return enums.TierPro
	default:
		return enums.TierStarter
	}
}
