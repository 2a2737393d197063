package revenuecat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// Webhook event types RevenueCat dispatches.
const (
	eventInitialPurchase     = "INITIAL_PURCHASE"
	eventRenewal             = "RENEWAL"
	eventProductChange       = "PRODUCT_CHANGE"
	eventCancellation        = "CANCELLATION"
	eventUncancellation      = "UNCANCELLATION"
	eventExpiration          = "EXPIRATION"
	eventBillingIssue        = "BILLING_ISSUE"
	eventNonRenewingPurchase = "NON_RENEWING_PURCHASE"
	eventTest                = "TEST"
)

type webhookEnvelope struct {
	APIVersion string       `json:"api_version"`
	Event      webhookEvent `json:"event"`
}

type webhookEvent struct {
	Type                  string `json:"type"`
	AppUserID             string `json:"app_user_id"`
	OriginalAppUserID     string `json:"original_app_user_id"`
	ProductID             string `json:"product_id"`
	PeriodType            string `json:"period_type"`
	Store                 string `json:"store"`
	Environment           string `json:"environment"`
	PurchasedAtMs         int64  `json:"purchased_at_ms"`
	ExpirationAtMs        int64  `json:"expiration_at_ms"`
	EventTimestampMs      int64  `json:"event_timestamp_ms"`
	CancelReason          string `json:"cancel_reason"`
	NewProductID          string `json:"new_product_id"`
	TransactionID         string `json:"transaction_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
}

// ProcessWebhook normalizes a store lifecycle event. The payload is the full
// request body. A cancellation keeps the subscription active through the paid
// window with auto-renew off; only expiration ends entitlement.
func (a *Adapter) ProcessWebhook(ctx context.Context, event payments.WebhookEvent) payments.Result[payments.WebhookResult] {
	var envelope webhookEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return payments.Fail[payments.WebhookResult](payments.ErrWebhookProcessingFailed, "decode webhook: "+err.Error())
	}
	evt := envelope.Event
	if evt.Type == "" {
		return payments.Fail[payments.WebhookResult](payments.ErrWebhookProcessingFailed, "event type missing")
	}

	eventType, relevant := normalizeEventType(evt.Type)
	if !relevant {
		return payments.OK(payments.WebhookResult{Type: payments.EventIgnored})
	}

	appUserID := evt.AppUserID
	if appUserID == "" {
		appUserID = evt.OriginalAppUserID
	}
	if appUserID == "" {
		return payments.Fail[payments.WebhookResult](payments.ErrWebhookProcessingFailed, "app user id missing")
	}

	sub := a.subscriptionFromEvent(ctx, evt, appUserID)
	return payments.OK(payments.WebhookResult{
		Type:         eventType,
		Subscription: &sub,
		Changes: map[string]any{
			"vendor_event": evt.Type,
			"product_id":   evt.ProductID,
			"store":        evt.Store,
			"environment":  evt.Environment,
		},
	})
}

func normalizeEventType(vendorType string) (payments.EventType, bool) {
	switch vendorType {
	case eventInitialPurchase, eventNonRenewingPurchase:
		return payments.EventSubscriptionCreated, true
	case eventRenewal, eventProductChange, eventCancellation, eventUncancellation:
		return payments.EventSubscriptionUpdated, true
	case eventExpiration:
		return payments.EventSubscriptionCanceled, true
	case eventBillingIssue:
		return payments.EventPaymentFailed, true
	case eventTest:
		return payments.EventIgnored, false
	default:
		return payments.EventIgnored, false
	}
}

func (a *Adapter) subscriptionFromEvent(ctx context.Context, evt webhookEvent, appUserID string) payments.Subscription {
	productID := evt.ProductID
	if evt.Type == eventProductChange && evt.NewProductID != "" {
		productID = evt.NewProductID
	}

	sub := payments.Subscription{
		ID:         appUserID,
		CustomerID: appUserID,
		Provider:   enums.ProviderRevenueCat,
		PlanID:     a.planIDForProduct(ctx, productID),
		Tier:       tierFromProduct(productID),
		Interval:   intervalFromProduct(productID),
		Status:     statusFromEvent(evt, a.now().UTC()),
		Metadata: map[string]string{
			"product_id": productID,
			"store":      evt.Store,
		},
	}
	if evt.PurchasedAtMs > 0 {
		sub.CurrentPeriodStart = time.UnixMilli(evt.PurchasedAtMs).UTC()
	}
	if evt.ExpirationAtMs > 0 {
		sub.CurrentPeriodEnd = time.UnixMilli(evt.ExpirationAtMs).UTC()
	}
	if evt.Type == eventCancellation {
		sub.CancelAtPeriodEnd = true
	}
	if strings.EqualFold(evt.PeriodType, periodTypeTrial) {
		if sub.Status == enums.SubscriptionStatusActive {
			sub.Status = enums.SubscriptionStatusTrialing
		}
		if evt.ExpirationAtMs > 0 {
			trialEnd := time.UnixMilli(evt.ExpirationAtMs).UTC()
			sub.TrialEnd = &trialEnd
		}
	}
	return sub
}

func statusFromEvent(evt webhookEvent, now time.Time) enums.SubscriptionStatus {
	switch evt.Type {
	case eventExpiration:
		return enums.SubscriptionStatusCanceled
	case eventBillingIssue:
		return enums.SubscriptionStatusPastDue
	case eventCancellation:
		// Auto-renew turned off; entitlement survives until the paid window
		// closes.
		if evt.ExpirationAtMs > 0 && time.UnixMilli(evt.ExpirationAtMs).Before(now) {
			return enums.SubscriptionStatusCanceled
		}
		return enums.SubscriptionStatusActive
	default:
		return enums.SubscriptionStatusActive
	}
}
