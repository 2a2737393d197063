package revenuecat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(ClientParams{
		APIKey:     "sk_rc_test",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return client, server
}

func testAdapter(t *testing.T, client *Client, now time.Time) *Adapter {
	t.Helper()
	adapter := New(Params{Client: client, Now: func() time.Time { return now }})
	if err := adapter.Initialize(payments.Config{APIKey: "sk_rc_test", WebhookSecret: "rc_secret"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return adapter
}

func TestClient_RetriesOnServerError(t *testing.T) {
	var calls int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(subscriberResponse{Subscriber: Subscriber{OriginalAppUserID: "u1"}})
	}))

	sub, err := client.GetSubscriber(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get subscriber: %v", err)
	}
	if sub.OriginalAppUserID != "u1" {
		t.Fatalf("unexpected subscriber %+v", sub)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected retry, got %d calls", calls)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))

	if _, err := client.GetSubscriber(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestClient_SendsBearerAuth(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_rc_test" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(subscriberResponse{})
	}))
	if _, err := client.GetSubscriber(context.Background(), "u1"); err != nil {
		t.Fatalf("get subscriber: %v", err)
	}
}

func TestAdapter_GetSubscriptionPrefersActiveRecord(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Hour)
	active := now.Add(30 * 24 * time.Hour)
	userID := uuid.NewString()

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(subscriberResponse{Subscriber: Subscriber{
			OriginalAppUserID: userID,
			Subscriptions: map[string]SubscriberSubscription{
				"premium_monthly":    {ExpiresDate: &expired, PeriodType: "normal"},
				"premium_semiannual": {ExpiresDate: &active, PeriodType: "normal"},
			},
		}})
	}))
	adapter := testAdapter(t, client, now)

	result := adapter.GetSubscription(context.Background(), userID)
	if !result.Success {
		t.Fatalf("get subscription: %s", result.Message)
	}
	sub := result.Data
	if sub.PlanID != "premium_semiannual" {
		t.Fatalf("expected the active product, got %s", sub.PlanID)
	}
	if sub.Tier != enums.TierPremium || sub.Interval != enums.IntervalSemiannual {
		t.Fatalf("product naming not decoded: %+v", sub)
	}
	if sub.Status != enums.SubscriptionStatusActive {
		t.Fatalf("status: %s", sub.Status)
	}
}

// With nothing active the most recent purchase carries the lapsed state, even
// when an older record expired later.
func TestAdapter_GetSubscriptionLapsedUsesLatestPurchase(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	annualPurchase := time.Date(2025, 5, 25, 0, 0, 0, 0, time.UTC)
	annualExpiry := time.Date(2026, 5, 25, 0, 0, 0, 0, time.UTC)
	monthlyPurchase := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	monthlyExpiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.NewString()

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(subscriberResponse{Subscriber: Subscriber{
			OriginalAppUserID: userID,
			Subscriptions: map[string]SubscriberSubscription{
				"pro_annual":      {PurchaseDate: &annualPurchase, ExpiresDate: &annualExpiry, PeriodType: "normal"},
				"premium_monthly": {PurchaseDate: &monthlyPurchase, ExpiresDate: &monthlyExpiry, PeriodType: "normal"},
			},
		}})
	}))
	adapter := testAdapter(t, client, now)

	result := adapter.GetSubscription(context.Background(), userID)
	if !result.Success {
		t.Fatalf("get subscription: %s", result.Message)
	}
	sub := result.Data
	if sub.PlanID != "premium_month" {
		t.Fatalf("expected the most recent purchase, got %s", sub.PlanID)
	}
	if sub.Metadata["product_id"] != "premium_monthly" {
		t.Fatalf("raw product id not preserved: %+v", sub.Metadata)
	}
	if sub.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("status: %s", sub.Status)
	}
}

func TestPlanIDForProduct(t *testing.T) {
	adapter := New(Params{})
	ctx := context.Background()

	if got := adapter.planIDForProduct(ctx, "com.scanmyscale.premium.monthly"); got != "premium_month" {
		t.Fatalf("mapped product: got %s", got)
	}
	if got := adapter.planIDForProduct(ctx, "PRO_ANNUAL"); got != "pro_year" {
		t.Fatalf("mapping must be case-insensitive: got %s", got)
	}

	var logs bytes.Buffer
	warned := New(Params{Logger: logger.New(logger.Options{Output: &logs})})
	if got := warned.planIDForProduct(ctx, "legacy_promo_sku"); got != "legacy_promo_sku" {
		t.Fatalf("unmapped product must pass through, got %s", got)
	}
	if !strings.Contains(logs.String(), "legacy_promo_sku") {
		t.Fatalf("expected a warning naming the product, got %q", logs.String())
	}
}

func TestSubscriptionStatus_StateMachine(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		sub  SubscriberSubscription
		want enums.SubscriptionStatus
	}{
		{"expired", SubscriberSubscription{ExpiresDate: &past}, enums.SubscriptionStatusCanceled},
		{"billing issue", SubscriberSubscription{ExpiresDate: &future, BillingIssuesDetectedAt: &past}, enums.SubscriptionStatusPastDue},
		{"trial", SubscriberSubscription{ExpiresDate: &future, PeriodType: "trial"}, enums.SubscriptionStatusTrialing},
		{"unsubscribed but unexpired", SubscriberSubscription{ExpiresDate: &future, UnsubscribeDetectedAt: &past}, enums.SubscriptionStatusActive},
		{"active", SubscriberSubscription{ExpiresDate: &future}, enums.SubscriptionStatusActive},
	}
	for _, tc := range cases {
		if got := subscriptionStatus(tc.sub, now); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIntervalFromProduct(t *testing.T) {
	cases := map[string]enums.BillingInterval{
		"premium_monthly_v2": enums.IntervalMonth,
		"premium_semiannual": enums.IntervalSemiannual,
		"sms_premium_6month": enums.IntervalSemiannual,
		"pro_annual":         enums.IntervalYear,
		"pro_yearly_intro":   enums.IntervalYear,
		"mystery_product":    enums.IntervalMonth,
	}
	for productID, want := range cases {
		if got := intervalFromProduct(productID); got != want {
			t.Fatalf("%s: got %s, want %s", productID, got, want)
		}
	}
}

func TestAdapter_VerifyWebhookConstantTime(t *testing.T) {
	adapter := New(Params{})

	if !adapter.VerifyWebhook(nil, "rc_secret", "rc_secret") {
		t.Fatalf("bare secret should verify")
	}
	if !adapter.VerifyWebhook(nil, "Bearer rc_secret", "rc_secret") {
		t.Fatalf("bearer-prefixed secret should verify")
	}
	if adapter.VerifyWebhook(nil, "wrong", "rc_secret") {
		t.Fatalf("wrong secret should not verify")
	}
	if adapter.VerifyWebhook(nil, "", "rc_secret") {
		t.Fatalf("empty header should not verify")
	}
	if adapter.VerifyWebhook(nil, "rc_secret", "") {
		t.Fatalf("empty secret should never verify")
	}
}

func TestAdapter_ProcessWebhookCancellationKeepsEntitlement(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	adapter := testAdapter(t, nil, now)
	expiration := now.Add(10 * 24 * time.Hour)

	payload, _ := json.Marshal(webhookEnvelope{
		APIVersion: "1.0",
		Event: webhookEvent{
			Type:           eventCancellation,
			AppUserID:      "user-1",
			ProductID:      "premium_monthly",
			Store:          "APP_STORE",
			ExpirationAtMs: expiration.UnixMilli(),
		},
	})

	result := adapter.ProcessWebhook(context.Background(), payments.WebhookEvent{Payload: payload})
	if !result.Success {
		t.Fatalf("process: %s", result.Message)
	}
	if result.Data.Type != payments.EventSubscriptionUpdated {
		t.Fatalf("type: %s", result.Data.Type)
	}
	sub := result.Data.Subscription
	if sub.Status != enums.SubscriptionStatusActive {
		t.Fatalf("cancellation before expiry must stay active, got %s", sub.Status)
	}
	if !sub.CancelAtPeriodEnd {
		t.Fatalf("expected cancel at period end")
	}
}

func TestAdapter_ProcessWebhookExpiration(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	adapter := testAdapter(t, nil, now)

	payload, _ := json.Marshal(webhookEnvelope{
		APIVersion: "1.0",
		Event: webhookEvent{
			Type:      eventExpiration,
			AppUserID: "user-1",
			ProductID: "premium_monthly",
		},
	})

	result := adapter.ProcessWebhook(context.Background(), payments.WebhookEvent{Payload: payload})
	if !result.Success {
		t.Fatalf("process: %s", result.Message)
	}
	if result.Data.Type != payments.EventSubscriptionCanceled {
		t.Fatalf("type: %s", result.Data.Type)
	}
	if result.Data.Subscription.Status != enums.SubscriptionStatusCanceled {
		t.Fatalf("status: %s", result.Data.Subscription.Status)
	}
}

func TestAdapter_ProcessWebhookIgnoresTestEvents(t *testing.T) {
	adapter := testAdapter(t, nil, time.Now())
	payload, _ := json.Marshal(webhookEnvelope{Event: webhookEvent{Type: eventTest, AppUserID: "user-1"}})

	result := adapter.ProcessWebhook(context.Background(), payments.WebhookEvent{Payload: payload})
	if !result.Success || result.Data.Type != payments.EventIgnored {
		t.Fatalf("expected ignored, got %+v", result)
	}
}

func TestAdapter_CheckoutNotSupported(t *testing.T) {
	adapter := testAdapter(t, nil, time.Now())
	result := adapter.CreateCheckoutSession(context.Background(), payments.CheckoutParams{})
	if result.Success || result.Code != payments.ErrNotSupportedByProvider {
		t.Fatalf("expected NOT_SUPPORTED_BY_PROVIDER, got %+v", result)
	}
}
