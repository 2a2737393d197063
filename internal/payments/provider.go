package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// Config carries the one-time adapter setup. Environment is "sandbox" or
// "production"; adapters may refuse keys that do not match it.
type Config struct {
	APIKey        string
	WebhookSecret string
	Environment   string
}

// CheckoutParams describes a hosted checkout session request.
type CheckoutParams struct {
	CustomerID string
	PlanID     string
	PriceID    string
	UserID     uuid.UUID
	Tier       enums.SubscriptionTier
	Locale     string
	SuccessURL string
	CancelURL  string
	TrialDays  int
}

// PixCheckoutParams describes a one-time prepaid purchase on the Pix rail.
type PixCheckoutParams struct {
	CustomerID string
	UserID     uuid.UUID
	Tier       enums.SubscriptionTier
	Interval   enums.BillingInterval
	Amount     int64
	Currency   string
	SuccessURL string
	CancelURL  string
}

// PixPayment is the verified outcome of a one-time prepaid purchase.
type PixPayment struct {
	SessionID       string
	PaymentIntentID string
	UserID          string
	Tier            enums.SubscriptionTier
	Interval        enums.BillingInterval
	Amount          int64
	Currency        string
	Paid            bool
	ExpiresAt       time.Time
}

// Provider is the capability contract every payment vendor adapter implements.
// Operations a vendor cannot perform return ErrNotSupportedByProvider; they
// never no-op and never panic.
type Provider interface {
	Name() enums.PaymentProvider

	// Initialize performs one-time setup and is called exactly once per
	// process lifetime by the manager.
	Initialize(cfg Config) error

	CreateCustomer(ctx context.Context, email, name string, userID uuid.UUID) Result[Customer]
	GetCustomer(ctx context.Context, customerID string) Result[Customer]
	UpdateCustomer(ctx context.Context, customerID, email, name string) Result[Customer]

	CreateCheckoutSession(ctx context.Context, params CheckoutParams) Result[CheckoutSession]

	GetSubscription(ctx context.Context, subscriptionID string) Result[Subscription]
	CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) Result[Subscription]
	ResumeSubscription(ctx context.Context, subscriptionID string) Result[Subscription]
	ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID string) Result[Subscription]

	GetPlans(ctx context.Context) Result[[]Plan]
	GetPlan(ctx context.Context, planID string) Result[Plan]

	// VerifyWebhook must use constant-time comparison for secret-bearing
	// schemes.
	VerifyWebhook(payload []byte, signature, secret string) bool
	ProcessWebhook(ctx context.Context, event WebhookEvent) Result[WebhookResult]
}

// CompletedCheckout is the vendor-verified outcome of a hosted checkout
// session. UserID and Tier echo the attribution metadata stamped at session
// creation; they are advisory, ownership is decided on CustomerID.
type CompletedCheckout struct {
	SessionID      string
	CustomerID     string
	SubscriptionID string
	PriceID        string
	UserID         string
	Tier           string
	Complete       bool
	Paid           bool
}

// CheckoutVerifier is the optional capability to confirm a hosted checkout
// server-side. Callers discover it via type assertion.
type CheckoutVerifier interface {
	VerifyCheckoutSession(ctx context.Context, sessionID string) Result[CompletedCheckout]
}

// OneTimePaymentProvider is the optional capability for markets whose local
// rail has no recurring billing. Callers discover it via type assertion on a
// registered Provider.
type OneTimePaymentProvider interface {
	CreatePixCheckout(ctx context.Context, params PixCheckoutParams) Result[CheckoutSession]
	VerifyPixPayment(ctx context.Context, sessionID string) Result[PixPayment]
}

// PortalProvider is the optional capability for vendor-hosted billing
// management portals.
type PortalProvider interface {
	CustomerPortalURL(ctx context.Context, customerID, returnURL string) Result[string]
}
