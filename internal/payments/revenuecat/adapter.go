package revenuecat

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// Adapter implements the payment provider contract on RevenueCat. The app
// stores purchase through Apple/Google; this adapter only reads subscriber
// state and ingests webhooks. The app user id is the internal user id, so
// provider customer and subscription ids are both that id.
type Adapter struct {
	client        *Client
	logg          *logger.Logger
	webhookSecret string
	now           func() time.Time
	initialized   bool
}

// Params groups the adapter dependencies.
type Params struct {
	Client *Client
	Logger *logger.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New builds an uninitialized adapter; the manager calls Initialize.
func New(params Params) *Adapter {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Adapter{
		client: params.Client,
		logg:   params.Logger,
		now:    now,
	}
}

// Name implements payments.Provider.
func (a *Adapter) Name() enums.PaymentProvider {
	return enums.ProviderRevenueCat
}

// Initialize builds the REST client if one was not injected.
func (a *Adapter) Initialize(cfg payments.Config) error {
	if a.initialized {
		return nil
	}
	if a.client == nil {
		client, err := NewClient(ClientParams{APIKey: cfg.APIKey})
		if err != nil {
			return err
		}
		a.client = client
	}
	a.webhookSecret = strings.TrimSpace(cfg.WebhookSecret)
	a.initialized = true
	return nil
}

// CreateCustomer fetches the subscriber, which RevenueCat creates implicitly
// on first contact, and tags it with the account email.
func (a *Adapter) CreateCustomer(ctx context.Context, email, name string, userID uuid.UUID) payments.Result[payments.Customer] {
	appUserID := userID.String()
	if _, err := a.client.GetSubscriber(ctx, appUserID); err != nil {
		return payments.Fail[payments.Customer](payments.ErrCustomerCreationFailed, err.Error())
	}
	attributes := map[string]string{"$email": email}
	if strings.TrimSpace(name) != "" {
		attributes["$displayName"] = name
	}
	if err := a.client.UpdateSubscriberAttributes(ctx, appUserID, attributes); err != nil {
		return payments.Fail[payments.Customer](payments.ErrCustomerCreationFailed, err.Error())
	}
	return payments.OK(payments.Customer{
		UserID:     userID,
		ProviderID: appUserID,
		Provider:   enums.ProviderRevenueCat,
		Email:      email,
		Name:       name,
	})
}

// GetCustomer fetches the subscriber record by app user id.
func (a *Adapter) GetCustomer(ctx context.Context, customerID string) payments.Result[payments.Customer] {
	sub, err := a.client.GetSubscriber(ctx, customerID)
	if err != nil {
		return payments.Fail[payments.Customer](payments.ErrCustomerNotFound, err.Error())
	}
	out := payments.Customer{
		ProviderID: customerID,
		Provider:   enums.ProviderRevenueCat,
	}
	if id, err := uuid.Parse(customerID); err == nil {
		out.UserID = id
	}
	if attr, ok := sub.SubscriberAttributes["$email"]; ok {
		out.Email = attr.Value
	}
	if attr, ok := sub.SubscriberAttributes["$displayName"]; ok {
		out.Name = attr.Value
	}
	return payments.OK(out)
}

// UpdateCustomer updates the reserved subscriber attributes.
func (a *Adapter) UpdateCustomer(ctx context.Context, customerID, email, name string) payments.Result[payments.Customer] {
	attributes := make(map[string]string, 2)
	if strings.TrimSpace(email) != "" {
		attributes["$email"] = email
	}
	if strings.TrimSpace(name) != "" {
		attributes["$displayName"] = name
	}
	if len(attributes) > 0 {
		if err := a.client.UpdateSubscriberAttributes(ctx, customerID, attributes); err != nil {
			return payments.Fail[payments.Customer](payments.ErrCustomerCreationFailed, err.Error())
		}
	}
	return a.GetCustomer(ctx, customerID)
}

// CreateCheckoutSession is not a RevenueCat concept: purchases start inside
// the mobile app through the store SDK.
func (a *Adapter) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) payments.Result[payments.CheckoutSession] {
	return payments.NotSupported[payments.CheckoutSession]("hosted checkout")
}

// GetSubscription derives the current subscription from subscriber state; the
// subscription id is the app user id.
func (a *Adapter) GetSubscription(ctx context.Context, subscriptionID string) payments.Result[payments.Subscription] {
	subscriber, err := a.client.GetSubscriber(ctx, subscriptionID)
	if err != nil {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionFetchFailed, err.Error())
	}
	sub, ok := resolveSubscription(subscriber, subscriptionID, a.now().UTC())
	if !ok {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionFetchFailed, "subscriber has no purchases")
	}
	sub.PlanID = a.planIDForProduct(ctx, sub.PlanID)
	return payments.OK(sub)
}

// CancelSubscription is managed by the stores; users cancel through
// App Store / Play Store settings.
func (a *Adapter) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("subscription cancellation")
}

// ResumeSubscription is managed by the stores.
func (a *Adapter) ResumeSubscription(ctx context.Context, subscriptionID string) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("subscription resume")
}

// ChangeSubscriptionPlan is managed by the stores.
func (a *Adapter) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID string) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("plan change")
}

// GetPlans is not available: store product catalogs live in App Store
// Connect / Play Console, not in the subscriber API.
func (a *Adapter) GetPlans(ctx context.Context) payments.Result[[]payments.Plan] {
	return payments.NotSupported[[]payments.Plan]("plan listing")
}

// GetPlan is not available for the same reason as GetPlans.
func (a *Adapter) GetPlan(ctx context.Context, planID string) payments.Result[payments.Plan] {
	return payments.NotSupported[payments.Plan]("plan lookup")
}

// VerifyWebhook compares the Authorization header against the shared secret
// in constant time. RevenueCat sends the configured value verbatim; both bare
// and Bearer-prefixed configurations are accepted.
func (a *Adapter) VerifyWebhook(payload []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(signature), []byte(secret)) == 1 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte("Bearer "+secret)) == 1
}
