package stripeadapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	metadataUserID   = "user_id"
	metadataTier     = "tier"
	metadataInterval = "interval"
	metadataExpires  = "expires_at"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", sandboxEnv, productionEnv)
)

// Adapter implements the payment provider contract on Stripe's hosted
// checkout model.
type Adapter struct {
	api           API
	logg          *logger.Logger
	priceTable    *payments.PriceTable
	webhookSecret string
	environment   string
	initialized   bool
}

// Params groups the adapter dependencies.
type Params struct {
	API        API
	Logger     *logger.Logger
	PriceTable *payments.PriceTable
}

// New builds an uninitialized adapter; the manager calls Initialize.
func New(params Params) *Adapter {
	api := params.API
	if api == nil {
		api = NewLiveAPI()
	}
	return &Adapter{
		api:        api,
		logg:       params.Logger,
		priceTable: params.PriceTable,
	}
}

// Name implements payments.Provider.
func (a *Adapter) Name() enums.PaymentProvider {
	return enums.ProviderStripe
}

// Initialize validates the key against the environment and wires the global
// Stripe key. Calling it again after success is a no-op.
func (a *Adapter) Initialize(cfg payments.Config) error {
	if a.initialized {
		return nil
	}
	env, err := normalizeEnv(cfg.Environment)
	if err != nil {
		return err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return errAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return errSecretRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return err
	}

	stripe.Key = apiKey
	a.environment = env
	a.webhookSecret = secret
	a.initialized = true
	return nil
}

// Environment reports the normalized Stripe environment in use.
func (a *Adapter) Environment() string {
	return a.environment
}

// WebhookSecret returns the signing secret for webhook verification.
func (a *Adapter) WebhookSecret() string {
	return a.webhookSecret
}

// CreateCustomer creates a vendor customer carrying the internal user id in
// metadata so webhook handlers never need to match on email.
func (a *Adapter) CreateCustomer(ctx context.Context, email, name string, userID uuid.UUID) payments.Result[payments.Customer] {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if strings.TrimSpace(name) != "" {
		params.Name = stripe.String(name)
	}
	params.AddMetadata(metadataUserID, userID.String())

	cust, err := a.api.CustomerCreate(ctx, params)
	if err != nil {
		return payments.Fail[payments.Customer](payments.ErrCustomerCreationFailed, vendorMessage(err))
	}
	return payments.OK(customerFromStripe(cust, userID))
}

// GetCustomer fetches a vendor customer by id.
func (a *Adapter) GetCustomer(ctx context.Context, customerID string) payments.Result[payments.Customer] {
	cust, err := a.api.CustomerGet(ctx, customerID, nil)
	if err != nil {
		if isResourceMissing(err) {
			return payments.Fail[payments.Customer](payments.ErrCustomerNotFound, vendorMessage(err))
		}
		return payments.Fail[payments.Customer](payments.ErrCustomerCreationFailed, vendorMessage(err))
	}
	return payments.OK(customerFromStripe(cust, userIDFromMetadata(cust.Metadata)))
}

// UpdateCustomer updates email/name on the vendor record.
func (a *Adapter) UpdateCustomer(ctx context.Context, customerID, email, name string) payments.Result[payments.Customer] {
	params := &stripe.CustomerParams{}
	if strings.TrimSpace(email) != "" {
		params.Email = stripe.String(email)
	}
	if strings.TrimSpace(name) != "" {
		params.Name = stripe.String(name)
	}
	cust, err := a.api.CustomerUpdate(ctx, customerID, params)
	if err != nil {
		if isResourceMissing(err) {
			return payments.Fail[payments.Customer](payments.ErrCustomerNotFound, vendorMessage(err))
		}
		return payments.Fail[payments.Customer](payments.ErrCustomerCreationFailed, vendorMessage(err))
	}
	return payments.OK(customerFromStripe(cust, userIDFromMetadata(cust.Metadata)))
}

// GetSubscription fetches and normalizes a subscription.
func (a *Adapter) GetSubscription(ctx context.Context, subscriptionID string) payments.Result[payments.Subscription] {
	sub, err := a.api.SubscriptionGet(ctx, subscriptionID, nil)
	if err != nil {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionFetchFailed, vendorMessage(err))
	}
	return payments.OK(a.mapSubscription(ctx, sub))
}

// CancelSubscription cancels immediately or at period end.
func (a *Adapter) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) payments.Result[payments.Subscription] {
	var (
		sub *stripe.Subscription
		err error
	)
	if immediate {
		sub, err = a.api.SubscriptionCancel(ctx, subscriptionID, &stripe.SubscriptionCancelParams{})
	} else {
		sub, err = a.api.SubscriptionUpdate(ctx, subscriptionID, &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		})
	}
	if err != nil {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionCancelFailed, vendorMessage(err))
	}
	return payments.OK(a.mapSubscription(ctx, sub))
}

// ResumeSubscription clears a pending period-end cancellation.
func (a *Adapter) ResumeSubscription(ctx context.Context, subscriptionID string) payments.Result[payments.Subscription] {
	sub, err := a.api.SubscriptionUpdate(ctx, subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	})
	if err != nil {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionUpdateFailed, vendorMessage(err))
	}
	return payments.OK(a.mapSubscription(ctx, sub))
}

// ChangeSubscriptionPlan swaps the single subscription item to the new price.
func (a *Adapter) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID string) payments.Result[payments.Subscription] {
	current, err := a.api.SubscriptionGet(ctx, subscriptionID, nil)
	if err != nil {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionFetchFailed, vendorMessage(err))
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionUpdateFailed, "subscription has no items")
	}
	updated, err := a.api.SubscriptionUpdate(ctx, subscriptionID, &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(current.Items.Data[0].ID),
			Price: stripe.String(newPlanID),
		}},
		ProrationBehavior: stripe.String("create_prorations"),
	})
	if err != nil {
		return payments.Fail[payments.Subscription](payments.ErrSubscriptionUpdateFailed, vendorMessage(err))
	}
	return payments.OK(a.mapSubscription(ctx, updated))
}

// CustomerPortalURL implements the optional portal capability.
func (a *Adapter) CustomerPortalURL(ctx context.Context, customerID, returnURL string) payments.Result[string] {
	sess, err := a.api.PortalSessionCreate(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		if isResourceMissing(err) {
			return payments.Fail[string](payments.ErrCustomerNotFound, vendorMessage(err))
		}
		return payments.Fail[string](payments.ErrCheckoutSessionFailed, vendorMessage(err))
	}
	return payments.OK(sess.URL)
}

func customerFromStripe(cust *stripe.Customer, userID uuid.UUID) payments.Customer {
	out := payments.Customer{
		UserID:     userID,
		ProviderID: cust.ID,
		Provider:   enums.ProviderStripe,
		Email:      cust.Email,
		Name:       cust.Name,
	}
	if len(cust.Metadata) > 0 {
		out.Metadata = cust.Metadata
	}
	return out
}

func userIDFromMetadata(metadata map[string]string) uuid.UUID {
	if raw, ok := metadata[metadataUserID]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	switch env {
	case "", sandboxEnv, "test":
		return sandboxEnv, nil
	case productionEnv, "live":
		return productionEnv, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case sandboxEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", sandboxEnv)
	case productionEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", productionEnv)
	default:
		return errInvalidStripeEnv
	}
}

// isResourceMissing reports whether Stripe rejected the call because the
// referenced object does not exist under the current API key.
func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing
	}
	return false
}

// isCustomerModeMismatch detects a stored customer id that belongs to the
// other API-key environment (test vs live). Stripe reports these as missing
// resources, optionally noting that a similar object exists in the other mode.
func isCustomerModeMismatch(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	if stripeErr.Code != stripe.ErrorCodeResourceMissing {
		return false
	}
	msg := strings.ToLower(stripeErr.Msg)
	return strings.Contains(msg, "no such customer") ||
		strings.Contains(msg, "similar object exists")
}

func vendorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}
