// Package stub holds placeholder adapters for Latin American gateways under
// evaluation. They register so routing tables can name them, but every
// operation reports NOT_SUPPORTED_BY_PROVIDER until a real integration lands.
package stub

import (
	"context"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// Adapter is a named placeholder implementing the full provider contract.
type Adapter struct {
	name enums.PaymentProvider
}

// NewMercadoPago returns the MercadoPago placeholder.
func NewMercadoPago() *Adapter {
	return &Adapter{name: enums.ProviderMercadoPago}
}

// NewPagarme returns the Pagarme placeholder.
func NewPagarme() *Adapter {
	return &Adapter{name: enums.ProviderPagarme}
}

// NewPagseguro returns the Pagseguro placeholder.
func NewPagseguro() *Adapter {
	return &Adapter{name: enums.ProviderPagseguro}
}

func (a *Adapter) Name() enums.PaymentProvider {
	return a.name
}

// Initialize accepts any config; there is no vendor to talk to yet.
func (a *Adapter) Initialize(cfg payments.Config) error {
	return nil
}

func (a *Adapter) CreateCustomer(ctx context.Context, email, name string, userID uuid.UUID) payments.Result[payments.Customer] {
	return payments.NotSupported[payments.Customer]("customer creation")
}

func (a *Adapter) GetCustomer(ctx context.Context, customerID string) payments.Result[payments.Customer] {
	return payments.NotSupported[payments.Customer]("customer lookup")
}

func (a *Adapter) UpdateCustomer(ctx context.Context, customerID, email, name string) payments.Result[payments.Customer] {
	return payments.NotSupported[payments.Customer]("customer update")
}

func (a *Adapter) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) payments.Result[payments.CheckoutSession] {
	return payments.NotSupported[payments.CheckoutSession]("hosted checkout")
}

func (a *Adapter) GetSubscription(ctx context.Context, subscriptionID string) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("subscription lookup")
}

func (a *Adapter) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("subscription cancellation")
}

func (a *Adapter) ResumeSubscription(ctx context.Context, subscriptionID string) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("subscription resume")
}

func (a *Adapter) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID string) payments.Result[payments.Subscription] {
	return payments.NotSupported[payments.Subscription]("plan change")
}

func (a *Adapter) GetPlans(ctx context.Context) payments.Result[[]payments.Plan] {
	return payments.NotSupported[[]payments.Plan]("plan listing")
}

func (a *Adapter) GetPlan(ctx context.Context, planID string) payments.Result[payments.Plan] {
	return payments.NotSupported[payments.Plan]("plan lookup")
}

// VerifyWebhook always fails: a gateway with no integration has no valid
// signatures.
func (a *Adapter) VerifyWebhook(payload []byte, signature, secret string) bool {
	return false
}

func (a *Adapter) ProcessWebhook(ctx context.Context, event payments.WebhookEvent) payments.Result[payments.WebhookResult] {
	return payments.NotSupported[payments.WebhookResult]("webhook processing")
}
