package stripeadapter

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/customer"
	"github.com/stripe/stripe-go/v84/price"
	"github.com/stripe/stripe-go/v84/subscription"
)

// API is the subset of Stripe operations the adapter needs. The adapter is
// tested against a stub implementation of this interface.
type API interface {
	CustomerCreate(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)
	CustomerGet(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	CustomerUpdate(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error)
	CheckoutSessionCreate(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CheckoutSessionGet(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	SubscriptionGet(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	SubscriptionUpdate(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	SubscriptionCancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
	PriceList(ctx context.Context, params *stripe.PriceListParams) ([]*stripe.Price, error)
	PriceGet(ctx context.Context, id string, params *stripe.PriceParams) (*stripe.Price, error)
	PortalSessionCreate(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

type liveAPI struct{}

// NewLiveAPI returns the production Stripe binding.
func NewLiveAPI() API {
	return &liveAPI{}
}

func (a *liveAPI) CustomerCreate(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params != nil {
		params.Context = ctx
	}
	return customer.New(params)
}

func (a *liveAPI) CustomerGet(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params == nil {
		params = &stripe.CustomerParams{}
	}
	params.Context = ctx
	return customer.Get(id, params)
}

func (a *liveAPI) CustomerUpdate(ctx context.Context, id string, params *stripe.CustomerParams) (*stripe.Customer, error) {
	if params != nil {
		params.Context = ctx
	}
	return customer.Update(id, params)
}

func (a *liveAPI) CheckoutSessionCreate(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}

func (a *liveAPI) CheckoutSessionGet(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		params = &stripe.CheckoutSessionParams{}
	}
	params.Context = ctx
	return session.Get(id, params)
}

func (a *liveAPI) SubscriptionGet(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params == nil {
		params = &stripe.SubscriptionParams{}
	}
	params.Context = ctx
	return subscription.Get(id, params)
}

func (a *liveAPI) SubscriptionUpdate(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.Update(id, params)
}

func (a *liveAPI) SubscriptionCancel(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	if params != nil {
		params.Context = ctx
	}
	return subscription.Cancel(id, params)
}

func (a *liveAPI) PriceList(ctx context.Context, params *stripe.PriceListParams) ([]*stripe.Price, error) {
	if params == nil {
		params = &stripe.PriceListParams{}
	}
	params.Context = ctx
	iter := price.List(params)
	var prices []*stripe.Price
	for iter.Next() {
		prices = append(prices, iter.Price())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return prices, nil
}

func (a *liveAPI) PriceGet(ctx context.Context, id string, params *stripe.PriceParams) (*stripe.Price, error) {
	if params == nil {
		params = &stripe.PriceParams{}
	}
	params.Context = ctx
	return price.Get(id, params)
}

func (a *liveAPI) PortalSessionCreate(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	if params != nil {
		params.Context = ctx
	}
	return portalsession.New(params)
}
