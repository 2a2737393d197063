package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

type fakeProvider struct {
	name    enums.PaymentProvider
	initErr error
	inits   int
}

func (f *fakeProvider) Name() enums.PaymentProvider { return f.name }

func (f *fakeProvider) Initialize(cfg Config) error {
	f.inits++
	return f.initErr
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, name string, userID uuid.UUID) Result[Customer] {
	return OK(Customer{Provider: f.name})
}

func (f *fakeProvider) GetCustomer(ctx context.Context, customerID string) Result[Customer] {
	return OK(Customer{Provider: f.name})
}

func (f *fakeProvider) UpdateCustomer(ctx context.Context, customerID, email, name string) Result[Customer] {
	return OK(Customer{Provider: f.name})
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) Result[CheckoutSession] {
	return OK(CheckoutSession{Provider: f.name})
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) Result[Subscription] {
	return OK(Subscription{Provider: f.name})
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, subscriptionID string, immediate bool) Result[Subscription] {
	return OK(Subscription{Provider: f.name})
}

func (f *fakeProvider) ResumeSubscription(ctx context.Context, subscriptionID string) Result[Subscription] {
	return OK(Subscription{Provider: f.name})
}

func (f *fakeProvider) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, newPlanID string) Result[Subscription] {
	return OK(Subscription{Provider: f.name})
}

func (f *fakeProvider) GetPlans(ctx context.Context) Result[[]Plan] {
	return OK([]Plan{})
}

func (f *fakeProvider) GetPlan(ctx context.Context, planID string) Result[Plan] {
	return OK(Plan{Provider: f.name})
}

func (f *fakeProvider) VerifyWebhook(payload []byte, signature, secret string) bool {
	return true
}

func (f *fakeProvider) ProcessWebhook(ctx context.Context, event WebhookEvent) Result[WebhookResult] {
	return OK(WebhookResult{Type: EventIgnored})
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(ManagerParams{
		MarketAssignments: map[string]enums.PaymentProvider{
			"us":     enums.ProviderStripe,
			"br":     enums.ProviderStripe,
			"mobile": enums.ProviderRevenueCat,
		},
		LocaleAssignments: map[string]enums.PaymentProvider{
			"pt-br": enums.ProviderStripe,
		},
		DefaultProvider: enums.ProviderStripe,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return manager
}

func TestManager_RegisterAndRoute(t *testing.T) {
	manager := newTestManager(t)
	stripe := &fakeProvider{name: enums.ProviderStripe}
	rc := &fakeProvider{name: enums.ProviderRevenueCat}

	if err := manager.Register(context.Background(), stripe, Config{}); err != nil {
		t.Fatalf("register stripe: %v", err)
	}
	if err := manager.Register(context.Background(), rc, Config{}); err != nil {
		t.Fatalf("register revenuecat: %v", err)
	}
	if stripe.inits != 1 {
		t.Fatalf("expected one initialization, got %d", stripe.inits)
	}

	provider, err := manager.ProviderForMarket("mobile")
	if err != nil {
		t.Fatalf("route mobile: %v", err)
	}
	if provider.Name() != enums.ProviderRevenueCat {
		t.Fatalf("mobile routed to %s", provider.Name())
	}

	provider, err = manager.ProviderForMarket("BR")
	if err != nil {
		t.Fatalf("route br: %v", err)
	}
	if provider.Name() != enums.ProviderStripe {
		t.Fatalf("br routed to %s", provider.Name())
	}
}

func TestManager_UnassignedMarketIsNotFound(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.Register(context.Background(), &fakeProvider{name: enums.ProviderStripe}, Config{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := manager.ProviderForMarket("jp"); err == nil {
		t.Fatalf("expected unassigned market to fail")
	}
}

func TestManager_LocaleFallsBackToDefault(t *testing.T) {
	manager := newTestManager(t)
	if err := manager.Register(context.Background(), &fakeProvider{name: enums.ProviderStripe}, Config{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	provider, err := manager.ProviderForLocale("fr")
	if err != nil {
		t.Fatalf("locale fallback: %v", err)
	}
	if provider.Name() != enums.ProviderStripe {
		t.Fatalf("expected default provider, got %s", provider.Name())
	}
}

func TestManager_RejectsDuplicateRegistration(t *testing.T) {
	manager := newTestManager(t)
	provider := &fakeProvider{name: enums.ProviderStripe}
	if err := manager.Register(context.Background(), provider, Config{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := manager.Register(context.Background(), provider, Config{}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestManager_RegisterAllContinuesPastFailures(t *testing.T) {
	manager := newTestManager(t)
	broken := &fakeProvider{name: enums.ProviderStripe, initErr: errors.New("bad key")}
	healthy := &fakeProvider{name: enums.ProviderRevenueCat}

	err := manager.RegisterAll(context.Background(), []Registration{
		{Provider: broken, Config: Config{}},
		{Provider: healthy, Config: Config{}},
	})
	if err == nil {
		t.Fatalf("expected aggregated error")
	}
	if _, lookupErr := manager.Provider(enums.ProviderRevenueCat); lookupErr != nil {
		t.Fatalf("healthy provider should survive sibling failure: %v", lookupErr)
	}
	if _, lookupErr := manager.Provider(enums.ProviderStripe); lookupErr == nil {
		t.Fatalf("broken provider should not register")
	}
}
