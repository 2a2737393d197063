package payments

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// Manager is the provider registry and market router. It is constructed once
// at startup and injected into route handlers; routing is a pure lookup with
// no fallback chain beyond the configured default.
type Manager struct {
	logg            *logger.Logger
	providers       map[enums.PaymentProvider]Provider
	byMarket        map[string]enums.PaymentProvider
	byLocale        map[string]enums.PaymentProvider
	defaultProvider enums.PaymentProvider
}

// ManagerParams groups dependencies for the payment provider manager.
type ManagerParams struct {
	Logger *logger.Logger
	// MarketAssignments maps market ids to the provider serving them.
	MarketAssignments map[string]enums.PaymentProvider
	// LocaleAssignments is the legacy locale-based routing kept for backward
	// compatibility; market routing is authoritative.
	LocaleAssignments map[string]enums.PaymentProvider
	DefaultProvider   enums.PaymentProvider
}

// NewManager builds an empty registry; adapters are added via Register.
func NewManager(params ManagerParams) (*Manager, error) {
	if len(params.MarketAssignments) == 0 {
		return nil, fmt.Errorf("market assignments required")
	}
	if !params.DefaultProvider.IsValid() {
		return nil, fmt.Errorf("default provider required")
	}
	byMarket := make(map[string]enums.PaymentProvider, len(params.MarketAssignments))
	for market, provider := range params.MarketAssignments {
		if !provider.IsValid() {
			return nil, fmt.Errorf("invalid provider %q for market %q", provider, market)
		}
		byMarket[strings.ToLower(strings.TrimSpace(market))] = provider
	}
	byLocale := make(map[string]enums.PaymentProvider, len(params.LocaleAssignments))
	for locale, provider := range params.LocaleAssignments {
		byLocale[strings.ToLower(strings.TrimSpace(locale))] = provider
	}
	return &Manager{
		logg:            params.Logger,
		providers:       make(map[enums.PaymentProvider]Provider),
		byMarket:        byMarket,
		byLocale:        byLocale,
		defaultProvider: params.DefaultProvider,
	}, nil
}

// Register initializes the adapter and stores it on success.
func (m *Manager) Register(ctx context.Context, provider Provider, cfg Config) error {
	if provider == nil {
		return fmt.Errorf("provider is required")
	}
	name := provider.Name()
	if _, exists := m.providers[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	if err := provider.Initialize(cfg); err != nil {
		return fmt.Errorf("initialize %s: %w", name, err)
	}
	m.providers[name] = provider
	if m.logg != nil {
		m.logg.Info(m.logg.WithProvider(ctx, name.String()), "payment provider registered")
	}
	return nil
}

// Registration pairs an adapter with its config for batch registration.
type Registration struct {
	Provider Provider
	Config   Config
}

// RegisterAll registers every adapter, aggregating failures so one broken
// vendor does not block the rest. The caller decides whether the aggregate is
// fatal; a partially degraded registry still serves its healthy markets.
func (m *Manager) RegisterAll(ctx context.Context, registrations []Registration) error {
	var errs error
	for _, reg := range registrations {
		if err := m.Register(ctx, reg.Provider, reg.Config); err != nil {
			if m.logg != nil {
				m.logg.Error(ctx, "payment provider registration failed", err)
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Provider returns the registered adapter by name.
func (m *Manager) Provider(name enums.PaymentProvider) (Provider, error) {
	provider, ok := m.providers[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("payment provider %s not registered", name))
	}
	return provider, nil
}

// ProviderForMarket resolves the adapter assigned to the market. No fallback
// walking: an unassigned market is an explicit not-found.
func (m *Manager) ProviderForMarket(market string) (Provider, error) {
	name, ok := m.byMarket[strings.ToLower(strings.TrimSpace(market))]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no payment provider configured for market %q", market))
	}
	return m.Provider(name)
}

// ProviderForLocale is the legacy routing path; unknown locales fall back to
// the default provider.
func (m *Manager) ProviderForLocale(locale string) (Provider, error) {
	name, ok := m.byLocale[strings.ToLower(strings.TrimSpace(locale))]
	if !ok {
		name = m.defaultProvider
	}
	return m.Provider(name)
}

// RegisteredProviders lists registered adapter names in stable order.
func (m *Manager) RegisteredProviders() []enums.PaymentProvider {
	names := make([]enums.PaymentProvider, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
