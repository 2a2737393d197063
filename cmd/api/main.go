package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scanmyscale/scanmyscale-backend/api/routes"
	"github.com/scanmyscale/scanmyscale-backend/internal/checkout"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments/revenuecat"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments/stripeadapter"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments/stub"
	"github.com/scanmyscale/scanmyscale-backend/internal/plans"
	"github.com/scanmyscale/scanmyscale-backend/internal/subscriptions"
	"github.com/scanmyscale/scanmyscale-backend/internal/users"
	"github.com/scanmyscale/scanmyscale-backend/internal/webhooks"
	"github.com/scanmyscale/scanmyscale-backend/pkg/config"
	"github.com/scanmyscale/scanmyscale-backend/pkg/db"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
	"github.com/scanmyscale/scanmyscale-backend/pkg/metrics"
	"github.com/scanmyscale/scanmyscale-backend/pkg/migrate"
	"github.com/scanmyscale/scanmyscale-backend/pkg/redis"
	pkgstripe "github.com/scanmyscale/scanmyscale-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalog, err := markets.NewCatalog(markets.Defaults(), cfg.Markets.DefaultMarket)
	if err != nil {
		logg.Error(context.Background(), "failed to build market catalog", err)
		os.Exit(1)
	}

	priceTable, err := payments.ParsePriceTable(cfg.Stripe.PriceTableJSON)
	if err != nil {
		logg.Error(context.Background(), "failed to parse price table", err)
		os.Exit(1)
	}
	pixPrices, err := checkout.ParsePixPrices(cfg.Billing.PixPricesJSON)
	if err != nil {
		logg.Error(context.Background(), "failed to parse pix price table", err)
		os.Exit(1)
	}

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	manager, err := buildProviderManager(cfg, logg, catalog)
	if err != nil {
		logg.Error(context.Background(), "failed to build payment manager", err)
		os.Exit(1)
	}

	stripeAdapter := stripeadapter.New(stripeadapter.Params{Logger: logg, PriceTable: priceTable})
	revenueCatAdapter := revenuecat.New(revenuecat.Params{Logger: logg, Client: buildRevenueCatClient(cfg, logg)})

	registrations := []payments.Registration{
		{Provider: stripeAdapter, Config: payments.Config{
			APIKey:        cfg.Stripe.APIKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Environment:   cfg.Stripe.Environment(),
		}},
		{Provider: revenueCatAdapter, Config: payments.Config{
			APIKey:        cfg.RevenueCat.APIKey,
			WebhookSecret: cfg.RevenueCat.WebhookSecret,
		}},
		{Provider: stub.NewMercadoPago(), Config: payments.Config{}},
		{Provider: stub.NewPagarme(), Config: payments.Config{}},
		{Provider: stub.NewPagseguro(), Config: payments.Config{}},
	}
	// A vendor that fails to register leaves its markets unserved but does not
	// take down the rest.
	if err := manager.RegisterAll(context.Background(), registrations); err != nil {
		logg.Error(context.Background(), "payment provider registration degraded", err)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	usersRepo := users.NewRepository(dbClient.DB())
	paymentsRepo := checkout.NewRepository(dbClient.DB())

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Users:           usersRepo,
		Payments:        paymentsRepo,
		Router:          manager,
		PriceTable:      priceTable,
		PixPrices:       pixPrices,
		Logger:          logg,
		Metrics:         paymentMetrics,
		SuccessURL:      cfg.Billing.CheckoutSuccessURL,
		CancelURL:       cfg.Billing.CheckoutCancelURL,
		PortalReturnURL: cfg.Billing.PortalReturnURL,
		TrialDays:       cfg.Billing.TrialDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Users:      usersRepo,
		Registry:   manager,
		PriceTable: priceTable,
		Logger:     logg,
		Metrics:    paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	planService, err := plans.NewService(plans.ServiceParams{
		Router:   manager,
		Cache:    redisClient,
		CacheTTL: cfg.Billing.PlanCacheTTL,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plan service", err)
		os.Exit(1)
	}

	eventSink, err := webhooks.NewService(webhooks.ServiceParams{
		Users:   usersRepo,
		Logger:  logg,
		Metrics: paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook sync service", err)
		os.Exit(1)
	}

	stripeGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Billing.WebhookGuardTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}
	revenueCatGuard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Billing.WebhookGuardTTL, "revenuecat")
	if err != nil {
		logg.Error(context.Background(), "failed to create revenuecat webhook guard", err)
		os.Exit(1)
	}

	revenueCatSecret := strings.TrimSpace(cfg.Webhooks.RevenueCatAuth)
	if revenueCatSecret == "" {
		revenueCatSecret = cfg.RevenueCat.WebhookSecret
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			RedisClient: redisClient,
			Catalog:     catalog,

			Plans:        planService,
			Checkout:     checkoutService,
			Subscription: subscriptionService,

			StripeClient:    stripeClient,
			StripeProcessor: stripeAdapter,
			StripeGuard:     stripeGuard,

			RevenueCatProcessor: revenueCatAdapter,
			RevenueCatVerifier:  revenueCatAdapter,
			RevenueCatGuard:     revenueCatGuard,
			RevenueCatSecret:    revenueCatSecret,

			EventSink: eventSink,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildProviderManager derives the market and locale routing tables from the
// market catalog entries.
func buildProviderManager(cfg *config.Config, logg *logger.Logger, catalog *markets.Catalog) (*payments.Manager, error) {
	byLocale := map[string]enums.PaymentProvider{}
	for _, m := range markets.Defaults() {
		if m.Locale != "" {
			byLocale[m.Locale] = m.PaymentProvider
		}
	}
	defaultProvider := enums.ProviderStripe
	if m, ok := catalog.ByID(cfg.Markets.DefaultMarket); ok {
		defaultProvider = m.PaymentProvider
	}
	return payments.NewManager(payments.ManagerParams{
		Logger:            logg,
		MarketAssignments: catalog.Assignments(),
		LocaleAssignments: byLocale,
		DefaultProvider:   defaultProvider,
	})
}

func buildRevenueCatClient(cfg *config.Config, logg *logger.Logger) *revenuecat.Client {
	if strings.TrimSpace(cfg.RevenueCat.APIKey) == "" {
		return nil
	}
	client, err := revenuecat.NewClient(revenuecat.ClientParams{
		APIKey:     cfg.RevenueCat.APIKey,
		BaseURL:    cfg.RevenueCat.BaseURL,
		Timeout:    cfg.RevenueCat.Timeout,
		MaxRetries: cfg.RevenueCat.MaxRetries,
	})
	if err != nil {
		logg.Warn(context.Background(), "revenuecat client unavailable: "+err.Error())
		return nil
	}
	return client
}
