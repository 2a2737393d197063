package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanmyscale/scanmyscale-backend/api/controllers"
	billingcontrollers "github.com/scanmyscale/scanmyscale-backend/api/controllers/billing"
	webhookcontrollers "github.com/scanmyscale/scanmyscale-backend/api/controllers/webhooks"
	"github.com/scanmyscale/scanmyscale-backend/api/middleware"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	webhooksvc "github.com/scanmyscale/scanmyscale-backend/internal/webhooks"
	"github.com/scanmyscale/scanmyscale-backend/pkg/config"
	"github.com/scanmyscale/scanmyscale-backend/pkg/db"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
	"github.com/scanmyscale/scanmyscale-backend/pkg/redis"
	pkgstripe "github.com/scanmyscale/scanmyscale-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface needs. Webhook routes are
// mounted outside the authenticated group so raw bodies reach signature
// verification untouched.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB          db.Pinger
	RedisClient *redis.Client

	Catalog *markets.Catalog

	Plans        billingcontrollers.PlanService
	Checkout     billingcontrollers.CheckoutService
	Subscription billingcontrollers.SubscriptionService

	StripeClient    *pkgstripe.Client
	StripeProcessor webhookcontrollers.EventProcessor
	StripeGuard     *webhooksvc.IdempotencyGuard

	RevenueCatProcessor webhookcontrollers.EventProcessor
	RevenueCatVerifier  webhookcontrollers.WebhookVerifier
	RevenueCatGuard     *webhooksvc.IdempotencyGuard
	RevenueCatSecret    string

	EventSink webhookcontrollers.EventSink
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.RedisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.StripeProcessor, params.EventSink, params.StripeClient, params.StripeGuard, logg))
		r.Post("/revenuecat", webhookcontrollers.RevenueCatWebhook(params.RevenueCatProcessor, params.RevenueCatVerifier, params.EventSink, params.RevenueCatGuard, params.RevenueCatSecret, logg))
	})

	r.Route("/api/v1/billing", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(params.RedisClient, logg))

		r.Get("/plans", billingcontrollers.ListPlans(params.Plans, params.Catalog, logg))

		r.Post("/checkout", billingcontrollers.CreateCheckout(params.Checkout, params.Catalog, logg))
		r.Post("/verify-session", billingcontrollers.VerifySession(params.Checkout, params.Catalog, logg))
		r.Post("/pix-checkout", billingcontrollers.CreatePixCheckout(params.Checkout, params.Catalog, logg))
		r.Post("/verify-pix", billingcontrollers.VerifyPixPayment(params.Checkout, params.Catalog, logg))
		r.Post("/portal", billingcontrollers.Portal(params.Checkout, params.Catalog, logg))

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", billingcontrollers.SubscriptionStatus(params.Subscription, logg))
			r.Post("/cancel", billingcontrollers.SubscriptionCancel(params.Subscription, logg))
			r.Post("/resume", billingcontrollers.SubscriptionResume(params.Subscription, logg))
			r.Post("/change-plan", billingcontrollers.SubscriptionChangePlan(params.Subscription, logg))
			r.Post("/resync", billingcontrollers.SubscriptionResync(params.Subscription, logg))
		})
	})

	return r
}
