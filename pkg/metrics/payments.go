package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment flow outcomes. A nil receiver is safe so
// tests and tools can skip registration.
type PaymentMetrics struct {
	checkoutSessions *prometheus.CounterVec
	subscriptionSync *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_checkout_sessions",
		Help: "Checkout sessions by provider and outcome.",
	}, []string{"provider", "outcome"})
	subscriptionSync := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_subscription_syncs",
		Help: "Subscription state writes by provider and source.",
	}, []string{"provider", "source"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events",
		Help: "Webhook events by provider, type and outcome.",
	}, []string{"provider", "event_type", "outcome"})
	providerLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_provider_latency_seconds",
		Help:    "Latency of payment vendor calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "operation"})
	reg.MustRegister(checkoutSessions, subscriptionSync, webhookEvents, providerLatency)
	return &PaymentMetrics{
		checkoutSessions: checkoutSessions,
		subscriptionSync: subscriptionSync,
		webhookEvents:    webhookEvents,
		providerLatency:  providerLatency,
	}
}

// IncCheckoutSession counts one checkout session outcome.
func (p *PaymentMetrics) IncCheckoutSession(provider, outcome string) {
	if p == nil || p.checkoutSessions == nil {
		return
	}
	p.checkoutSessions.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncSubscriptionSync counts one subscription state write.
func (p *PaymentMetrics) IncSubscriptionSync(provider, source string) {
	if p == nil || p.subscriptionSync == nil {
		return
	}
	p.subscriptionSync.WithLabelValues(normalizeLabel(provider), normalizeLabel(source)).Inc()
}

// IncWebhookEvent counts one processed webhook event.
func (p *PaymentMetrics) IncWebhookEvent(provider, eventType, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(provider), normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveProviderLatency records the duration of one vendor call.
func (p *PaymentMetrics) ObserveProviderLatency(provider, operation string, duration time.Duration) {
	if p == nil || p.providerLatency == nil {
		return
	}
	p.providerLatency.WithLabelValues(normalizeLabel(provider), normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
