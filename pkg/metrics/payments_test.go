package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if !labelsMatch(metric, labels) {
				continue
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, pair := range metric.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for name, value := range want {
		if got[name] != value {
			return false
		}
	}
	return true
}

func TestPaymentMetricsCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncCheckoutSession("stripe", "created")
	m.IncCheckoutSession("stripe", "created")
	m.IncCheckoutSession("stripe", "failed")
	m.IncWebhookEvent("revenuecat", "subscription.updated", "applied")
	m.IncSubscriptionSync("stripe", "webhook")

	require.Equal(t, 2.0, counterValue(t, reg, "payment_checkout_sessions",
		map[string]string{"provider": "stripe", "outcome": "created"}))
	require.Equal(t, 1.0, counterValue(t, reg, "payment_checkout_sessions",
		map[string]string{"provider": "stripe", "outcome": "failed"}))
	require.Equal(t, 1.0, counterValue(t, reg, "payment_webhook_events",
		map[string]string{"provider": "revenuecat", "event_type": "subscription.updated", "outcome": "applied"}))
	require.Equal(t, 1.0, counterValue(t, reg, "payment_subscription_syncs",
		map[string]string{"provider": "stripe", "source": "webhook"}))
}

func TestPaymentMetricsNormalizesEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncCheckoutSession("", "")

	require.Equal(t, 1.0, counterValue(t, reg, "payment_checkout_sessions",
		map[string]string{"provider": "unknown", "outcome": "unknown"}))
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var m *PaymentMetrics
	m.IncCheckoutSession("stripe", "created")
	m.IncSubscriptionSync("stripe", "webhook")
	m.IncWebhookEvent("stripe", "x", "applied")
	m.ObserveProviderLatency("stripe", "checkout", time.Second)

	unregistered := NewPaymentMetrics(nil)
	unregistered.IncCheckoutSession("stripe", "created")
}
