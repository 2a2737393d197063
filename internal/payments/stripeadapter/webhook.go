package stripeadapter

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
)

// VerifyWebhook checks the Stripe-Signature header against the raw body.
// ConstructEvent does the timestamp tolerance and constant-time HMAC check.
func (a *Adapter) VerifyWebhook(payload []byte, signature, secret string) bool {
	_, err := webhook.ConstructEvent(payload, signature, secret)
	return err == nil
}

// ConstructEvent parses and verifies a raw webhook request into a typed event.
func (a *Adapter) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, a.webhookSecret)
}

// ProcessWebhook normalizes a verified event. The payload is the event's
// object JSON; unrecognized event types are acknowledged as ignored so the
// vendor does not retry them.
func (a *Adapter) ProcessWebhook(ctx context.Context, event payments.WebhookEvent) payments.Result[payments.WebhookResult] {
	switch stripe.EventType(event.Type) {
	case stripe.EventTypeCustomerSubscriptionCreated:
		return a.subscriptionEvent(ctx, event.Payload, payments.EventSubscriptionCreated)
	case stripe.EventTypeCustomerSubscriptionUpdated:
		return a.subscriptionEvent(ctx, event.Payload, payments.EventSubscriptionUpdated)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return a.subscriptionEvent(ctx, event.Payload, payments.EventSubscriptionCanceled)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentSucceeded:
		return a.invoiceEvent(ctx, event.Payload, payments.EventPaymentSucceeded)
	case stripe.EventTypeInvoicePaymentFailed:
		return a.invoiceEvent(ctx, event.Payload, payments.EventPaymentFailed)
	case stripe.EventTypeCustomerUpdated:
		return a.customerEvent(event.Payload)
	default:
		return payments.OK(payments.WebhookResult{Type: payments.EventIgnored})
	}
}

func (a *Adapter) subscriptionEvent(ctx context.Context, payload []byte, eventType payments.EventType) payments.Result[payments.WebhookResult] {
	var sub stripe.Subscription
	if err := json.Unmarshal(payload, &sub); err != nil {
		return payments.Fail[payments.WebhookResult](payments.ErrWebhookProcessingFailed, "decode subscription event: "+err.Error())
	}
	mapped := a.mapSubscription(ctx, &sub)
	return payments.OK(payments.WebhookResult{
		Type:         eventType,
		Subscription: &mapped,
	})
}

// invoiceEvent resolves the invoice back to its subscription and refetches it
// so payment events carry current period and status rather than the stale
// snapshot embedded in the invoice.
func (a *Adapter) invoiceEvent(ctx context.Context, payload []byte, eventType payments.EventType) payments.Result[payments.WebhookResult] {
	subscriptionID := invoiceSubscriptionID(payload)
	if subscriptionID == "" {
		// One-off invoices have no subscription; nothing to sync.
		return payments.OK(payments.WebhookResult{Type: payments.EventIgnored})
	}
	sub, err := a.api.SubscriptionGet(ctx, subscriptionID, nil)
	if err != nil {
		return payments.Fail[payments.WebhookResult](payments.ErrWebhookProcessingFailed, vendorMessage(err))
	}
	mapped := a.mapSubscription(ctx, sub)
	return payments.OK(payments.WebhookResult{
		Type:         eventType,
		Subscription: &mapped,
	})
}

func (a *Adapter) customerEvent(payload []byte) payments.Result[payments.WebhookResult] {
	var cust stripe.Customer
	if err := json.Unmarshal(payload, &cust); err != nil {
		return payments.Fail[payments.WebhookResult](payments.ErrWebhookProcessingFailed, "decode customer event: "+err.Error())
	}
	mapped := customerFromStripe(&cust, userIDFromMetadata(cust.Metadata))
	return payments.OK(payments.WebhookResult{
		Type:     payments.EventCustomerUpdated,
		Customer: &mapped,
	})
}

// invoiceSubscriptionID extracts the subscription reference from an invoice
// payload, covering both the flat legacy field and the parent details shape.
func invoiceSubscriptionID(payload []byte) string {
	var probe struct {
		Subscription string `json:"subscription"`
		Parent       struct {
			SubscriptionDetails struct {
				Subscription string `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	if probe.Subscription != "" {
		return probe.Subscription
	}
	return probe.Parent.SubscriptionDetails.Subscription
}
