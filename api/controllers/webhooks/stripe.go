package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// EventProcessor normalizes a raw vendor event.
type EventProcessor interface {
	ProcessWebhook(ctx context.Context, event payments.WebhookEvent) payments.Result[payments.WebhookResult]
}

// EventSink applies a normalized event to local state.
type EventSink interface {
	Apply(ctx context.Context, provider enums.PaymentProvider, result payments.WebhookResult) error
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook handles Stripe subscription lifecycle and invoice events.
// Failures return non-2xx so Stripe redelivers; the idempotency mark is
// released before erroring for the same reason.
func StripeWebhook(processor EventProcessor, sink EventSink, client stripeClient, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if processor == nil || sink == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify signature"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		// The adapter consumes the event object, not the signed envelope.
		var objectPayload []byte
		if event.Data != nil {
			objectPayload = event.Data.Raw
		}

		result := processor.ProcessWebhook(ctx, payments.WebhookEvent{
			ID:        event.ID,
			Provider:  enums.ProviderStripe,
			Type:      string(event.Type),
			Payload:   objectPayload,
			Timestamp: time.Unix(event.Created, 0),
			Signature: sigHeader,
		})
		if !result.Success {
			_ = guard.Delete(ctx, event.ID)
			responses.WriteError(ctx, logg, w, payments.AsError(result))
			return
		}

		if err := sink.Apply(ctx, enums.ProviderStripe, result.Data); err != nil {
			_ = guard.Delete(ctx, event.ID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s processed", event.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
