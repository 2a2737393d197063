package webhooks

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// WebhookVerifier checks the vendor's authentication scheme for a delivery.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature, secret string) bool
}

// RevenueCatWebhook handles store subscription events relayed by RevenueCat.
// Authentication is the configured shared secret in the Authorization header.
func RevenueCatWebhook(processor EventProcessor, verifier WebhookVerifier, sink EventSink, guard webhookGuard, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if processor == nil || verifier == nil || sink == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
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

		authHeader := r.Header.Get("Authorization")
		if !verifier.VerifyWebhook(payload, authHeader, secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook credentials"))
			return
		}

		eventID := revenueCatEventID(payload)
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "event id missing"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		result := processor.ProcessWebhook(ctx, payments.WebhookEvent{
			ID:        eventID,
			Provider:  enums.ProviderRevenueCat,
			Type:      "",
			Payload:   payload,
			Timestamp: time.Now().UTC(),
			Signature: authHeader,
		})
		if !result.Success {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, payments.AsError(result))
			return
		}

		if err := sink.Apply(ctx, enums.ProviderRevenueCat, result.Data); err != nil {
			_ = guard.Delete(ctx, eventID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("revenuecat event %s processed", eventID))
		}
		responses.WriteSuccess(w, nil)
	}
}

func revenueCatEventID(payload []byte) string {
	var probe struct {
		Event struct {
			ID string `json:"id"`
		} `json:"event"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.Event.ID
}
