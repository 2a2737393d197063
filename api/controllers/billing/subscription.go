package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/api/validators"
	subscriptionsvc "github.com/scanmyscale/scanmyscale-backend/internal/subscriptions"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// SubscriptionService describes the lifecycle management surface used by the
// HTTP controllers.
type SubscriptionService interface {
	Status(ctx context.Context, userID uuid.UUID) (*subscriptionsvc.Status, error)
	Cancel(ctx context.Context, userID uuid.UUID, immediate bool) error
	Resume(ctx context.Context, userID uuid.UUID) error
	ChangePlan(ctx context.Context, userID uuid.UUID, tier enums.SubscriptionTier, interval enums.BillingInterval) error
	Resync(ctx context.Context, userID uuid.UUID) (*subscriptionsvc.Status, error)
}

type cancelRequest struct {
	Immediate bool `json:"immediate"`
}

// SubscriptionStatus returns the locally stored subscription snapshot.
func SubscriptionStatus(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Status(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// SubscriptionCancel stops the subscription, at period end unless immediate
// is requested.
func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cancelRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		if err := svc.Cancel(ctx, userID, payload.Immediate); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "canceled"})
	}
}

// SubscriptionResume undoes a pending cancellation.
func SubscriptionResume(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Resume(ctx, userID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "resumed"})
	}
}

// SubscriptionChangePlan moves the subscription to a different tier or
// interval.
func SubscriptionChangePlan(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tier, interval, err := parsePlanSelection(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.ChangePlan(ctx, userID, tier, interval); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

// SubscriptionResync refetches vendor state and returns the refreshed
// snapshot.
func SubscriptionResync(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		userID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := svc.Resync(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
