package billing

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/api/middleware"
	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/api/validators"
	checkoutsvc "github.com/scanmyscale/scanmyscale-backend/internal/checkout"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// CheckoutService describes the checkout orchestration used by the HTTP
// controllers.
type CheckoutService interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, market markets.Market, tier enums.SubscriptionTier, interval enums.BillingInterval) (string, error)
	VerifySession(ctx context.Context, userID uuid.UUID, market markets.Market, sessionID string) (*checkoutsvc.VerifiedCheckout, error)
	CreatePixCheckout(ctx context.Context, userID uuid.UUID, market markets.Market, tier enums.SubscriptionTier, interval enums.BillingInterval) (string, error)
	VerifyPixPayment(ctx context.Context, userID uuid.UUID, market markets.Market, sessionID string) (*checkoutsvc.PixReceipt, error)
	PortalURL(ctx context.Context, userID uuid.UUID, market markets.Market) (string, error)
}

type checkoutRequest struct {
	Tier     string `json:"tier" validate:"required"`
	Interval string `json:"interval" validate:"required"`
}

type verifySessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

type redirectResponse struct {
	URL string `json:"url"`
}

// requestIdentity pulls the authenticated user id seeded by the auth
// middleware.
func requestIdentity(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func parsePlanSelection(payload checkoutRequest) (enums.SubscriptionTier, enums.BillingInterval, error) {
	tier, err := enums.ParseSubscriptionTier(strings.TrimSpace(payload.Tier))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier")
	}
	if tier == enums.TierStarter {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "starter tier has no paid plan")
	}
	interval, err := enums.ParseBillingInterval(strings.TrimSpace(payload.Interval))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid interval")
	}
	return tier, interval, nil
}

// CreateCheckout opens a hosted subscription checkout and returns the
// redirect URL.
func CreateCheckout(svc CheckoutService, catalog *markets.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
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

		url, err := svc.CreateCheckout(ctx, userID, catalog.Resolve(r), tier, interval)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, redirectResponse{URL: url})
	}
}

// VerifySession confirms a completed checkout server-side and returns the
// applied subscription state.
func VerifySession(svc CheckoutService, catalog *markets.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requestIdentity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload verifySessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		verified, err := svc.VerifySession(ctx, userID, catalog.Resolve(r), validators.SanitizeString(payload.SessionID, 255))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, verified)
	}
}
