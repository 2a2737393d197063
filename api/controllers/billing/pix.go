package billing

import (
	"net/http"

	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/api/validators"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// CreatePixCheckout opens a one-time Pix payment for a prepaid subscription
// window.
func CreatePixCheckout(svc CheckoutService, catalog *markets.Catalog, logg *logger.Logger) http.HandlerFunc {
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

		url, err := svc.CreatePixCheckout(ctx, userID, catalog.Resolve(r), tier, interval)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, redirectResponse{URL: url})
	}
}

// VerifyPixPayment confirms a settled Pix purchase and returns the granted
// entitlement window.
func VerifyPixPayment(svc CheckoutService, catalog *markets.Catalog, logg *logger.Logger) http.HandlerFunc {
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

		receipt, err := svc.VerifyPixPayment(ctx, userID, catalog.Resolve(r), validators.SanitizeString(payload.SessionID, 255))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, receipt)
	}
}
