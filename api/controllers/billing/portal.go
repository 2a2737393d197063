package billing

import (
	"net/http"

	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// Portal returns a vendor-hosted billing management URL for the user.
func Portal(svc CheckoutService, catalog *markets.Catalog, logg *logger.Logger) http.HandlerFunc {
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

		url, err := svc.PortalURL(ctx, userID, catalog.Resolve(r))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, redirectResponse{URL: url})
	}
}
