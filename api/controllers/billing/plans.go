package billing

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/scanmyscale/scanmyscale-backend/api/responses"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
)

// PlanService describes the catalog surface used by the HTTP controllers.
type PlanService interface {
	ListForMarket(ctx context.Context, market markets.Market) ([]payments.Plan, error)
}

type planResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Tier        string   `json:"tier"`
	Interval    string   `json:"interval"`
	Currency    string   `json:"currency"`
	AmountCents int64    `json:"amount_cents"`
	Amount      string   `json:"amount"`
	Features    []string `json:"features,omitempty"`
}

type planListResponse struct {
	Market string         `json:"market"`
	Plans  []planResponse `json:"plans"`
}

// ListPlans returns the live plan catalog priced for the caller's market.
func ListPlans(svc PlanService, catalog *markets.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		market := catalog.Resolve(r)
		plans, err := svc.ListForMarket(ctx, market)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		response := planListResponse{
			Market: market.ID,
			Plans:  make([]planResponse, 0, len(plans)),
		}
		for _, plan := range plans {
			response.Plans = append(response.Plans, planToResponse(plan))
		}
		responses.WriteSuccess(w, response)
	}
}

func planToResponse(plan payments.Plan) planResponse {
	return planResponse{
		ID:          plan.ID,
		Name:        plan.Name,
		Tier:        string(plan.Tier),
		Interval:    string(plan.Interval),
		Currency:    plan.Currency,
		AmountCents: plan.Amount,
		Amount:      decimal.NewFromInt(plan.Amount).Shift(-2).StringFixed(2),
		Features:    plan.Features,
	}
}
