package plans

import (
	"context"
	"encoding/json"
	"time"

	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
	"github.com/scanmyscale/scanmyscale-backend/pkg/redis"
)

type providerRouter interface {
	ProviderForMarket(market string) (payments.Provider, error)
}

// ServiceParams groups dependencies for the plan catalog service.
type ServiceParams struct {
	Router   providerRouter
	Cache    redis.CacheStore
	CacheTTL time.Duration
	Logger   *logger.Logger
}

// Service serves the live plan catalog for a market. Vendor catalogs change
// rarely, so responses are cached read-through; a cache outage degrades to a
// vendor call, never to an error.
type Service struct {
	router   providerRouter
	cache    redis.CacheStore
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService validates params and constructs the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Router == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider router required")
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		router:   params.Router,
		cache:    params.Cache,
		cacheTTL: ttl,
		logg:     params.Logger,
	}, nil
}

// ListForMarket returns the active plans priced in the market's currency.
func (s *Service) ListForMarket(ctx context.Context, market markets.Market) ([]payments.Plan, error) {
	if cached, ok := s.fromCache(ctx, market.ID); ok {
		return cached, nil
	}

	provider, err := s.router.ProviderForMarket(market.ID)
	if err != nil {
		return nil, err
	}
	result := provider.GetPlans(ctx)
	if !result.Success {
		return nil, payments.AsError(result)
	}

	plans := make([]payments.Plan, 0, len(result.Data))
	for _, plan := range result.Data {
		if !plan.IsActive {
			continue
		}
		if plan.Currency != "" && plan.Currency != market.Currency {
			continue
		}
		plans = append(plans, plan)
	}

	s.toCache(ctx, market.ID, plans)
	return plans, nil
}

func (s *Service) fromCache(ctx context.Context, marketID string) ([]payments.Plan, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.CacheKey("plans", marketID))
	if err != nil {
		if err != redis.Nil && s.logg != nil {
			s.logg.Warn(ctx, "plan cache read failed: "+err.Error())
		}
		return nil, false
	}
	var plans []payments.Plan
	if err := json.Unmarshal([]byte(raw), &plans); err != nil {
		return nil, false
	}
	return plans, true
}

func (s *Service) toCache(ctx context.Context, marketID string, plans []payments.Plan) {
	if s.cache == nil {
		return
	}
	encoded, err := json.Marshal(plans)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.CacheKey("plans", marketID), string(encoded), s.cacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "plan cache write failed: "+err.Error())
	}
}
