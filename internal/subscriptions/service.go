package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/internal/users"
	"github.com/scanmyscale/scanmyscale-backend/pkg/db/models"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
	"github.com/scanmyscale/scanmyscale-backend/pkg/logger"
	"github.com/scanmyscale/scanmyscale-backend/pkg/metrics"
)

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, update users.SubscriptionUpdate) error
}

type providerRegistry interface {
	Provider(name enums.PaymentProvider) (payments.Provider, error)
}

// ServiceParams groups dependencies for the subscription management service.
type ServiceParams struct {
	Users      userRepository
	Registry   providerRegistry
	PriceTable *payments.PriceTable
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics
}

// Service manages the lifecycle of an existing subscription: cancel, resume,
// plan change and resync. Routing goes by the provider already recorded on
// the user, not by market; a user keeps their vendor for the life of the
// subscription.
type Service struct {
	users      userRepository
	registry   providerRegistry
	priceTable *payments.PriceTable
	logg       *logger.Logger
	metrics    *metrics.PaymentMetrics
}

// NewService validates params and constructs the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider registry required")
	}
	if params.PriceTable == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "price table required")
	}
	return &Service{
		users:      params.Users,
		registry:   params.Registry,
		priceTable: params.PriceTable,
		logg:       params.Logger,
		metrics:    params.Metrics,
	}, nil
}

// Status is the user-facing view of the current subscription.
type Status struct {
	Tier              enums.SubscriptionTier   `json:"tier"`
	Status            enums.SubscriptionStatus `json:"status"`
	Provider          *enums.PaymentProvider   `json:"provider,omitempty"`
	CancelAtPeriodEnd bool                     `json:"cancelAtPeriodEnd"`
	CurrentPeriodEnd  *string                  `json:"currentPeriodEnd,omitempty"`
	EndsAt            *string                  `json:"endsAt,omitempty"`
	Entitled          bool                     `json:"entitled"`
}

// Cancel stops the user's subscription. By default the subscription runs to
// the end of the paid period; immediate revokes access now.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID, immediate bool) error {
	user, provider, err := s.resolve(ctx, userID)
	if err != nil {
		return err
	}

	result := provider.CancelSubscription(ctx, *user.ProviderSubscriptionID, immediate)
	if !result.Success {
		return payments.AsError(result)
	}
	if err := s.apply(ctx, user, result.Data); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "subscription canceled")
	}
	return nil
}

// Resume undoes a pending cancellation before the period ends.
func (s *Service) Resume(ctx context.Context, userID uuid.UUID) error {
	user, provider, err := s.resolve(ctx, userID)
	if err != nil {
		return err
	}

	result := provider.ResumeSubscription(ctx, *user.ProviderSubscriptionID)
	if !result.Success {
		return payments.AsError(result)
	}
	return s.apply(ctx, user, result.Data)
}

// ChangePlan moves the subscription to a different tier or interval. The new
// plan must have a configured price in the subscription's currency; the
// vendor prorates the difference.
func (s *Service) ChangePlan(ctx context.Context, userID uuid.UUID, tier enums.SubscriptionTier, interval enums.BillingInterval) error {
	user, provider, err := s.resolve(ctx, userID)
	if err != nil {
		return err
	}

	current := provider.GetSubscription(ctx, *user.ProviderSubscriptionID)
	if !current.Success {
		return payments.AsError(current)
	}
	if current.Data.Tier == tier && current.Data.Interval == interval {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "already on this plan")
	}

	priceID, ok := s.priceTable.PriceID(tier, interval, current.Data.Currency)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "no price configured for this plan in your currency")
	}

	result := provider.ChangeSubscriptionPlan(ctx, *user.ProviderSubscriptionID, priceID)
	if !result.Success {
		return payments.AsError(result)
	}
	return s.apply(ctx, user, result.Data)
}

// Resync refetches the subscription from the vendor and overwrites the local
// snapshot. Used when a webhook was missed or state looks stale.
func (s *Service) Resync(ctx context.Context, userID uuid.UUID) (*Status, error) {
	user, provider, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := provider.GetSubscription(ctx, *user.ProviderSubscriptionID)
	if !result.Success {
		return nil, payments.AsError(result)
	}
	if err := s.apply(ctx, user, result.Data); err != nil {
		return nil, err
	}
	refreshed, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
	}
	status := statusFromUser(refreshed, result.Data.CancelAtPeriodEnd)
	return &status, nil
}

// Status reads the locally stored subscription snapshot. It never calls the
// vendor; clients needing vendor truth use Resync.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	status := statusFromUser(user, false)
	return &status, nil
}

// resolve loads the user and the provider their subscription lives on.
func (s *Service) resolve(ctx context.Context, userID uuid.UUID) (*models.User, payments.Provider, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	if user.PaymentProvider == nil || user.ProviderSubscriptionID == nil || *user.ProviderSubscriptionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no active subscription to manage")
	}
	provider, err := s.registry.Provider(*user.PaymentProvider)
	if err != nil {
		return nil, nil, err
	}
	return user, provider, nil
}

func (s *Service) apply(ctx context.Context, user *models.User, sub payments.Subscription) error {
	update := users.SubscriptionUpdate{
		Tier:               sub.Tier,
		Status:             sub.Status,
		Provider:           *user.PaymentProvider,
		ProviderCustomerID: user.ProviderCustomerID,
		EndsAt:             user.SubscriptionEndsAt,
	}
	if sub.ID != "" {
		update.SubscriptionID = &sub.ID
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		update.CurrentPeriodEnd = &end
	}
	if err := s.users.UpdateSubscription(ctx, user.ID, update); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription state")
	}
	s.metrics.IncSubscriptionSync(user.PaymentProvider.String(), "management")
	return nil
}

func statusFromUser(user *models.User, cancelAtPeriodEnd bool) Status {
	status := Status{
		Tier:              user.SubscriptionTier,
		Status:            user.SubscriptionStatus,
		Provider:          user.PaymentProvider,
		CancelAtPeriodEnd: cancelAtPeriodEnd,
		Entitled:          user.SubscriptionStatus.Entitles(),
	}
	if user.SubscriptionCurrentPeriodEnd != nil {
		formatted := user.SubscriptionCurrentPeriodEnd.UTC().Format(time.RFC3339)
		status.CurrentPeriodEnd = &formatted
	}
	if user.SubscriptionEndsAt != nil {
		formatted := user.SubscriptionEndsAt.UTC().Format(time.RFC3339)
		status.EndsAt = &formatted
	}
	return status
}
