package webhooks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

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
	FindByProviderCustomerID(ctx context.Context, customerID string) (*models.User, error)
	UpdateSubscription(ctx context.Context, id uuid.UUID, update users.SubscriptionUpdate) error
}

// ServiceParams groups dependencies for the webhook sync service.
type ServiceParams struct {
	Users   userRepository
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
}

// Service applies normalized webhook results to the denormalized
// subscription state on user rows. It is provider-agnostic: adapters have
// already translated vendor payloads.
type Service struct {
	users   userRepository
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
}

// NewService validates params and constructs the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	return &Service{
		users:   params.Users,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Apply routes one normalized event to the user record. Events for unknown
// customers are acknowledged and dropped: the vendor retrying will not make
// the customer exist.
func (s *Service) Apply(ctx context.Context, provider enums.PaymentProvider, result payments.WebhookResult) error {
	switch result.Type {
	case payments.EventIgnored, payments.EventCustomerUpdated:
		s.metrics.IncWebhookEvent(provider.String(), string(result.Type), "ignored")
		return nil
	case payments.EventSubscriptionCreated,
		payments.EventSubscriptionUpdated,
		payments.EventSubscriptionCanceled,
		payments.EventPaymentSucceeded,
		payments.EventPaymentFailed:
		if result.Subscription == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription event without subscription")
		}
		err := s.applySubscription(ctx, provider, *result.Subscription)
		outcome := "applied"
		if err != nil {
			outcome = "error"
		}
		s.metrics.IncWebhookEvent(provider.String(), string(result.Type), outcome)
		return err
	default:
		s.metrics.IncWebhookEvent(provider.String(), string(result.Type), "ignored")
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, provider enums.PaymentProvider, sub payments.Subscription) error {
	user, err := s.findUser(ctx, sub.CustomerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			if s.logg != nil {
				s.logg.Warn(s.withProvider(ctx, provider), "webhook for unknown customer dropped: "+sub.CustomerID)
			}
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user for webhook")
	}

	// Deliveries can arrive out of order. The event carries a full vendor
	// snapshot, so the latest delivery is authoritative; a regressing period
	// end is only worth a warning.
	if user.SubscriptionCurrentPeriodEnd != nil && !sub.CurrentPeriodEnd.IsZero() &&
		sub.CurrentPeriodEnd.Before(*user.SubscriptionCurrentPeriodEnd) && s.logg != nil {
		s.logg.Warn(s.withProvider(ctx, provider), "webhook regresses subscription period end")
	}

	update := users.SubscriptionUpdate{
		Tier:     sub.Tier,
		Status:   sub.Status,
		Provider: provider,
		EndsAt:   user.SubscriptionEndsAt,
	}
	if sub.ID != "" {
		update.SubscriptionID = &sub.ID
	}
	if !sub.CurrentPeriodEnd.IsZero() {
		end := sub.CurrentPeriodEnd
		update.CurrentPeriodEnd = &end
	}
	if user.ProviderCustomerID == nil || *user.ProviderCustomerID == "" {
		update.ProviderCustomerID = &sub.CustomerID
	}

	if err := s.users.UpdateSubscription(ctx, user.ID, update); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist webhook subscription state")
	}
	s.metrics.IncSubscriptionSync(provider.String(), "webhook")
	return nil
}

// findUser resolves the vendor customer reference. Mobile providers use the
// internal user id as the customer id, so a parseable UUID is tried as a
// primary key first.
func (s *Service) findUser(ctx context.Context, customerID string) (*models.User, error) {
	if id, err := uuid.Parse(customerID); err == nil {
		user, err := s.users.FindByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}
	return s.users.FindByProviderCustomerID(ctx, customerID)
}

func (s *Service) withProvider(ctx context.Context, provider enums.PaymentProvider) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithProvider(ctx, provider.String())
}
