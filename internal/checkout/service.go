package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
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
	UpdateProviderInfo(ctx context.Context, id uuid.UUID, provider enums.PaymentProvider, customerID string) error
	UpdateSubscription(ctx context.Context, id uuid.UUID, update users.SubscriptionUpdate) error
}

type paymentRepository interface {
	RecordPayment(ctx context.Context, payment *models.PaymentHistory) error
}

type providerRouter interface {
	ProviderForMarket(market string) (payments.Provider, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Users      userRepository
	Payments   paymentRepository
	Router     providerRouter
	PriceTable *payments.PriceTable
	PixPrices  *PixPriceTable
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics

	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
	TrialDays       int
}

// Service orchestrates hosted checkout flows: session creation, server-side
// verification, the one-time Pix rail, and the billing portal.
type Service struct {
	users      userRepository
	payments   paymentRepository
	router     providerRouter
	priceTable *payments.PriceTable
	pixPrices  *PixPriceTable
	logg       *logger.Logger
	metrics    *metrics.PaymentMetrics

	successURL      string
	cancelURL       string
	portalReturnURL string
	trialDays       int
}

// NewService validates params and constructs the service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repo required")
	}
	if params.Router == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider router required")
	}
	if params.PriceTable == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "price table required")
	}
	return &Service{
		users:           params.Users,
		payments:        params.Payments,
		router:          params.Router,
		priceTable:      params.PriceTable,
		pixPrices:       params.PixPrices,
		logg:            params.Logger,
		metrics:         params.Metrics,
		successURL:      params.SuccessURL,
		cancelURL:       params.CancelURL,
		portalReturnURL: params.PortalReturnURL,
		trialDays:       params.TrialDays,
	}, nil
}

// CreateCheckout opens a hosted subscription checkout for the user in the
// given market and returns the redirect URL. The vendor customer is created
// lazily and persisted before the session is opened, so an abandoned checkout
// still leaves the linkage behind. A customer id stranded in the other vendor
// environment (key rotation between test and live) is healed by recreating
// the customer and retrying once.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, market markets.Market, tier enums.SubscriptionTier, interval enums.BillingInterval) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	provider, err := s.router.ProviderForMarket(market.ID)
	if err != nil {
		return "", err
	}

	priceID, ok := s.priceTable.PriceID(tier, interval, market.Currency)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "no price configured for this plan in your market")
	}

	customerID, err := s.ensureCustomer(ctx, user, provider, false)
	if err != nil {
		return "", err
	}

	params := payments.CheckoutParams{
		CustomerID: customerID,
		PriceID:    priceID,
		UserID:     user.ID,
		Tier:       tier,
		Locale:     market.Locale,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
		TrialDays:  s.trialDays,
	}
	result := provider.CreateCheckoutSession(ctx, params)
	if !result.Success && result.Code == payments.ErrCustomerModeMismatch {
		if s.logg != nil {
			s.logg.Warn(ctx, "stored customer belongs to another vendor environment, recreating")
		}
		customerID, err = s.ensureCustomer(ctx, user, provider, true)
		if err != nil {
			return "", err
		}
		params.CustomerID = customerID
		result = provider.CreateCheckoutSession(ctx, params)
	}
	if !result.Success {
		s.metrics.IncCheckoutSession(provider.Name().String(), "error")
		return "", payments.AsError(result)
	}
	s.metrics.IncCheckoutSession(provider.Name().String(), "created")
	return result.Data.URL, nil
}

// VerifiedCheckout is the outcome of server-side session verification.
type VerifiedCheckout struct {
	Tier             enums.SubscriptionTier   `json:"tier"`
	Status           enums.SubscriptionStatus `json:"status"`
	Provider         enums.PaymentProvider    `json:"provider"`
	CurrentPeriodEnd *time.Time               `json:"current_period_end,omitempty"`
}

// VerifySession confirms a completed checkout against the vendor and applies
// the subscription to the user record. The session's customer must be the
// customer stored on the account; a mismatch is an ownership violation, never
// a silent success. Verification is idempotent: replays re-apply the same
// state.
func (s *Service) VerifySession(ctx context.Context, userID uuid.UUID, market markets.Market, sessionID string) (*VerifiedCheckout, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	provider, err := s.router.ProviderForMarket(market.ID)
	if err != nil {
		return nil, err
	}
	verifier, ok := provider.(payments.CheckoutVerifier)
	if !ok {
		return nil, payments.AsError(payments.NotSupported[struct{}]("checkout verification"))
	}

	result := verifier.VerifyCheckoutSession(ctx, sessionID)
	if !result.Success {
		return nil, payments.AsError(result)
	}
	completed := result.Data

	if user.ProviderCustomerID == nil || completed.CustomerID == "" || completed.CustomerID != *user.ProviderCustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeOwnership, "checkout session belongs to another account")
	}
	if completed.UserID != "" && completed.UserID != user.ID.String() && s.logg != nil {
		// Metadata disagreeing with the customer linkage is suspicious but
		// not authoritative; the customer check above already gates access.
		s.logg.Warn(ctx, "checkout session metadata user id does not match caller")
	}

	tier, tierOK := enums.TierStarter, false
	if key, found := s.priceTable.Lookup(completed.PriceID); found {
		tier, tierOK = key.Tier, true
	}
	if !tierOK {
		if s.logg != nil {
			s.logg.Warn(ctx, "verified session price not in price table: "+completed.PriceID)
		}
	}

	subResult := provider.GetSubscription(ctx, completed.SubscriptionID)
	if !subResult.Success {
		return nil, payments.AsError(subResult)
	}
	sub := subResult.Data
	if tierOK {
		sub.Tier = tier
	}

	update := users.SubscriptionUpdate{
		Tier:             sub.Tier,
		Status:           sub.Status,
		Provider:         provider.Name(),
		SubscriptionID:   &sub.ID,
		CurrentPeriodEnd: periodEnd(sub),
	}
	if err := s.users.UpdateSubscription(ctx, user.ID, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}
	s.metrics.IncSubscriptionSync(provider.Name().String(), "checkout")

	return &VerifiedCheckout{
		Tier:             sub.Tier,
		Status:           sub.Status,
		Provider:         provider.Name(),
		CurrentPeriodEnd: update.CurrentPeriodEnd,
	}, nil
}

// CreatePixCheckout opens a one-time prepaid purchase for markets on the Pix
// rail. The configured minor-unit amount is authoritative; clients never send
// prices.
func (s *Service) CreatePixCheckout(ctx context.Context, userID uuid.UUID, market markets.Market, tier enums.SubscriptionTier, interval enums.BillingInterval) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	provider, err := s.router.ProviderForMarket(market.ID)
	if err != nil {
		return "", err
	}
	oneTime, ok := provider.(payments.OneTimePaymentProvider)
	if !ok {
		return "", payments.AsError(payments.NotSupported[struct{}]("pix checkout"))
	}

	amount, ok := s.pixPrices.Amount(tier, interval, market.Currency)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "no pix price configured for this plan in your market")
	}

	customerID, err := s.ensureCustomer(ctx, user, provider, false)
	if err != nil {
		return "", err
	}

	result := oneTime.CreatePixCheckout(ctx, payments.PixCheckoutParams{
		CustomerID: customerID,
		UserID:     user.ID,
		Tier:       tier,
		Interval:   interval,
		Amount:     amount,
		Currency:   market.Currency,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if !result.Success {
		s.metrics.IncCheckoutSession(provider.Name().String(), "error")
		return "", payments.AsError(result)
	}
	s.metrics.IncCheckoutSession(provider.Name().String(), "created")
	return result.Data.URL, nil
}

// PixReceipt is the applied outcome of a verified prepaid purchase.
type PixReceipt struct {
	Tier      enums.SubscriptionTier `json:"tier"`
	Interval  enums.BillingInterval  `json:"interval"`
	Amount    int64                  `json:"amount"`
	Currency  string                 `json:"currency"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// VerifyPixPayment confirms a settled Pix purchase, writes the audit row and
// grants the prepaid entitlement window. Replays are absorbed by the payment
// intent unique index.
func (s *Service) VerifyPixPayment(ctx context.Context, userID uuid.UUID, market markets.Market, sessionID string) (*PixReceipt, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	provider, err := s.router.ProviderForMarket(market.ID)
	if err != nil {
		return nil, err
	}
	oneTime, ok := provider.(payments.OneTimePaymentProvider)
	if !ok {
		return nil, payments.AsError(payments.NotSupported[struct{}]("pix verification"))
	}

	result := oneTime.VerifyPixPayment(ctx, sessionID)
	if !result.Success {
		return nil, payments.AsError(result)
	}
	payment := result.Data

	if payment.UserID != user.ID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeOwnership, "payment belongs to another account")
	}

	expiresAt := payment.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().AddDate(0, payment.Interval.Months(), 0)
	}

	metadata, _ := json.Marshal(map[string]string{"session_id": payment.SessionID})
	row := &models.PaymentHistory{
		UserID:          user.ID,
		PaymentIntentID: payment.PaymentIntentID,
		Provider:        provider.Name(),
		Amount:          payment.Amount,
		Currency:        payment.Currency,
		Status:          enums.PaymentStatusPaid,
		PaymentMethod:   "pix",
		Tier:            payment.Tier,
		Interval:        payment.Interval,
		ExpiresAt:       &expiresAt,
		Metadata:        metadata,
	}
	if err := s.payments.RecordPayment(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
	}

	update := users.SubscriptionUpdate{
		Tier:     payment.Tier,
		Status:   enums.SubscriptionStatusActive,
		Provider: provider.Name(),
		EndsAt:   &expiresAt,
	}
	if err := s.users.UpdateSubscription(ctx, user.ID, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist entitlement")
	}
	s.metrics.IncSubscriptionSync(provider.Name().String(), "pix")

	return &PixReceipt{
		Tier:      payment.Tier,
		Interval:  payment.Interval,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		ExpiresAt: expiresAt,
	}, nil
}

// PortalURL returns a vendor-hosted billing management link for providers
// that offer one.
func (s *Service) PortalURL(ctx context.Context, userID uuid.UUID, market markets.Market) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	provider, err := s.router.ProviderForMarket(market.ID)
	if err != nil {
		return "", err
	}
	portal, ok := provider.(payments.PortalProvider)
	if !ok {
		return "", payments.AsError(payments.NotSupported[struct{}]("billing portal"))
	}
	if user.ProviderCustomerID == nil {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "no billing account yet")
	}
	result := portal.CustomerPortalURL(ctx, *user.ProviderCustomerID, s.portalReturnURL)
	if !result.Success {
		return "", payments.AsError(result)
	}
	return result.Data, nil
}

// ensureCustomer returns the vendor customer id for the user, creating and
// persisting one when absent. force discards the stored id first.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User, provider payments.Provider, force bool) (string, error) {
	sameProvider := user.PaymentProvider != nil && *user.PaymentProvider == provider.Name()
	if !force && sameProvider && user.ProviderCustomerID != nil && *user.ProviderCustomerID != "" {
		return *user.ProviderCustomerID, nil
	}

	result := provider.CreateCustomer(ctx, user.Email, user.Name, user.ID)
	if !result.Success {
		return "", payments.AsError(result)
	}
	customerID := result.Data.ProviderID
	if err := s.users.UpdateProviderInfo(ctx, user.ID, provider.Name(), customerID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist customer linkage")
	}
	user.PaymentProvider = ptr(provider.Name())
	user.ProviderCustomerID = &customerID
	return customerID, nil
}

func periodEnd(sub payments.Subscription) *time.Time {
	if sub.CurrentPeriodEnd.IsZero() {
		return nil
	}
	end := sub.CurrentPeriodEnd
	return &end
}

func ptr[T any](v T) *T {
	return &v
}
