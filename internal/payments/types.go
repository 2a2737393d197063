package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// ErrorCode is the closed set of expected provider failure modes. Adapters
// return these instead of raising errors so callers can branch exhaustively.
type ErrorCode string

const (
	ErrCustomerCreationFailed   ErrorCode = "CUSTOMER_CREATION_FAILED"
	ErrCustomerNotFound         ErrorCode = "CUSTOMER_NOT_FOUND"
	ErrCustomerModeMismatch     ErrorCode = "CUSTOMER_MODE_MISMATCH"
	ErrCheckoutSessionFailed    ErrorCode = "CHECKOUT_SESSION_FAILED"
	ErrSubscriptionFetchFailed  ErrorCode = "SUBSCRIPTION_FETCH_FAILED"
	ErrSubscriptionCancelFailed ErrorCode = "SUBSCRIPTION_CANCEL_FAILED"
	ErrSubscriptionUpdateFailed ErrorCode = "SUBSCRIPTION_UPDATE_FAILED"
	ErrPlansFetchFailed         ErrorCode = "PLANS_FETCH_FAILED"
	ErrPlanNotFound             ErrorCode = "PLAN_NOT_FOUND"
	ErrWebhookProcessingFailed  ErrorCode = "WEBHOOK_PROCESSING_FAILED"
	ErrNotSupportedByProvider   ErrorCode = "NOT_SUPPORTED_BY_PROVIDER"
	ErrPaymentNotCompleted      ErrorCode = "PAYMENT_NOT_COMPLETED"
	ErrPixCheckoutFailed        ErrorCode = "PIX_CHECKOUT_FAILED"
	ErrPixVerificationFailed    ErrorCode = "PIX_VERIFICATION_FAILED"
)

// Result is the uniform outcome of every provider operation. Expected vendor
// rejections land here as failures; only programmer errors may surface as Go
// errors outside of it.
type Result[T any] struct {
	Success bool
	Data    T
	Code    ErrorCode
	Message string
}

// OK wraps a successful payload.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail wraps an expected failure with its taxonomy code.
func Fail[T any](code ErrorCode, message string) Result[T] {
	return Result[T]{Success: false, Code: code, Message: message}
}

// NotSupported is the mandatory response for operations a vendor has no
// equivalent for. Never a silent no-op.
func NotSupported[T any](operation string) Result[T] {
	return Result[T]{
		Success: false,
		Code:    ErrNotSupportedByProvider,
		Message: operation + " is not supported by this provider",
	}
}

// Customer is the provider-side customer record tied to exactly one user.
type Customer struct {
	UserID     uuid.UUID
	ProviderID string
	Provider   enums.PaymentProvider
	Email      string
	Name       string
	Metadata   map[string]string
}

// Subscription is the normalized view of a vendor subscription. Amount is in
// minor units.
type Subscription struct {
	ID                 string
	CustomerID         string
	Provider           enums.PaymentProvider
	Status             enums.SubscriptionStatus
	PlanID             string
	Tier               enums.SubscriptionTier
	Currency           string
	Amount             int64
	Interval           enums.BillingInterval
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	TrialEnd           *time.Time
	Metadata           map[string]string
}

// Plan is a live catalog entry fetched from the vendor. Tier is the only field
// entitlement logic reasons about.
type Plan struct {
	ID             string
	Provider       enums.PaymentProvider
	ProviderPlanID string
	Name           string
	Tier           enums.SubscriptionTier
	Currency       string
	Amount         int64
	Interval       enums.BillingInterval
	Features       []string
	IsActive       bool
}

// CheckoutSession is an ephemeral vendor-hosted flow. It is never persisted
// beyond the redirect.
type CheckoutSession struct {
	ID        string
	URL       string
	Provider  enums.PaymentProvider
	ExpiresAt *time.Time
	Metadata  map[string]string
}

// WebhookEvent is an inbound vendor event before normalization. Payload is the
// raw request body; signature verification requires byte-for-byte fidelity.
type WebhookEvent struct {
	ID        string
	Provider  enums.PaymentProvider
	Type      string
	Payload   []byte
	Timestamp time.Time
	Signature string
}

// EventType is the closed normalized webhook event set.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentSucceeded     EventType = "payment_succeeded"
	EventPaymentFailed        EventType = "payment_failed"
	EventCustomerUpdated      EventType = "customer_updated"
	// EventIgnored marks vendor events outside the normalized set; handlers
	// acknowledge them without touching state.
	EventIgnored EventType = "ignored"
)

// WebhookResult is the provider-agnostic outcome of processing one event.
type WebhookResult struct {
	Type         EventType
	Subscription *Subscription
	Customer     *Customer
	Changes      map[string]any
}
