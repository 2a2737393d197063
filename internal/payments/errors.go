package payments

import (
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
)

var codeMapping = map[ErrorCode]pkgerrors.Code{
	ErrCustomerCreationFailed:   pkgerrors.CodeDependency,
	ErrCustomerNotFound:         pkgerrors.CodeNotFound,
	ErrCustomerModeMismatch:     pkgerrors.CodeStateConflict,
	ErrCheckoutSessionFailed:    pkgerrors.CodeDependency,
	ErrSubscriptionFetchFailed:  pkgerrors.CodeDependency,
	ErrSubscriptionCancelFailed: pkgerrors.CodeDependency,
	ErrSubscriptionUpdateFailed: pkgerrors.CodeDependency,
	ErrPlansFetchFailed:         pkgerrors.CodeDependency,
	ErrPlanNotFound:             pkgerrors.CodeNotFound,
	ErrWebhookProcessingFailed:  pkgerrors.CodeDependency,
	ErrNotSupportedByProvider:   pkgerrors.CodeStateConflict,
	ErrPaymentNotCompleted:      pkgerrors.CodeStateConflict,
	ErrPixCheckoutFailed:        pkgerrors.CodeDependency,
	ErrPixVerificationFailed:    pkgerrors.CodeDependency,
}

// AsError converts a failed Result into a coded platform error. Vendor detail
// stays in the message for logs; the HTTP layer redacts it per code metadata.
func AsError[T any](r Result[T]) *pkgerrors.Error {
	if r.Success {
		return nil
	}
	code, ok := codeMapping[r.Code]
	if !ok {
		code = pkgerrors.CodeInternal
	}
	msg := r.Message
	if msg == "" {
		msg = string(r.Code)
	}
	return pkgerrors.New(code, msg).WithDetails(map[string]any{"payment_code": string(r.Code)})
}
