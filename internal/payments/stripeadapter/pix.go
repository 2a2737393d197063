package stripeadapter

import (
	"context"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// CreatePixCheckout opens a one-time payment-mode session on the Pix rail.
// Pix has no recurring billing, so the purchase prepays a fixed entitlement
// window; the expiry is computed in calendar months and stamped into metadata
// so verification does not have to recompute it.
func (a *Adapter) CreatePixCheckout(ctx context.Context, params payments.PixCheckoutParams) payments.Result[payments.CheckoutSession] {
	if params.Amount <= 0 {
		return payments.Fail[payments.CheckoutSession](payments.ErrPixCheckoutFailed, "amount must be positive")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "brl"
	}

	expiresAt := time.Now().UTC().AddDate(0, params.Interval.Months(), 0)
	metadata := map[string]string{
		metadataUserID:   params.UserID.String(),
		metadataTier:     params.Tier.String(),
		metadataInterval: params.Interval.String(),
		metadataExpires:  expiresAt.Format(time.RFC3339),
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:           stripe.String(params.CustomerID),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"pix"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(params.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(pixProductName(params.Tier, params.Interval)),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	for k, v := range metadata {
		sessionParams.AddMetadata(k, v)
	}

	sess, err := a.api.CheckoutSessionCreate(ctx, sessionParams)
	if err != nil {
		if isCustomerModeMismatch(err) {
			return payments.Fail[payments.CheckoutSession](payments.ErrCustomerModeMismatch, vendorMessage(err))
		}
		return payments.Fail[payments.CheckoutSession](payments.ErrPixCheckoutFailed, vendorMessage(err))
	}
	return payments.OK(sessionFromStripe(sess))
}

// VerifyPixPayment refetches the session and confirms the payment settled.
// Pix settlement is asynchronous, so a pending session is an expected failure
// the client may retry, not an error.
func (a *Adapter) VerifyPixPayment(ctx context.Context, sessionID string) payments.Result[payments.PixPayment] {
	sess, err := a.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return payments.Fail[payments.PixPayment](payments.ErrPixVerificationFailed, vendorMessage(err))
	}
	if sess.Mode != stripe.CheckoutSessionModePayment {
		return payments.Fail[payments.PixPayment](payments.ErrPixVerificationFailed, "session is not a one-time payment")
	}

	payment := payments.PixPayment{
		SessionID: sess.ID,
		Amount:    sess.AmountTotal,
		Currency:  string(sess.Currency),
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		UserID:    sess.Metadata[metadataUserID],
	}
	if sess.PaymentIntent != nil {
		payment.PaymentIntentID = sess.PaymentIntent.ID
	}
	if tier, err := enums.ParseSubscriptionTier(sess.Metadata[metadataTier]); err == nil {
		payment.Tier = tier
	}
	if interval, err := enums.ParseBillingInterval(sess.Metadata[metadataInterval]); err == nil {
		payment.Interval = interval
	}
	if raw := sess.Metadata[metadataExpires]; raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			payment.ExpiresAt = ts
		}
	}

	if !payment.Paid {
		return payments.Fail[payments.PixPayment](payments.ErrPaymentNotCompleted, "pix payment has not settled")
	}
	return payments.OK(payment)
}

func pixProductName(tier enums.SubscriptionTier, interval enums.BillingInterval) string {
	return "ScanMyScale " + tier.String() + " (" + interval.String() + ")"
}
