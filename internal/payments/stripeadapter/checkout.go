package stripeadapter

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/scanmyscale/scanmyscale-backend/internal/payments"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// CreateCheckoutSession opens a vendor-hosted subscription checkout. The
// internal user id and tier ride on both the session and the subscription it
// creates, so webhook handlers and session verification can attribute either
// object without a database join.
func (a *Adapter) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) payments.Result[payments.CheckoutSession] {
	priceID := params.PriceID
	if priceID == "" {
		priceID = params.PlanID
	}
	if priceID == "" {
		return payments.Fail[payments.CheckoutSession](payments.ErrCheckoutSessionFailed, "price id is required")
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(params.CustomerID),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		Locale:     stripe.String(checkoutLocale(params.Locale)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataUserID: params.UserID.String(),
				metadataTier:   params.Tier.String(),
			},
		},
	}
	if params.TrialDays > 0 {
		sessionParams.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(params.TrialDays))
	}
	sessionParams.AddMetadata(metadataUserID, params.UserID.String())
	sessionParams.AddMetadata(metadataTier, params.Tier.String())

	sess, err := a.api.CheckoutSessionCreate(ctx, sessionParams)
	if err != nil {
		if isCustomerModeMismatch(err) {
			return payments.Fail[payments.CheckoutSession](payments.ErrCustomerModeMismatch, vendorMessage(err))
		}
		return payments.Fail[payments.CheckoutSession](payments.ErrCheckoutSessionFailed, vendorMessage(err))
	}
	return payments.OK(sessionFromStripe(sess))
}

// GetCheckoutSession refetches a session from the vendor. Verification always
// works off this fresh copy, never client-supplied state.
func (a *Adapter) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	return a.api.CheckoutSessionGet(ctx, sessionID, &stripe.CheckoutSessionParams{
		Expand: []*string{
			stripe.String("subscription"),
			stripe.String("payment_intent"),
		},
	})
}

// VerifyCheckoutSession refetches the session and reports whether the
// subscription purchase completed and settled. Trials complete with no
// payment required, which counts as paid.
func (a *Adapter) VerifyCheckoutSession(ctx context.Context, sessionID string) payments.Result[payments.CompletedCheckout] {
	sess, err := a.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return payments.Fail[payments.CompletedCheckout](payments.ErrCheckoutSessionFailed, vendorMessage(err))
	}

	out := payments.CompletedCheckout{
		SessionID: sess.ID,
		UserID:    sess.Metadata[metadataUserID],
		Tier:      sess.Metadata[metadataTier],
		Complete:  sess.Status == stripe.CheckoutSessionStatusComplete,
		Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
			sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
		if sess.Subscription.Items != nil && len(sess.Subscription.Items.Data) > 0 && sess.Subscription.Items.Data[0].Price != nil {
			out.PriceID = sess.Subscription.Items.Data[0].Price.ID
		}
	}

	if !out.Complete || !out.Paid {
		return payments.Fail[payments.CompletedCheckout](payments.ErrPaymentNotCompleted, "checkout session has not completed")
	}
	return payments.OK(out)
}

func sessionFromStripe(sess *stripe.CheckoutSession) payments.CheckoutSession {
	out := payments.CheckoutSession{
		ID:       sess.ID,
		URL:      sess.URL,
		Provider: enums.ProviderStripe,
	}
	if sess.ExpiresAt > 0 {
		expires := time.Unix(sess.ExpiresAt, 0).UTC()
		out.ExpiresAt = &expires
	}
	if len(sess.Metadata) > 0 {
		out.Metadata = sess.Metadata
	}
	return out
}
