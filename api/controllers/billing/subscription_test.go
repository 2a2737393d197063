package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	subscriptionsvc "github.com/scanmyscale/scanmyscale-backend/internal/subscriptions"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
)

type stubSubscriptionService struct {
	status *subscriptionsvc.Status
	err    error

	canceledImmediate *bool
	resumed           bool
	changedTier       enums.SubscriptionTier
	changedInterval   enums.BillingInterval
}

func (s *stubSubscriptionService) Status(context.Context, uuid.UUID) (*subscriptionsvc.Status, error) {
	return s.status, s.err
}

func (s *stubSubscriptionService) Cancel(_ context.Context, _ uuid.UUID, immediate bool) error {
	s.canceledImmediate = &immediate
	return s.err
}

func (s *stubSubscriptionService) Resume(context.Context, uuid.UUID) error {
	s.resumed = true
	return s.err
}

func (s *stubSubscriptionService) ChangePlan(_ context.Context, _ uuid.UUID, tier enums.SubscriptionTier, interval enums.BillingInterval) error {
	s.changedTier = tier
	s.changedInterval = interval
	return s.err
}

func (s *stubSubscriptionService) Resync(context.Context, uuid.UUID) (*subscriptionsvc.Status, error) {
	return s.status, s.err
}

func TestSubscriptionStatusReturnsSnapshot(t *testing.T) {
	svc := &stubSubscriptionService{status: &subscriptionsvc.Status{
		Tier:     enums.TierPremium,
		Status:   enums.SubscriptionStatusActive,
		Entitled: true,
	}}
	handler := SubscriptionStatus(svc, nil)

	req := authedRequest(http.MethodGet, "/api/v1/billing/subscription", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestSubscriptionCancelPassesImmediateFlag(t *testing.T) {
	svc := &stubSubscriptionService{}
	handler := SubscriptionCancel(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/subscription/cancel", `{"immediate":true}`, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.canceledImmediate == nil || !*svc.canceledImmediate {
		t.Fatal("immediate flag not passed through")
	}
}

func TestSubscriptionCancelDefaultsToPeriodEnd(t *testing.T) {
	svc := &stubSubscriptionService{}
	handler := SubscriptionCancel(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/subscription/cancel", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.canceledImmediate == nil || *svc.canceledImmediate {
		t.Fatal("expected period-end cancel by default")
	}
}

func TestSubscriptionCancelMapsStateConflict(t *testing.T) {
	svc := &stubSubscriptionService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "no active subscription to manage")}
	handler := SubscriptionCancel(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/subscription/cancel", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestSubscriptionChangePlanParsesSelection(t *testing.T) {
	svc := &stubSubscriptionService{}
	handler := SubscriptionChangePlan(svc, nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/subscription/change-plan", `{"tier":"pro","interval":"year"}`, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.changedTier != enums.TierPro || svc.changedInterval != enums.IntervalYear {
		t.Fatalf("selection = %s/%s", svc.changedTier, svc.changedInterval)
	}
}

func TestSubscriptionResumeRequiresIdentity(t *testing.T) {
	handler := SubscriptionResume(&stubSubscriptionService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscription/resume", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
