package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/api/middleware"
	checkoutsvc "github.com/scanmyscale/scanmyscale-backend/internal/checkout"
	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
)

type stubCheckoutService struct {
	url      string
	verified *checkoutsvc.VerifiedCheckout
	receipt  *checkoutsvc.PixReceipt
	err      error

	gotUserID   uuid.UUID
	gotMarket   markets.Market
	gotTier     enums.SubscriptionTier
	gotInterval enums.BillingInterval
	gotSession  string
}

func (s *stubCheckoutService) CreateCheckout(_ context.Context, userID uuid.UUID, market markets.Market, tier enums.SubscriptionTier, interval enums.BillingInterval) (string, error) {
	s.gotUserID = userID
	s.gotMarket = market
	s.gotTier = tier
	s.gotInterval = interval
	return s.url, s.err
}

func (s *stubCheckoutService) VerifySession(_ context.Context, userID uuid.UUID, market markets.Market, sessionID string) (*checkoutsvc.VerifiedCheckout, error) {
	s.gotUserID = userID
	s.gotMarket = market
	s.gotSession = sessionID
	return s.verified, s.err
}

func (s *stubCheckoutService) CreatePixCheckout(_ context.Context, userID uuid.UUID, market markets.Market, tier enums.SubscriptionTier, interval enums.BillingInterval) (string, error) {
	s.gotUserID = userID
	s.gotMarket = market
	s.gotTier = tier
	s.gotInterval = interval
	return s.url, s.err
}

func (s *stubCheckoutService) VerifyPixPayment(_ context.Context, userID uuid.UUID, market markets.Market, sessionID string) (*checkoutsvc.PixReceipt, error) {
	s.gotUserID = userID
	s.gotMarket = market
	s.gotSession = sessionID
	return s.receipt, s.err
}

func (s *stubCheckoutService) PortalURL(_ context.Context, userID uuid.UUID, market markets.Market) (string, error) {
	s.gotUserID = userID
	s.gotMarket = market
	return s.url, s.err
}

func testCatalog(t *testing.T) *markets.Catalog {
	t.Helper()
	catalog, err := markets.NewCatalog(markets.Defaults(), "us")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCreateCheckoutRoutesByMarketHeader(t *testing.T) {
	svc := &stubCheckoutService{url: "https://checkout.stripe.com/c/cs_1"}
	handler := CreateCheckout(svc, testCatalog(t), nil)
	userID := uuid.New()

	req := authedRequest(http.MethodPost, "/api/v1/billing/checkout", `{"tier":"premium","interval":"month"}`, userID)
	req.Header.Set("X-Market", "br")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotUserID != userID {
		t.Fatalf("user id = %s, want %s", svc.gotUserID, userID)
	}
	if svc.gotMarket.ID != "br" || svc.gotMarket.Currency != "brl" {
		t.Fatalf("market = %+v, want br/brl", svc.gotMarket)
	}
	if svc.gotTier != enums.TierPremium || svc.gotInterval != enums.IntervalMonth {
		t.Fatalf("plan = %s/%s", svc.gotTier, svc.gotInterval)
	}

	var envelope struct {
		Data redirectResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.URL != svc.url {
		t.Fatalf("url = %q", envelope.Data.URL)
	}
}

func TestCreateCheckoutRejectsStarterTier(t *testing.T) {
	svc := &stubCheckoutService{url: "https://example.com"}
	handler := CreateCheckout(svc, testCatalog(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/checkout", `{"tier":"starter","interval":"month"}`, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateCheckoutRequiresIdentity(t *testing.T) {
	handler := CreateCheckout(&stubCheckoutService{}, testCatalog(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(`{"tier":"premium","interval":"month"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestVerifySessionMapsOwnershipTo403(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeOwnership, "session belongs to another account")}
	handler := VerifySession(svc, testCatalog(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/verify-session", `{"session_id":"cs_1"}`, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeOwnership) {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestVerifySessionReturnsAppliedState(t *testing.T) {
	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	svc := &stubCheckoutService{verified: &checkoutsvc.VerifiedCheckout{
		Tier:             enums.TierPremium,
		Status:           enums.SubscriptionStatusActive,
		Provider:         enums.ProviderStripe,
		CurrentPeriodEnd: &end,
	}}
	handler := VerifySession(svc, testCatalog(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/verify-session", `{"session_id":"cs_1"}`, uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotSession != "cs_1" {
		t.Fatalf("session = %q", svc.gotSession)
	}
	var envelope struct {
		Data checkoutsvc.VerifiedCheckout `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Tier != enums.TierPremium || envelope.Data.Status != enums.SubscriptionStatusActive {
		t.Fatalf("verified = %+v", envelope.Data)
	}
}

func TestPixCheckoutDefaultsToHostMarket(t *testing.T) {
	svc := &stubCheckoutService{url: "https://checkout.stripe.com/c/cs_pix"}
	handler := CreatePixCheckout(svc, testCatalog(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/pix-checkout", `{"tier":"premium","interval":"semiannual"}`, uuid.New())
	req.Host = "fotopeso.com.br"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.gotMarket.ID != "br" {
		t.Fatalf("market = %+v, want br", svc.gotMarket)
	}
	if svc.gotInterval != enums.IntervalSemiannual {
		t.Fatalf("interval = %s", svc.gotInterval)
	}
}

func TestPortalReturnsRedirect(t *testing.T) {
	svc := &stubCheckoutService{url: "https://billing.stripe.com/p/session_1"}
	handler := Portal(svc, testCatalog(t), nil)

	req := authedRequest(http.MethodPost, "/api/v1/billing/portal", "", uuid.New())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), svc.url) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
