package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scanmyscale/scanmyscale-backend/internal/markets"
	"github.com/scanmyscale/scanmyscale-backend/pkg/config"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	catalog, err := markets.NewCatalog(markets.Defaults(), "us")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "scanmyscale", ExpirationMinutes: 30}
	return NewRouter(RouterParams{
		Config:  cfg,
		Catalog: catalog,
	})
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-ScanMyScale-Env") != "test" {
		t.Fatalf("env header = %q", rec.Header().Get("X-ScanMyScale-Env"))
	}
}

func TestBillingRoutesRequireAuth(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/billing/plans", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookRouteSkipsAuth(t *testing.T) {
	router := testRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil))

	// No processor is wired in this test; the route must still be reachable
	// without credentials.
	if rec.Code == http.StatusUnauthorized || rec.Code == http.StatusNotFound {
		t.Fatalf("status = %d, webhook route should not require auth", rec.Code)
	}
}
