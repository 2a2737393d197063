package markets

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(Defaults(), "us")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return catalog
}

func TestNewCatalogRejectsUnknownDefault(t *testing.T) {
	if _, err := NewCatalog(Defaults(), "jp"); err == nil {
		t.Fatal("expected error for default market not in catalog")
	}
	if _, err := NewCatalog(nil, "us"); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestResolveHeaderBeatsDomain(t *testing.T) {
	catalog := testCatalog(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "fotopeso.com.br"
	req.Header.Set("X-Market", "mx")

	if m := catalog.Resolve(req); m.ID != "mx" {
		t.Fatalf("market = %s, want mx", m.ID)
	}
}

func TestResolveDomainBeatsLanguage(t *testing.T) {
	catalog := testCatalog(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "www.fotopeso.pt:443"
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9")

	if m := catalog.Resolve(req); m.ID != "pt" {
		t.Fatalf("market = %s, want pt", m.ID)
	}
}

func TestResolveFallsBackToLanguageThenDefault(t *testing.T) {
	catalog := testCatalog(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unrelated.example.com"
	req.Header.Set("Accept-Language", "es-419,es;q=0.8")
	if m := catalog.Resolve(req); m.ID != "mx" {
		t.Fatalf("market = %s, want mx", m.ID)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unrelated.example.com"
	req.Header.Set("Accept-Language", "ja-JP")
	if m := catalog.Resolve(req); m.ID != "us" {
		t.Fatalf("market = %s, want us", m.ID)
	}
}

func TestResolveUnknownHeaderFallsThrough(t *testing.T) {
	catalog := testCatalog(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "fotopeso.mx"
	req.Header.Set("X-Market", "jp")

	if m := catalog.Resolve(req); m.ID != "mx" {
		t.Fatalf("market = %s, want mx", m.ID)
	}
}

func TestAssignmentsCoverEveryMarket(t *testing.T) {
	catalog := testCatalog(t)

	assignments := catalog.Assignments()
	if len(assignments) != len(Defaults()) {
		t.Fatalf("assignments = %d entries, want %d", len(assignments), len(Defaults()))
	}
	for _, m := range Defaults() {
		if assignments[m.ID] != m.PaymentProvider {
			t.Fatalf("market %s routed to %s, want %s", m.ID, assignments[m.ID], m.PaymentProvider)
		}
	}
}
