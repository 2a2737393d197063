package markets

import (
	"net/http"
	"strings"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
	pkgerrors "github.com/scanmyscale/scanmyscale-backend/pkg/errors"
)

// Market is the static per-market configuration the payment router consults.
type Market struct {
	ID              string
	Currency        string
	PaymentProvider enums.PaymentProvider
	Locale          string
	Domain          string
}

const headerMarket = "X-Market"

// Catalog resolves inbound requests to a market.
type Catalog struct {
	byID      map[string]Market
	byDomain  map[string]Market
	byLang    map[string]Market
	defaultID string
}

// Defaults is the production market table. Brazil rides Stripe too (Pix rail
// through Stripe), mobile-led markets ride RevenueCat.
func Defaults() []Market {
	return []Market{
		{ID: "us", Currency: "usd", PaymentProvider: enums.ProviderStripe, Locale: "en", Domain: "scanmyscale.com"},
		{ID: "br", Currency: "brl", PaymentProvider: enums.ProviderStripe, Locale: "pt-BR", Domain: "fotopeso.com.br"},
		{ID: "pt", Currency: "eur", PaymentProvider: enums.ProviderStripe, Locale: "pt", Domain: "fotopeso.pt"},
		{ID: "mx", Currency: "mxn", PaymentProvider: enums.ProviderStripe, Locale: "es", Domain: "fotopeso.mx"},
		{ID: "mobile", Currency: "usd", PaymentProvider: enums.ProviderRevenueCat, Locale: "en", Domain: "app.scanmyscale.com"},
	}
}

// NewCatalog indexes the market table; defaultID must reference an entry.
func NewCatalog(entries []Market, defaultID string) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "at least one market is required")
	}
	c := &Catalog{
		byID:     make(map[string]Market, len(entries)),
		byDomain: make(map[string]Market, len(entries)),
		byLang:   make(map[string]Market, len(entries)),
	}
	for _, m := range entries {
		id := strings.ToLower(strings.TrimSpace(m.ID))
		if id == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "market id is required")
		}
		c.byID[id] = m
		if m.Domain != "" {
			c.byDomain[strings.ToLower(m.Domain)] = m
		}
		if lang := primaryLanguage(m.Locale); lang != "" {
			if _, taken := c.byLang[lang]; !taken {
				c.byLang[lang] = m
			}
		}
	}
	defaultID = strings.ToLower(strings.TrimSpace(defaultID))
	if _, ok := c.byID[defaultID]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "default market not present in catalog")
	}
	c.defaultID = defaultID
	return c, nil
}

// ByID returns the market for an explicit id.
func (c *Catalog) ByID(id string) (Market, bool) {
	m, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return m, ok
}

// Default returns the fallback market.
func (c *Catalog) Default() Market {
	return c.byID[c.defaultID]
}

// Assignments returns the market→provider table the payment manager routes on.
func (c *Catalog) Assignments() map[string]enums.PaymentProvider {
	out := make(map[string]enums.PaymentProvider, len(c.byID))
	for id, m := range c.byID {
		out[id] = m.PaymentProvider
	}
	return out
}

// Resolve maps a request to a market: explicit X-Market header first, then the
// serving domain, then Accept-Language, then the default.
func (c *Catalog) Resolve(r *http.Request) Market {
	if r == nil {
		return c.Default()
	}
	if id := strings.TrimSpace(r.Header.Get(headerMarket)); id != "" {
		if m, ok := c.ByID(id); ok {
			return m
		}
	}
	host := strings.ToLower(r.Host)
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	for domain, m := range c.byDomain {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return m
		}
	}
	if lang := primaryLanguage(r.Header.Get("Accept-Language")); lang != "" {
		if m, ok := c.byLang[lang]; ok {
			return m
		}
	}
	return c.Default()
}

func primaryLanguage(acceptLanguage string) string {
	raw := strings.TrimSpace(acceptLanguage)
	if raw == "" {
		return ""
	}
	first := strings.SplitN(raw, ",", 2)[0]
	first = strings.SplitN(first, ";", 2)[0]
	first = strings.SplitN(first, "-", 2)[0]
	return strings.ToLower(strings.TrimSpace(first))
}
