package payments

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// PriceKey identifies one configured vendor price variant.
type PriceKey struct {
	Tier     enums.SubscriptionTier
	Interval enums.BillingInterval
	Currency string
}

// PriceEntry is the JSON shape of a configured price-table row.
type PriceEntry struct {
	Tier     string `json:"tier"`
	Interval string `json:"interval"`
	Currency string `json:"currency"`
	PriceID  string `json:"price_id"`
}

// PriceTable maps (tier, interval, currency) tuples to vendor price ids and
// back. Tier resolution from a completed checkout is an exact-match reverse
// lookup across every configured variant.
type PriceTable struct {
	byKey   map[PriceKey]string
	byPrice map[string]PriceKey
}

// NewPriceTable builds the bidirectional lookup from validated entries.
func NewPriceTable(entries []PriceEntry) (*PriceTable, error) {
	table := &PriceTable{
		byKey:   make(map[PriceKey]string, len(entries)),
		byPrice: make(map[string]PriceKey, len(entries)),
	}
	for _, entry := range entries {
		tier, err := enums.ParseSubscriptionTier(strings.TrimSpace(entry.Tier))
		if err != nil {
			return nil, err
		}
		interval, err := enums.ParseBillingInterval(strings.TrimSpace(entry.Interval))
		if err != nil {
			return nil, err
		}
		currency := strings.ToLower(strings.TrimSpace(entry.Currency))
		priceID := strings.TrimSpace(entry.PriceID)
		if currency == "" || priceID == "" {
			return nil, fmt.Errorf("price table entry requires currency and price_id")
		}
		key := PriceKey{Tier: tier, Interval: interval, Currency: currency}
		if _, exists := table.byKey[key]; exists {
			return nil, fmt.Errorf("duplicate price table entry for %s/%s/%s", tier, interval, currency)
		}
		table.byKey[key] = priceID
		table.byPrice[priceID] = key
	}
	return table, nil
}

// ParsePriceTable decodes the configured JSON price table.
func ParsePriceTable(raw string) (*PriceTable, error) {
	if strings.TrimSpace(raw) == "" {
		return NewPriceTable(nil)
	}
	var entries []PriceEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parsing price table: %w", err)
	}
	return NewPriceTable(entries)
}

// PriceID returns the vendor price id for the variant, if configured.
func (t *PriceTable) PriceID(tier enums.SubscriptionTier, interval enums.BillingInterval, currency string) (string, bool) {
	if t == nil {
		return "", false
	}
	id, ok := t.byKey[PriceKey{Tier: tier, Interval: interval, Currency: strings.ToLower(currency)}]
	return id, ok
}

// Lookup resolves a vendor price id back to its configured variant.
func (t *PriceTable) Lookup(priceID string) (PriceKey, bool) {
	if t == nil {
		return PriceKey{}, false
	}
	key, ok := t.byPrice[priceID]
	return key, ok
}

// Len reports the number of configured variants.
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byKey)
}
