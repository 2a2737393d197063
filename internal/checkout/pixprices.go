package checkout

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// PixPriceEntry is the JSON shape of one configured prepaid price.
type PixPriceEntry struct {
	Tier     string `json:"tier"`
	Interval string `json:"interval"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

type pixKey struct {
	tier     enums.SubscriptionTier
	interval enums.BillingInterval
	currency string
}

// PixPriceTable maps prepaid (tier, interval, currency) variants to
// minor-unit amounts. Pix purchases have no vendor price object, so the
// amount is configuration.
type PixPriceTable struct {
	byKey map[pixKey]int64
}

// ParsePixPrices decodes the configured JSON table.
func ParsePixPrices(raw string) (*PixPriceTable, error) {
	table := &PixPriceTable{byKey: make(map[pixKey]int64)}
	if strings.TrimSpace(raw) == "" {
		return table, nil
	}
	var entries []PixPriceEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parsing pix prices: %w", err)
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
		if currency == "" || entry.Amount <= 0 {
			return nil, fmt.Errorf("pix price entry requires currency and a positive amount")
		}
		key := pixKey{tier: tier, interval: interval, currency: currency}
		if _, exists := table.byKey[key]; exists {
			return nil, fmt.Errorf("duplicate pix price for %s/%s/%s", tier, interval, currency)
		}
		table.byKey[key] = entry.Amount
	}
	return table, nil
}

// Amount returns the configured minor-unit amount for the variant.
func (t *PixPriceTable) Amount(tier enums.SubscriptionTier, interval enums.BillingInterval, currency string) (int64, bool) {
	if t == nil {
		return 0, false
	}
	amount, ok := t.byKey[pixKey{tier: tier, interval: interval, currency: strings.ToLower(currency)}]
	return amount, ok
}
