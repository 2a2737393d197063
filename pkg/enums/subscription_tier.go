package enums

import "fmt"

// SubscriptionTier is the internal entitlement level. Everything outside the
// payment layer reasons about tiers, never about vendor plan identifiers.
type SubscriptionTier string

const (
	TierStarter SubscriptionTier = "starter"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
)

var validSubscriptionTiers = []SubscriptionTier{
	TierStarter,
	TierPremium,
	TierPro,
}

func (t SubscriptionTier) String() string {
	return string(t)
}

func (t SubscriptionTier) IsValid() bool {
	for _, candidate := range validSubscriptionTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSubscriptionTier converts raw input into a SubscriptionTier.
func ParseSubscriptionTier(value string) (SubscriptionTier, error) {
	for _, candidate := range validSubscriptionTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription tier %q", value)
}
