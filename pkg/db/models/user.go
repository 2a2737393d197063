package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// User represents the canonical identity entity. Subscription fields are
// denormalized from the payment provider so entitlement checks never need a
// vendor round trip.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string     `gorm:"type:text;not null;uniqueIndex"`
	Name        string     `gorm:"column:name;not null"`
	Locale      string     `gorm:"column:locale;not null;default:'en'"`
	Market      string     `gorm:"column:market;not null;default:'us'"`
	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`

	SubscriptionTier             enums.SubscriptionTier   `gorm:"column:subscription_tier;not null;default:'starter'"`
	SubscriptionStatus           enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'inactive'"`
	PaymentProvider              *enums.PaymentProvider   `gorm:"column:payment_provider"`
	ProviderCustomerID           *string                  `gorm:"column:provider_customer_id;index"`
	ProviderSubscriptionID       *string                  `gorm:"column:provider_subscription_id;index"`
	SubscriptionCurrentPeriodEnd *time.Time               `gorm:"column:subscription_current_period_end"`
	// SubscriptionEndsAt is the hard expiry used by the one-time prepaid rail.
	SubscriptionEndsAt *time.Time `gorm:"column:subscription_ends_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
