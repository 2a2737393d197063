package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// PaymentHistory is the audit trail for the one-time prepaid rail. Recurring
// subscription state lives on the user record; these rows are never read on
// the entitlement path.
type PaymentHistory struct {
	ID              uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	PaymentIntentID string                 `gorm:"column:payment_intent_id;not null;uniqueIndex"`
	Provider        enums.PaymentProvider  `gorm:"column:provider;not null"`
	Amount          int64                  `gorm:"column:amount;not null"`
	Currency        string                 `gorm:"column:currency;not null"`
	Status          enums.PaymentStatus    `gorm:"column:status;not null;default:'pending'"`
	PaymentMethod   string                 `gorm:"column:payment_method;not null"`
	Tier            enums.SubscriptionTier `gorm:"column:tier;not null"`
	Interval        enums.BillingInterval  `gorm:"column:interval;not null"`
	ExpiresAt       *time.Time             `gorm:"column:expires_at"`
	Metadata        json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
