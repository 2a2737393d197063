package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/scanmyscale/scanmyscale-backend/pkg/db/models"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// UserDTO is the transport shape of an account, subscription state included.
type UserDTO struct {
	ID                 uuid.UUID                `json:"id"`
	Email              string                   `json:"email"`
	Name               string                   `json:"name"`
	Locale             string                   `json:"locale"`
	Market             string                   `json:"market"`
	IsActive           bool                     `json:"is_active"`
	SubscriptionTier   enums.SubscriptionTier   `json:"subscription_tier"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	PaymentProvider    *enums.PaymentProvider   `json:"payment_provider,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"subscription_current_period_end,omitempty"`
	SubscriptionEndsAt *time.Time               `json:"subscription_ends_at,omitempty"`
	LastLoginAt        *time.Time               `json:"last_login_at,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email    string
	Name     string
	Locale   string
	Market   string
	IsActive *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Locale:             u.Locale,
		Market:             u.Market,
		IsActive:           u.IsActive,
		SubscriptionTier:   u.SubscriptionTier,
		SubscriptionStatus: u.SubscriptionStatus,
		PaymentProvider:    u.PaymentProvider,
		CurrentPeriodEnd:   u.SubscriptionCurrentPeriodEnd,
		SubscriptionEndsAt: u.SubscriptionEndsAt,
		LastLoginAt:        u.LastLoginAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	locale := c.Locale
	if locale == "" {
		locale = "en"
	}
	market := c.Market
	if market == "" {
		market = "us"
	}
	return &models.User{
		Email:              c.Email,
		Name:               c.Name,
		Locale:             locale,
		Market:             market,
		IsActive:           isActive,
		SubscriptionTier:   enums.TierStarter,
		SubscriptionStatus: enums.SubscriptionStatusInactive,
	}
}
