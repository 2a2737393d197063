package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/scanmyscale/scanmyscale-backend/pkg/db/models"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  locale TEXT NOT NULL DEFAULT 'en',
  market TEXT NOT NULL DEFAULT 'us',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  subscription_tier TEXT NOT NULL DEFAULT 'starter',
  subscription_status TEXT NOT NULL DEFAULT 'inactive',
  payment_provider TEXT,
  provider_customer_id TEXT,
  provider_subscription_id TEXT,
  subscription_current_period_end DATETIME,
  subscription_ends_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec("DELETE FROM users").Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{
		ID:                 uuid.New(),
		Email:              uuid.NewString() + "@example.com",
		Name:               "Test User",
		Locale:             "en",
		Market:             "us",
		IsActive:           true,
		SubscriptionTier:   enums.TierStarter,
		SubscriptionStatus: enums.SubscriptionStatusInactive,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestFindByProviderCustomerID(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := "cus_123"
	seeded := seedUser(t, db, func(u *models.User) {
		u.ProviderCustomerID = &customerID
	})
	seedUser(t, db, nil)

	found, err := repo.FindByProviderCustomerID(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByProviderCustomerID(ctx, "cus_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateProviderInfoPersistsLinkage(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, nil)

	require.NoError(t, repo.UpdateProviderInfo(ctx, user.ID, enums.ProviderStripe, "cus_new"))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.PaymentProvider)
	assert.Equal(t, enums.ProviderStripe, *reloaded.PaymentProvider)
	require.NotNil(t, reloaded.ProviderCustomerID)
	assert.Equal(t, "cus_new", *reloaded.ProviderCustomerID)
}

func TestUpdateSubscriptionOverwritesDenormalizedState(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	staleEnd := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	user := seedUser(t, db, func(u *models.User) {
		u.SubscriptionTier = enums.TierPremium
		u.SubscriptionStatus = enums.SubscriptionStatusPastDue
		u.SubscriptionCurrentPeriodEnd = &staleEnd
	})

	subID := "sub_1"
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateSubscription(ctx, user.ID, SubscriptionUpdate{
		Tier:             enums.TierPro,
		Status:           enums.SubscriptionStatusActive,
		Provider:         enums.ProviderStripe,
		SubscriptionID:   &subID,
		CurrentPeriodEnd: &periodEnd,
	}))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.TierPro, reloaded.SubscriptionTier)
	assert.Equal(t, enums.SubscriptionStatusActive, reloaded.SubscriptionStatus)
	require.NotNil(t, reloaded.ProviderSubscriptionID)
	assert.Equal(t, subID, *reloaded.ProviderSubscriptionID)
	require.NotNil(t, reloaded.SubscriptionCurrentPeriodEnd)
	assert.WithinDuration(t, periodEnd, *reloaded.SubscriptionCurrentPeriodEnd, time.Second)
}

func TestUpdateSubscriptionKeepsExistingCustomerID(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	customerID := "cus_keep"
	user := seedUser(t, db, func(u *models.User) {
		u.ProviderCustomerID = &customerID
	})

	// Nil ProviderCustomerID means "leave it alone", not "clear it".
	require.NoError(t, repo.UpdateSubscription(ctx, user.ID, SubscriptionUpdate{
		Tier:     enums.TierPremium,
		Status:   enums.SubscriptionStatusActive,
		Provider: enums.ProviderStripe,
	}))

	reloaded, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ProviderCustomerID)
	assert.Equal(t, customerID, *reloaded.ProviderCustomerID)
}

func TestCreateAppliesDefaults(t *testing.T) {
	dto := CreateUserDTO{Email: "new@example.com", Name: "New User"}
	user := dto.ToModel()

	assert.Equal(t, "en", user.Locale)
	assert.Equal(t, "us", user.Market)
	assert.True(t, user.IsActive)
	assert.Equal(t, enums.TierStarter, user.SubscriptionTier)
	assert.Equal(t, enums.SubscriptionStatusInactive, user.SubscriptionStatus)
}
