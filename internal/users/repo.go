package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scanmyscale/scanmyscale-backend/pkg/db/models"
	"github.com/scanmyscale/scanmyscale-backend/pkg/enums"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByProviderCustomerID resolves the user owning a vendor customer id.
// Webhook reconciliation keys on this, never on email.
func (r *Repository) FindByProviderCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("provider_customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProviderInfo records the vendor customer linkage. It is written
// before checkout redirects so an abandoned session still leaves the customer
// id attached.
func (r *Repository) UpdateProviderInfo(ctx context.Context, id uuid.UUID, provider enums.PaymentProvider, customerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payment_provider":     provider,
			"provider_customer_id": customerID,
		}).Error
}

// SubscriptionUpdate is the denormalized subscription state written onto the
// user row.
type SubscriptionUpdate struct {
	Tier               enums.SubscriptionTier
	Status             enums.SubscriptionStatus
	Provider           enums.PaymentProvider
	ProviderCustomerID *string
	SubscriptionID     *string
	CurrentPeriodEnd   *time.Time
	// EndsAt is the hard expiry for one-time prepaid purchases; nil clears it.
	EndsAt *time.Time
}

// UpdateSubscription overwrites the user's denormalized subscription fields.
func (r *Repository) UpdateSubscription(ctx context.Context, id uuid.UUID, update SubscriptionUpdate) error {
	fields := map[string]any{
		"subscription_tier":               update.Tier,
		"subscription_status":             update.Status,
		"payment_provider":                update.Provider,
		"provider_subscription_id":        update.SubscriptionID,
		"subscription_current_period_end": update.CurrentPeriodEnd,
		"subscription_ends_at":            update.EndsAt,
	}
	if update.ProviderCustomerID != nil {
		fields["provider_customer_id"] = *update.ProviderCustomerID
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}
