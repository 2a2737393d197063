package checkout

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scanmyscale/scanmyscale-backend/pkg/db/models"
)

// Repository persists the prepaid payment audit trail.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a checkout repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// RecordPayment inserts the payment row once. Replays of the same payment
// intent (vendor retries, user refreshes on the success page) are no-ops, so
// verification stays idempotent.
func (r *Repository) RecordPayment(ctx context.Context, payment *models.PaymentHistory) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_intent_id"}},
			DoNothing: true,
		}).
		Create(payment).Error
}

// PaymentsForUser lists a user's payment rows, newest first.
func (r *Repository) PaymentsForUser(ctx context.Context, userID string, limit int) ([]models.PaymentHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []models.PaymentHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
