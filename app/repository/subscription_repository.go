package repository

import (
	"context"
	"time"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetOrCreate(ctx context.Context, userID uint, now time.Time) (*models.Subscription, error) {
	db := r.db.WithContext(ctx)
	fresh := models.NewFreeSubscription(userID, now)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(fresh).Error; err != nil {
		return nil, err
	}

	var sub models.Subscription
	if err := db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// IncrementUsed bumps the consumed quota in SQL, never read-modify-write.
func (r *subscriptionRepository) IncrementUsed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", id).
		UpdateColumn("downloads_used", gorm.Expr("downloads_used + ?", 1)).Error
}
