package repository

import (
	"context"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity log repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.UserActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListByUser returns the most recent entries first
func (r *activityRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.UserActivity, error) {
	var activities []models.UserActivity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}
