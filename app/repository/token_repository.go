package repository

import (
	"context"
	"time"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
)

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new verification token repository
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *tokenRepository) GetByToken(ctx context.Context, token, purpose string) (*models.VerificationToken, error) {
	var t models.VerificationToken
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("token = ? AND purpose = ?", token, purpose).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed only succeeds for an unused token so two concurrent clicks cannot
// both consume it.
func (r *tokenRepository) MarkUsed(ctx context.Context, id uint, at time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.VerificationToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// InvalidateForUser burns all outstanding tokens of a purpose, used before issuing a new one.
func (r *tokenRepository) InvalidateForUser(ctx context.Context, userID uint, purpose string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.VerificationToken{}).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL", userID, purpose).
		Update("used_at", at).Error
}
