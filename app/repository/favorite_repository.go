package repository

import (
	"context"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new favorites repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Toggle removes the favourite when present, otherwise adds it. It reports
// whether the paper is a favourite afterwards.
func (r *favoriteRepository) Toggle(ctx context.Context, userID, paperID uint) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Where("user_id = ? AND paper_id = ?", userID, paperID).Delete(&models.Favorite{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	fav := &models.Favorite{UserID: userID, PaperID: paperID}
	if err := db.Omit("Paper").Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *favoriteRepository) Exists(ctx context.Context, userID, paperID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		Count(&count).Error
	return count > 0, err
}

func (r *favoriteRepository) ListByUser(ctx context.Context, userID uint) ([]models.Favorite, error) {
	var favorites []models.Favorite
	err := r.db.WithContext(ctx).
		Preload("Paper").
		Preload("Paper.Subject").
		Preload("Paper.Class").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&favorites).Error
	return favorites, err
}
