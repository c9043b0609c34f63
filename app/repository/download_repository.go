package repository

import (
	"context"
	"errors"
	"time"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type downloadRepository struct {
	db *gorm.DB
}

// NewDownloadRepository creates a new download ledger repository
func NewDownloadRepository(db *gorm.DB) DownloadRepository {
	return &downloadRepository{db: db}
}

// Get returns the ledger row or nil when the user never downloaded the paper.
func (r *downloadRepository) Get(ctx context.Context, userID, paperID uint) (*models.Download, error) {
	var d models.Download
	err := r.db.WithContext(ctx).Where("user_id = ? AND paper_id = ?", userID, paperID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *downloadRepository) GetForShare(ctx context.Context, userID, paperID uint) (*models.Download, error) {
	var d models.Download
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("user_id = ? AND paper_id = ?", userID, paperID).
		First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *downloadRepository) InsertIfAbsent(ctx context.Context, download *models.Download) (bool, error) {
	tx := r.db.WithContext(ctx).Omit("User", "Paper").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "paper_id"}},
		DoNothing: true,
	}).Create(download)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *downloadRepository) MarkCorrection(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Download{}).Where("id = ?", id).
		UpdateColumn("got_correction", true).Error
}

// ListByUser returns downloads newest first with the paper preloaded
func (r *downloadRepository) ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Download, error) {
	var downloads []models.Download
	err := r.db.WithContext(ctx).
		Preload("Paper").
		Preload("Paper.Subject").
		Preload("Paper.Class").
		Preload("Paper.Period").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&downloads).Error
	return downloads, err
}

func (r *downloadRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Download{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *downloadRepository) CountByUserSince(ctx context.Context, userID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Download{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *downloadRepository) CountFreeCreditsByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Download{}).
		Where("user_id = ? AND used_free_credit = ?", userID, true).
		Count(&count).Error
	return count, err
}

// TopSubjectByUser returns the subject the user downloaded most, nil without downloads.
func (r *downloadRepository) TopSubjectByUser(ctx context.Context, userID uint) (*SubjectCount, error) {
	var rows []SubjectCount
	err := r.db.WithContext(ctx).
		Table("downloads").
		Select("subjects.id AS subject_id, subjects.name AS name, COUNT(downloads.id) AS total").
		Joins("JOIN exam_papers ON exam_papers.id = downloads.paper_id").
		Joins("JOIN subjects ON subjects.id = exam_papers.subject_id").
		Where("downloads.user_id = ?", userID).
		Group("subjects.id, subjects.name").
		Order("total DESC, subjects.id ASC").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
