package repository

import (
	"context"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListSystems(ctx context.Context) ([]models.SchoolSystem, error) {
	var systems []models.SchoolSystem
	err := r.db.WithContext(ctx).Order("id ASC").Find(&systems).Error
	return systems, err
}

func (r *catalogRepository) ListLevels(ctx context.Context) ([]models.Level, error) {
	var levels []models.Level
	err := r.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&levels).Error
	return levels, err
}

func (r *catalogRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	err := r.db.WithContext(ctx).Preload("Level").Order("level_id ASC, number ASC").Find(&classes).Error
	return classes, err
}

func (r *catalogRepository) ListSeries(ctx context.Context) ([]models.Series, error) {
	var series []models.Series
	err := r.db.WithContext(ctx).Order("code ASC").Find(&series).Error
	return series, err
}

func (r *catalogRepository) ListPeriods(ctx context.Context) ([]models.Period, error) {
	var periods []models.Period
	err := r.db.WithContext(ctx).Order("number ASC").Find(&periods).Error
	return periods, err
}

// ListSubjects returns active subjects by name
func (r *catalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&subjects).Error
	return subjects, err
}

func (r *catalogRepository) paperQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Level").
		Preload("Class").
		Preload("Series").
		Preload("Subject").
		Preload("Period")
}

// GetPaperBySlug returns an active paper with its taxonomy loaded
func (r *catalogRepository) GetPaperBySlug(ctx context.Context, slug string) (*models.ExamPaper, error) {
	var paper models.ExamPaper
	err := r.paperQuery(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&paper).Error
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

func (r *catalogRepository) GetPaperByID(ctx context.Context, id uint) (*models.ExamPaper, error) {
	var paper models.ExamPaper
	err := r.paperQuery(ctx).First(&paper, id).Error
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

func (r *catalogRepository) CreatePaper(ctx context.Context, paper *models.ExamPaper) error {
	return r.db.WithContext(ctx).Omit("Level", "Class", "Series", "Subject", "Period").Create(paper).Error
}

// PaperSlugExists also sees soft-deleted papers, the unique index does too.
func (r *catalogRepository) PaperSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.ExamPaper{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// FindPapers returns one page of active papers and the total matching the scopes.
func (r *catalogRepository) FindPapers(ctx context.Context, offset, limit int, scopes ...Scope) ([]models.ExamPaper, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.ExamPaper{}).Where("exam_papers.is_active = ?", true)
	for _, s := range scopes {
		base = s(base)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		return nil, total, nil
	}

	var papers []models.ExamPaper
	err := base.Session(&gorm.Session{}).
		Preload("Level").
		Preload("Class").
		Preload("Series").
		Preload("Subject").
		Preload("Period").
		Order("exam_papers.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&papers).Error
	return papers, total, err
}

// SimilarPapers returns other active papers of the same subject and class.
func (r *catalogRepository) SimilarPapers(ctx context.Context, paper *models.ExamPaper, limit int) ([]models.ExamPaper, error) {
	var papers []models.ExamPaper
	err := r.paperQuery(ctx).
		Where("subject_id = ? AND class_id = ? AND is_active = ? AND id <> ?", paper.SubjectID, paper.ClassID, true, paper.ID).
		Order("id DESC").
		Limit(limit).
		Find(&papers).Error
	return papers, err
}

func (r *catalogRepository) IncrementPaperViews(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ExamPaper{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

func (r *catalogRepository) IncrementPaperDownloads(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.ExamPaper{}).Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
}
