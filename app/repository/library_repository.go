package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type libraryRepository struct {
	db *gorm.DB
}

// NewLibraryRepository creates a new library repository
func NewLibraryRepository(db *gorm.DB) LibraryRepository {
	return &libraryRepository{db: db}
}

// ListCategories returns active categories in display order
func (r *libraryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order ASC, name ASC").Find(&categories).Error
	return categories, err
}

func (r *libraryRepository) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := r.db.WithContext(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *libraryRepository) GetBookBySlug(ctx context.Context, slug string) (*models.Book, error) {
	var b models.Book
	err := r.db.WithContext(ctx).Preload("Category").Where("slug = ? AND is_active = ?", slug, true).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *libraryRepository) CreateBook(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Omit("Category").Create(book).Error
}

func (r *libraryRepository) BookSlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&models.Book{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// FindBooks returns one page of active books in insertion order.
func (r *libraryRepository) FindBooks(ctx context.Context, offset, limit int, scopes ...Scope) ([]models.Book, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Book{}).Where("books.is_active = ?", true)
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

	var books []models.Book
	err := base.Session(&gorm.Session{}).
		Preload("Category").
		Order("books.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&books).Error
	return books, total, err
}

func (r *libraryRepository) SimilarBooks(ctx context.Context, book *models.Book, limit int) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("category_id = ? AND is_active = ? AND id <> ?", book.CategoryID, true, book.ID).
		Order("rating_average DESC, id DESC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

func (r *libraryRepository) IncrementBookReads(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", id).
		UpdateColumn("read_count", gorm.Expr("read_count + ?", 1)).Error
}

func (r *libraryRepository) IncrementBookDownloads(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
}

func (r *libraryRepository) HasPurchase(ctx context.Context, userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BookPurchase{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// CreatePurchase returns false when the user already owns the book.
func (r *libraryRepository) CreatePurchase(ctx context.Context, purchase *models.BookPurchase) (bool, error) {
	tx := r.db.WithContext(ctx).Omit("User", "Book").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoNothing: true,
	}).Create(purchase)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// GetProgress returns nil when the user never opened the book.
func (r *libraryRepository) GetProgress(ctx context.Context, userID, bookID uint) (*models.ReadingProgress, error) {
	var p models.ReadingProgress
	err := r.db.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *libraryRepository) CreateProgressIfAbsent(ctx context.Context, progress *models.ReadingProgress) (bool, error) {
	tx := r.db.WithContext(ctx).Omit("Book").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoNothing: true,
	}).Create(progress)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *libraryRepository) UpdateProgress(ctx context.Context, progress *models.ReadingProgress) error {
	return r.db.WithContext(ctx).Model(&models.ReadingProgress{}).Where("id = ?", progress.ID).
		Updates(map[string]interface{}{
			"current_page": progress.CurrentPage,
			"percent":      progress.Percent,
			"finished":     progress.Finished,
			"updated_at":   time.Now(),
		}).Error
}

// ListProgressByUser returns the most recently touched books first
func (r *libraryRepository) ListProgressByUser(ctx context.Context, userID uint, limit int) ([]models.ReadingProgress, error) {
	var progress []models.ReadingProgress
	q := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Book.Category").
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&progress).Error
	return progress, err
}

func (r *libraryRepository) GetReview(ctx context.Context, userID, bookID uint) (*models.Review, error) {
	var rv models.Review
	err := r.db.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).First(&rv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// UpsertReview keeps a single review per (user, book); a second submission
// replaces score and comment.
func (r *libraryRepository) UpsertReview(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit("User").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
	}).Create(review).Error
}

func (r *libraryRepository) ListApprovedReviews(ctx context.Context, bookID uint, limit int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("book_id = ? AND is_approved = ?", bookID, true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

// RecomputeRating stores the mean score and count of approved reviews on the book.
func (r *libraryRepository) RecomputeRating(ctx context.Context, bookID uint) (float64, int, error) {
	var agg struct {
		Average float64
		Total   int64
	}
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Review{}).
		Select("COALESCE(AVG(score), 0) AS average, COUNT(id) AS total").
		Where("book_id = ? AND is_approved = ?", bookID, true).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}

	avg := math.Round(agg.Average*100) / 100
	err = db.Model(&models.Book{}).Where("id = ?", bookID).
		UpdateColumns(map[string]interface{}{"rating_average": avg, "review_count": agg.Total}).Error
	if err != nil {
		return 0, 0, err
	}
	return avg, int(agg.Total), nil
}
