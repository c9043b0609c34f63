package repository

import (
	"context"
	"time"

	"github.com/epreuvespro/epreuvespro/app/models"
	"gorm.io/gorm"
)

// Scope narrows a query; catalog filters are expressed as scopes.
type Scope func(*gorm.DB) *gorm.DB

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error)
	PhoneTaken(ctx context.Context, phone string, exceptID uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
	TouchLogin(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	Search(ctx context.Context, query string) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ActivityRepository stores the append-only activity log
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.UserActivity) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.UserActivity, error)
}

// TokenRepository manages email verification and password reset tokens
type TokenRepository interface {
	Create(ctx context.Context, token *models.VerificationToken) error
	GetByToken(ctx context.Context, token, purpose string) (*models.VerificationToken, error)
	// MarkUsed consumes the token; it returns false when it was already used.
	MarkUsed(ctx context.Context, id uint, at time.Time) (bool, error)
	InvalidateForUser(ctx context.Context, userID uint, purpose string, at time.Time) error
}

// SubscriptionRepository manages the per-user entitlement row
type SubscriptionRepository interface {
	// GetOrCreate inserts the free-plan row when missing and returns the stored row.
	GetOrCreate(ctx context.Context, userID uint, now time.Time) (*models.Subscription, error)
	Save(ctx context.Context, sub *models.Subscription) error
	IncrementUsed(ctx context.Context, id uint) error
}

// CatalogRepository covers the school taxonomy and exam papers
type CatalogRepository interface {
	ListSystems(ctx context.Context) ([]models.SchoolSystem, error)
	ListLevels(ctx context.Context) ([]models.Level, error)
	ListClasses(ctx context.Context) ([]models.Class, error)
	ListSeries(ctx context.Context) ([]models.Series, error)
	ListPeriods(ctx context.Context) ([]models.Period, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetPaperBySlug(ctx context.Context, slug string) (*models.ExamPaper, error)
	GetPaperByID(ctx context.Context, id uint) (*models.ExamPaper, error)
	CreatePaper(ctx context.Context, paper *models.ExamPaper) error
	PaperSlugExists(ctx context.Context, slug string) (bool, error)
	// FindPapers only counts when limit <= 0.
	FindPapers(ctx context.Context, offset, limit int, scopes ...Scope) ([]models.ExamPaper, int64, error)
	SimilarPapers(ctx context.Context, paper *models.ExamPaper, limit int) ([]models.ExamPaper, error)
	IncrementPaperViews(ctx context.Context, id uint) error
	IncrementPaperDownloads(ctx context.Context, id uint) error
}

// DownloadRepository is the paper download ledger
type DownloadRepository interface {
	Get(ctx context.Context, userID, paperID uint) (*models.Download, error)
	// GetForShare is Get with a shared row lock. Inside a transaction it sees
	// rows committed after the transaction snapshot was taken.
	GetForShare(ctx context.Context, userID, paperID uint) (*models.Download, error)
	// InsertIfAbsent writes the ledger row unless (user, paper) already exists.
	InsertIfAbsent(ctx context.Context, download *models.Download) (bool, error)
	MarkCorrection(ctx context.Context, id uint) error
	ListByUser(ctx context.Context, userID uint, offset, limit int) ([]models.Download, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	CountByUserSince(ctx context.Context, userID uint, since time.Time) (int64, error)
	CountFreeCreditsByUser(ctx context.Context, userID uint) (int64, error)
	TopSubjectByUser(ctx context.Context, userID uint) (*SubjectCount, error)
}

// FavoriteRepository manages favourite papers
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, paperID uint) (bool, error)
	Exists(ctx context.Context, userID, paperID uint) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Favorite, error)
}

// LibraryRepository covers books, purchases, reading progress and reviews
type LibraryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetBookBySlug(ctx context.Context, slug string) (*models.Book, error)
	CreateBook(ctx context.Context, book *models.Book) error
	BookSlugExists(ctx context.Context, slug string) (bool, error)
	FindBooks(ctx context.Context, offset, limit int, scopes ...Scope) ([]models.Book, int64, error)
	SimilarBooks(ctx context.Context, book *models.Book, limit int) ([]models.Book, error)
	IncrementBookReads(ctx context.Context, id uint) error
	IncrementBookDownloads(ctx context.Context, id uint) error

	HasPurchase(ctx context.Context, userID, bookID uint) (bool, error)
	CreatePurchase(ctx context.Context, purchase *models.BookPurchase) (bool, error)

	GetProgress(ctx context.Context, userID, bookID uint) (*models.ReadingProgress, error)
	CreateProgressIfAbsent(ctx context.Context, progress *models.ReadingProgress) (bool, error)
	UpdateProgress(ctx context.Context, progress *models.ReadingProgress) error
	ListProgressByUser(ctx context.Context, userID uint, limit int) ([]models.ReadingProgress, error)

	GetReview(ctx context.Context, userID, bookID uint) (*models.Review, error)
	UpsertReview(ctx context.Context, review *models.Review) error
	ListApprovedReviews(ctx context.Context, bookID uint, limit int) ([]models.Review, error)
	RecomputeRating(ctx context.Context, bookID uint) (float64, int, error)
}

// SubjectCount is a subject with the number of downloads attributed to it
type SubjectCount struct {
	SubjectID uint
	Name      string
	Total     int64
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	Activity     ActivityRepository
	Token        TokenRepository
	Subscription SubscriptionRepository
	Catalog      CatalogRepository
	Download     DownloadRepository
	Favorite     FavoriteRepository
	Library      LibraryRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Activity:     NewActivityRepository(db),
		Token:        NewTokenRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Catalog:      NewCatalogRepository(db),
		Download:     NewDownloadRepository(db),
		Favorite:     NewFavoriteRepository(db),
		Library:      NewLibraryRepository(db),
	}
}
