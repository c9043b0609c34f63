// Package library implements book access, reading progress and reviews.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
)

var (
	ErrAccessDenied  = errors.New("access denied")
	ErrInvalidScore  = errors.New("score must be between 1 and 5")
	ErrNoReadingFile = errors.New("book has no downloadable file")
)

const (
	SimilarBooks  = 3
	LatestReviews = 5
)

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Access evaluates the entitlement rule for a book. Free credits never apply
// to books.
func (s *Service) Access(ctx context.Context, userID uint, book *models.Book) (entitlements.Decision, error) {
	repos := repository.NewRepositories(s.db)
	sub, err := repos.Subscription.GetOrCreate(ctx, userID, s.now())
	if err != nil {
		return entitlements.Decision{}, err
	}
	purchased, err := repos.Library.HasPurchase(ctx, userID, book.ID)
	if err != nil {
		return entitlements.Decision{}, err
	}
	return entitlements.Evaluate(sub, entitlements.Item{
		Premium:   book.IsPremium,
		Purchased: purchased,
	}, s.now()), nil
}

func (s *Service) require(ctx context.Context, userID uint, book *models.Book) error {
	d, err := s.Access(ctx, userID, book)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return fmt.Errorf("%w: %s", ErrAccessDenied, d.Reason)
	}
	return nil
}

// StartReading opens the online reader. The first open creates the progress
// row and counts one read.
func (s *Service) StartReading(ctx context.Context, userID uint, book *models.Book) (*models.ReadingProgress, error) {
	if err := s.require(ctx, userID, book); err != nil {
		return nil, err
	}

	var progress *models.ReadingProgress
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewLibraryRepository(tx)
		fresh := &models.ReadingProgress{UserID: userID, BookID: book.ID, CurrentPage: 1}
		created, err := repo.CreateProgressIfAbsent(ctx, fresh)
		if err != nil {
			return err
		}
		if created {
			if err := repo.IncrementBookReads(ctx, book.ID); err != nil {
				return err
			}
			progress = fresh
			return nil
		}
		progress, err = repo.GetProgress(ctx, userID, book.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// Download checks access and returns the blob key and attachment name.
// Nothing is counted until the caller has the blob in hand, see CountDownload.
func (s *Service) Download(ctx context.Context, userID uint, book *models.Book) (key, filename string, err error) {
	if err := s.require(ctx, userID, book); err != nil {
		return "", "", err
	}
	key, ext := book.DownloadFile()
	if key == "" {
		return "", "", ErrNoReadingFile
	}
	return key, book.DownloadFilename(ext), nil
}

// CountDownload bumps the book's download counter. Failures are logged only.
func (s *Service) CountDownload(ctx context.Context, book *models.Book) {
	if err := repository.NewLibraryRepository(s.db).IncrementBookDownloads(ctx, book.ID); err != nil {
		log.Warnf("[Library] could not count download of book %d: %v", book.ID, err)
	}
}

// ClampPercent bounds a reported reading percentage to 0..100.
func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// SaveProgress stores the reader position and reports whether the book is finished.
func (s *Service) SaveProgress(ctx context.Context, userID uint, book *models.Book, page, percent int) (*models.ReadingProgress, error) {
	if err := s.require(ctx, userID, book); err != nil {
		return nil, err
	}
	repo := repository.NewLibraryRepository(s.db)
	progress, err := repo.GetProgress(ctx, userID, book.ID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = &models.ReadingProgress{UserID: userID, BookID: book.ID}
		if _, err := repo.CreateProgressIfAbsent(ctx, progress); err != nil {
			return nil, err
		}
		if progress.ID == 0 {
			if progress, err = repo.GetProgress(ctx, userID, book.ID); err != nil {
				return nil, err
			}
		}
	}

	if page < 1 {
		page = 1
	}
	progress.CurrentPage = page
	progress.Percent = ClampPercent(percent)
	progress.Finished = progress.Percent >= models.FinishedThreshold
	if err := repo.UpdateProgress(ctx, progress); err != nil {
		return nil, err
	}
	return progress, nil
}

// SubmitReview creates or replaces the user's review and refreshes the book rating.
func (s *Service) SubmitReview(ctx context.Context, userID uint, book *models.Book, score int, comment string) (*models.Review, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidScore
	}
	review := &models.Review{
		UserID:     userID,
		BookID:     book.ID,
		Score:      score,
		Comment:    strings.TrimSpace(comment),
		IsApproved: true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewLibraryRepository(tx)
		if err := repo.UpsertReview(ctx, review); err != nil {
			return err
		}
		avg, count, err := repo.RecomputeRating(ctx, book.ID)
		if err != nil {
			return err
		}
		book.RatingAverage = avg
		book.ReviewCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// RecordPurchase stores a one-off purchase. Buying twice is a no-op.
func (s *Service) RecordPurchase(ctx context.Context, userID uint, book *models.Book, amount int) (*models.BookPurchase, bool, error) {
	purchase := &models.BookPurchase{
		UserID:        userID,
		BookID:        book.ID,
		AmountPaid:    amount,
		TransactionID: uuid.NewString(),
	}
	created, err := repository.NewLibraryRepository(s.db).CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, false, err
	}
	return purchase, created, nil
}

// Detail is everything the book page shows besides the book itself.
type Detail struct {
	Similar   []models.Book
	Reviews   []models.Review
	Progress  *models.ReadingProgress
	MyReview  *models.Review
	Access    entitlements.Decision
	Purchased bool
}

func (s *Service) Detail(ctx context.Context, userID uint, book *models.Book) (*Detail, error) {
	repo := repository.NewLibraryRepository(s.db)
	similar, err := repo.SimilarBooks(ctx, book, SimilarBooks)
	if err != nil {
		return nil, err
	}
	reviews, err := repo.ListApprovedReviews(ctx, book.ID, LatestReviews)
	if err != nil {
		return nil, err
	}
	d := &Detail{Similar: similar, Reviews: reviews}
	if userID == 0 {
		return d, nil
	}
	if d.Progress, err = repo.GetProgress(ctx, userID, book.ID); err != nil {
		return nil, err
	}
	if d.MyReview, err = repo.GetReview(ctx, userID, book.ID); err != nil {
		return nil, err
	}
	if d.Purchased, err = repo.HasPurchase(ctx, userID, book.ID); err != nil {
		return nil, err
	}
	if d.Access, err = s.Access(ctx, userID, book); err != nil {
		return nil, err
	}
	return d, nil
}
