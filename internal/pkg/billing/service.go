package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
)

var ErrUnknownPlan = errors.New("unknown plan")

// Service activates plans on the per-user subscription row. Payment capture
// happens outside the application; operators record the result here.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Current returns the user's subscription, creating the free row if needed.
func (s *Service) Current(ctx context.Context, userID uint) (*models.Subscription, error) {
	return repository.NewSubscriptionRepository(s.db).GetOrCreate(ctx, userID, s.now())
}

// ActivatePlan switches a user to plan. Paid plans run one period from now,
// or from the current expiry when the same plan is renewed early. Moving to a
// higher plan resets the consumed quota; downgrades keep it.
func (s *Service) ActivatePlan(ctx context.Context, userID uint, plan string) (*models.Subscription, error) {
	if !isKnownPlan(plan) {
		return nil, ErrUnknownPlan
	}
	plan = normalizePlan(plan)

	var sub *models.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewSubscriptionRepository(tx)
		now := s.now()
		var err error
		sub, err = repo.GetOrCreate(ctx, userID, now)
		if err != nil {
			return err
		}

		start := now
		if sub.Plan == plan && sub.ExpiresAt != nil && sub.ExpiresAt.After(now) {
			start = *sub.ExpiresAt
		} else {
			sub.StartedAt = now
		}
		if planRank(plan) > planRank(sub.Plan) {
			sub.DownloadsUsed = 0
		}

		sub.Plan = plan
		sub.ExpiresAt = expiryFrom(plan, start)
		sub.IsActive = true
		sub.DownloadsIncluded = models.FreeDownloadsIncluded
		return repo.Save(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	log.Infof("[Billing] user %d switched to plan %s (expires %v)", userID, plan, sub.ExpiresAt)
	return sub, nil
}

// Comparison is the data of the plan comparison page.
type Comparison struct {
	Offers    []Offer
	Current   entitlements.Plan
	Remaining int
	Valid     bool
	DaysLeft  int
}

func (s *Service) Compare(ctx context.Context, userID uint) (*Comparison, error) {
	sub, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &Comparison{
		Offers:    Offers,
		Current:   entitlements.ParsePlan(sub.Plan),
		Remaining: entitlements.Remaining(sub, now),
		Valid:     sub.IsValid(now),
		DaysLeft:  sub.DaysLeft(now),
	}, nil
}
