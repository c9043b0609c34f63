// Package ledger records paper downloads and charges the free quota exactly
// once per (user, paper).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
)

// ErrAccessDenied is returned when the entitlement rule refuses the download.
// The concrete reason is available through DeniedReason.
var ErrAccessDenied = errors.New("access denied")

// Part selects which file of a paper is fetched.
type Part int

const (
	PartSubject Part = iota
	PartCorrection
)

type deniedError struct {
	reason entitlements.Reason
}

func (e *deniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccessDenied.Error(), e.reason)
}

func (e *deniedError) Unwrap() error {
	return ErrAccessDenied
}

// DeniedReason extracts the refusal reason from an ErrAccessDenied error.
func DeniedReason(err error) (entitlements.Reason, bool) {
	var d *deniedError
	if errors.As(err, &d) {
		return d.reason, true
	}
	return "", false
}

// Receipt describes a granted download.
type Receipt struct {
	Download     *models.Download
	Reason       entitlements.Reason
	FirstTime    bool
	ChargedQuota bool
	Remaining    int
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Access evaluates the rule for a paper without writing anything. Detail
// pages use it to show the remaining quota and the download state.
func (s *Service) Access(ctx context.Context, userID uint, paper *models.ExamPaper) (entitlements.Decision, *models.Download, error) {
	repos := repository.NewRepositories(s.db)
	sub, err := repos.Subscription.GetOrCreate(ctx, userID, s.now())
	if err != nil {
		return entitlements.Decision{}, nil, err
	}
	existing, err := repos.Download.Get(ctx, userID, paper.ID)
	if err != nil {
		return entitlements.Decision{}, nil, err
	}
	d := entitlements.Evaluate(sub, entitlements.Item{
		Premium:         paper.IsPremium,
		AlreadyRecorded: existing != nil,
		FreeCredits:     true,
	}, s.now())
	return d, existing, nil
}

// Record applies the entitlement rule and writes the ledger in one
// transaction. The insert is conflict-ignoring on (user, paper): when two
// first downloads race, only the one that inserted the row charges quota.
func (s *Service) Record(ctx context.Context, userID uint, paper *models.ExamPaper, part Part, ip string) (*Receipt, error) {
	var receipt *Receipt
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		now := s.now()

		sub, err := repos.Subscription.GetOrCreate(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("load subscription: %w", err)
		}

		existing, err := repos.Download.Get(ctx, userID, paper.ID)
		if err != nil {
			return fmt.Errorf("load download: %w", err)
		}
		if existing != nil {
			receipt, err = s.reaccess(ctx, repos, sub, existing, part, now)
			return err
		}

		decision := entitlements.Evaluate(sub, entitlements.Item{
			Premium:     paper.IsPremium,
			FreeCredits: true,
		}, now)
		if !decision.Allowed {
			return &deniedError{reason: decision.Reason}
		}

		row := &models.Download{
			UserID:         userID,
			PaperID:        paper.ID,
			IPAddress:      ip,
			GotSubject:     part == PartSubject,
			GotCorrection:  part == PartCorrection,
			UsedFreeCredit: decision.ConsumesFreeCredit,
		}
		inserted, err := repos.Download.InsertIfAbsent(ctx, row)
		if err != nil {
			return fmt.Errorf("insert download: %w", err)
		}
		if !inserted {
			receipt, err = s.afterConflict(ctx, repos, sub, userID, paper.ID, part, now)
			return err
		}

		if decision.ConsumesFreeCredit {
			if err := repos.Subscription.IncrementUsed(ctx, sub.ID); err != nil {
				return fmt.Errorf("charge quota: %w", err)
			}
		}
		if err := repos.Catalog.IncrementPaperDownloads(ctx, paper.ID); err != nil {
			return fmt.Errorf("count download: %w", err)
		}

		receipt = &Receipt{
			Download:     row,
			Reason:       decision.Reason,
			FirstTime:    true,
			ChargedQuota: decision.ConsumesFreeCredit,
			Remaining:    decision.RemainingAfter(),
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAccessDenied) {
			log.Errorf("[Ledger] record download user=%d paper=%d: %v", userID, paper.ID, err)
		}
		return nil, err
	}
	return receipt, nil
}

// afterConflict serves a first download that lost the insert race against a
// concurrent one. A plain read would use the transaction snapshot, which
// predates the winner's commit, so the row is reloaded with a shared lock.
func (s *Service) afterConflict(ctx context.Context, repos *repository.Repositories, sub *models.Subscription, userID, paperID uint, part Part, now time.Time) (*Receipt, error) {
	existing, err := repos.Download.GetForShare(ctx, userID, paperID)
	if err != nil {
		return nil, fmt.Errorf("reload download: %w", err)
	}
	if existing == nil {
		return nil, errors.New("download vanished after conflict")
	}
	return s.reaccess(ctx, repos, sub, existing, part, now)
}

func (s *Service) reaccess(ctx context.Context, repos *repository.Repositories, sub *models.Subscription, existing *models.Download, part Part, now time.Time) (*Receipt, error) {
	if part == PartCorrection && !existing.GotCorrection {
		if err := repos.Download.MarkCorrection(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("mark correction: %w", err)
		}
		existing.GotCorrection = true
	}
	return &Receipt{
		Download:  existing,
		Reason:    entitlements.ReasonAlreadyRecorded,
		Remaining: entitlements.Remaining(sub, now),
	}, nil
}
