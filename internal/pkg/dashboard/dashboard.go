// Package dashboard assembles the personal statistics pages.
package dashboard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
	"github.com/epreuvespro/epreuvespro/internal/pkg/statistics"
)

const RecentDownloads = 5

type Stats struct {
	Subscription       *models.Subscription
	TotalDownloads     int64
	DownloadsThisMonth int64
	FreeCreditsUsed    int
	Remaining          int
	Unlimited          bool
	UsagePercent       int
	FavoriteSubject    *repository.SubjectCount
	Recent             []models.Download
	Reading            []models.ReadingProgress
	Favorites          []models.Favorite
	Global             statistics.StatisticsData
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// usagePercent is the share of the free quota already spent.
func usagePercent(used, included int) int {
	if included <= 0 {
		return 0
	}
	p := used * 100 / included
	if p > 100 {
		return 100
	}
	return p
}

func (s *Service) Stats(ctx context.Context, userID uint) (*Stats, error) {
	repos := repository.NewRepositories(s.db)
	now := s.now()

	sub, err := repos.Subscription.GetOrCreate(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	total, err := repos.Download.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	month, err := repos.Download.CountByUserSince(ctx, userID, monthStart(now))
	if err != nil {
		return nil, err
	}
	top, err := repos.Download.TopSubjectByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := repos.Download.ListByUser(ctx, userID, 0, RecentDownloads)
	if err != nil {
		return nil, err
	}
	reading, err := repos.Library.ListProgressByUser(ctx, userID, 3)
	if err != nil {
		return nil, err
	}
	favorites, err := repos.Favorite.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining := entitlements.Remaining(sub, now)
	return &Stats{
		Subscription:       sub,
		TotalDownloads:     total,
		DownloadsThisMonth: month,
		FreeCreditsUsed:    sub.DownloadsUsed,
		Remaining:          remaining,
		Unlimited:          remaining == entitlements.Unlimited,
		UsagePercent:       usagePercent(sub.DownloadsUsed, sub.DownloadsIncluded),
		FavoriteSubject:    top,
		Recent:             recent,
		Reading:            reading,
		Favorites:          favorites,
		Global:             statistics.GetStatisticsData(ctx, s.db),
	}, nil
}

// MonthGroup is one month of the download history.
type MonthGroup struct {
	Month     time.Time
	Downloads []models.Download
}

// Label renders the month in French, e.g. "mars 2024".
func (g MonthGroup) Label() string {
	return frenchMonths[g.Month.Month()-1] + " " + g.Month.Format("2006")
}

var frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}

// GroupByMonth splits downloads, already sorted newest first, into months.
func GroupByMonth(downloads []models.Download) []MonthGroup {
	var groups []MonthGroup
	for _, d := range downloads {
		m := monthStart(d.CreatedAt)
		if n := len(groups); n == 0 || !groups[n-1].Month.Equal(m) {
			groups = append(groups, MonthGroup{Month: m})
		}
		groups[len(groups)-1].Downloads = append(groups[len(groups)-1].Downloads, d)
	}
	return groups
}

const HistoryLimit = 500

// History returns the user's downloads grouped by month, newest first.
func (s *Service) History(ctx context.Context, userID uint) ([]MonthGroup, error) {
	downloads, err := repository.NewDownloadRepository(s.db).ListByUser(ctx, userID, 0, HistoryLimit)
	if err != nil {
		return nil, err
	}
	return GroupByMonth(downloads), nil
}
