package statistics

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/cache"
)

const (
	CacheKeyUsers       = "statistics:users:total"
	CacheKeyPapers      = "statistics:papers:active"
	CacheKeyCorrections = "statistics:papers:corrections"
	CacheKeyBooks       = "statistics:books:active"
	CacheExpiration     = 30 * time.Minute
)

// StatisticsData holds the site-wide counters shown on the dashboard
type StatisticsData struct {
	TotalUsers       int64
	TotalPapers      int64
	TotalCorrections int64
	TotalBooks       int64
}

type counter struct {
	key   string
	count func(db *gorm.DB) (int64, error)
}

var counters = []counter{
	{CacheKeyUsers, func(db *gorm.DB) (int64, error) {
		var n int64
		err := db.Model(&models.User{}).Count(&n).Error
		return n, err
	}},
	{CacheKeyPapers, func(db *gorm.DB) (int64, error) {
		var n int64
		err := db.Model(&models.ExamPaper{}).Where("is_active = ?", true).Count(&n).Error
		return n, err
	}},
	{CacheKeyCorrections, func(db *gorm.DB) (int64, error) {
		var n int64
		err := db.Model(&models.ExamPaper{}).
			Where("is_active = ? AND correction_file IS NOT NULL AND correction_file <> ''", true).
			Count(&n).Error
		return n, err
	}},
	{CacheKeyBooks, func(db *gorm.DB) (int64, error) {
		var n int64
		err := db.Model(&models.Book{}).Where("is_active = ?", true).Count(&n).Error
		return n, err
	}},
}

// cached returns the value under key, computing and storing it on a miss.
// Cache failures fall through to the database.
func cached(ctx context.Context, db *gorm.DB, c counter) int64 {
	if val, err := cache.Get(ctx, c.key); err == nil {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			return n
		}
	}

	n, err := c.count(db.WithContext(ctx))
	if err != nil {
		log.Errorf("[Statistics] Error counting %s: %v", c.key, err)
		return 0
	}
	if err := cache.Set(ctx, c.key, strconv.FormatInt(n, 10), CacheExpiration); err != nil {
		log.Warnf("[Statistics] Error caching %s: %v", c.key, err)
	}
	return n
}

// GetStatisticsData returns the global counters from cache or database
func GetStatisticsData(ctx context.Context, db *gorm.DB) StatisticsData {
	return StatisticsData{
		TotalUsers:       cached(ctx, db, counters[0]),
		TotalPapers:      cached(ctx, db, counters[1]),
		TotalCorrections: cached(ctx, db, counters[2]),
		TotalBooks:       cached(ctx, db, counters[3]),
	}
}

// Invalidate drops all cached counters, called after catalog changes.
func Invalidate(ctx context.Context) {
	keys := make([]string, 0, len(counters))
	for _, c := range counters {
		keys = append(keys, c.key)
	}
	if err := cache.Delete(ctx, keys...); err != nil {
		log.Warnf("[Statistics] Error invalidating cache: %v", err)
	}
}
