package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
	"github.com/epreuvespro/epreuvespro/internal/pkg/fixtures"
)

var fixedNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newService(db *gorm.DB) *Service {
	s := NewService(db)
	s.now = func() time.Time { return fixedNow }
	return s
}

func loadSub(t *testing.T, db *gorm.DB, userID uint) models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).First(&sub).Error)
	return sub
}

func TestFreeUserGetsExactlyThreePremiumPapers(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.com")
	svc := newService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		paper := fixtures.AddPaper(t, db, tax, "Composition")
		r, err := svc.Record(ctx, user.ID, paper, PartSubject, "127.0.0.1")
		require.NoError(t, err)
		assert.True(t, r.FirstTime)
		assert.True(t, r.ChargedQuota)
		assert.Equal(t, entitlements.ReasonFreeCredit, r.Reason)
		assert.Equal(t, 2-i, r.Remaining)
	}

	fourth := fixtures.AddPaper(t, db, tax, "Composition")
	_, err := svc.Record(ctx, user.ID, fourth, PartSubject, "127.0.0.1")
	require.ErrorIs(t, err, ErrAccessDenied)
	reason, ok := DeniedReason(err)
	require.True(t, ok)
	assert.Equal(t, entitlements.ReasonQuotaExhausted, reason)

	sub := loadSub(t, db, user.ID)
	assert.Equal(t, 3, sub.DownloadsUsed)

	var rows int64
	db.Model(&models.Download{}).Where("user_id = ?", user.ID).Count(&rows)
	assert.Equal(t, int64(3), rows)
}

func TestRedownloadNeverChargesQuota(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.com")
	paper := fixtures.AddPaper(t, db, tax, "BEPC Maths", fixtures.WithCorrection("papers/corrections/1.pdf"))
	svc := newService(db)
	ctx := context.Background()

	first, err := svc.Record(ctx, user.ID, paper, PartSubject, "")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Remaining)

	for i := 0; i < 3; i++ {
		again, err := svc.Record(ctx, user.ID, paper, PartSubject, "")
		require.NoError(t, err)
		assert.False(t, again.FirstTime)
		assert.False(t, again.ChargedQuota)
		assert.Equal(t, entitlements.ReasonAlreadyRecorded, again.Reason)
		assert.Equal(t, 2, again.Remaining)
	}

	corr, err := svc.Record(ctx, user.ID, paper, PartCorrection, "")
	require.NoError(t, err)
	assert.True(t, corr.Download.GotCorrection)
	assert.True(t, corr.Download.GotSubject)

	assert.Equal(t, 1, loadSub(t, db, user.ID).DownloadsUsed)

	var stored models.ExamPaper
	require.NoError(t, db.First(&stored, paper.ID).Error)
	assert.Equal(t, int64(1), stored.DownloadCount)
}

func TestExhaustedUserCanStillRedownload(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.com")
	svc := newService(db)
	ctx := context.Background()

	var papers []*models.ExamPaper
	for i := 0; i < 3; i++ {
		p := fixtures.AddPaper(t, db, tax, "Devoir")
		_, err := svc.Record(ctx, user.ID, p, PartSubject, "")
		require.NoError(t, err)
		papers = append(papers, p)
	}

	r, err := svc.Record(ctx, user.ID, papers[0], PartSubject, "")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining)
}

func TestFreePaperDoesNotConsumeCredit(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.com")
	paper := fixtures.AddPaper(t, db, tax, "Sujet libre", fixtures.Premium(false))
	svc := newService(db)

	r, err := svc.Record(context.Background(), user.ID, paper, PartSubject, "")
	require.NoError(t, err)
	assert.True(t, r.FirstTime)
	assert.False(t, r.ChargedQuota)
	assert.Equal(t, entitlements.ReasonFreeItem, r.Reason)
	assert.False(t, r.Download.UsedFreeCredit)
	assert.Equal(t, 0, loadSub(t, db, user.ID).DownloadsUsed)
}

func TestPaidPlanIsUnlimitedAndExpiredPlanIsDenied(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.com")
	svc := newService(db)
	ctx := context.Background()

	expires := fixedNow.AddDate(0, 1, 0)
	require.NoError(t, db.Create(&models.Subscription{
		UserID: user.ID, Plan: models.SubscriptionPlanMonthly, StartedAt: fixedNow,
		ExpiresAt: &expires, IsActive: true, DownloadsIncluded: 3,
	}).Error)

	for i := 0; i < 5; i++ {
		p := fixtures.AddPaper(t, db, tax, "Bac")
		r, err := svc.Record(ctx, user.ID, p, PartSubject, "")
		require.NoError(t, err)
		assert.Equal(t, entitlements.ReasonSubscription, r.Reason)
		assert.Equal(t, entitlements.Unlimited, r.Remaining)
	}
	assert.Equal(t, 0, loadSub(t, db, user.ID).DownloadsUsed)

	past := fixedNow.Add(-time.Hour)
	require.NoError(t, db.Model(&models.Subscription{}).Where("user_id = ?", user.ID).Update("expires_at", past).Error)

	p := fixtures.AddPaper(t, db, tax, "Bac")
	_, err := svc.Record(ctx, user.ID, p, PartSubject, "")
	require.ErrorIs(t, err, ErrAccessDenied)
	reason, _ := DeniedReason(err)
	assert.Equal(t, entitlements.ReasonSubscriptionExpired, reason)
}

func TestAccessDoesNotWrite(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.com")
	paper := fixtures.AddPaper(t, db, tax, "Composition")
	svc := newService(db)

	d, existing, err := svc.Access(context.Background(), user.ID, paper)
	require.NoError(t, err)
	assert.Nil(t, existing)
	assert.True(t, d.Allowed)
	assert.True(t, d.ConsumesFreeCredit)
	assert.Equal(t, 3, d.Remaining)

	var rows int64
	db.Model(&models.Download{}).Count(&rows)
	assert.Zero(t, rows)
}
