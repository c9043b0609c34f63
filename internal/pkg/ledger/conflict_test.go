package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
)

// racedDownloads stands in for a table where a concurrent request already
// committed the row: the snapshot read misses it, the locking read sees it.
type racedDownloads struct {
	repository.DownloadRepository
	row        *models.Download
	plainReads int
	lockReads  int
	marked     []uint
}

func (r *racedDownloads) Get(ctx context.Context, userID, paperID uint) (*models.Download, error) {
	r.plainReads++
	return nil, nil
}

func (r *racedDownloads) GetForShare(ctx context.Context, userID, paperID uint) (*models.Download, error) {
	r.lockReads++
	if r.row == nil {
		return nil, nil
	}
	cp := *r.row
	return &cp, nil
}

func (r *racedDownloads) InsertIfAbsent(ctx context.Context, d *models.Download) (bool, error) {
	return false, nil
}

func (r *racedDownloads) MarkCorrection(ctx context.Context, id uint) error {
	r.marked = append(r.marked, id)
	return nil
}

type countingSubscriptions struct {
	repository.SubscriptionRepository
	increments int
}

func (c *countingSubscriptions) IncrementUsed(ctx context.Context, id uint) error {
	c.increments++
	return nil
}

func TestAfterConflictReturnsWinnersRow(t *testing.T) {
	tests := []struct {
		name       string
		part       Part
		existing   models.Download
		wantMarked []uint
	}{
		{
			name:     "subject",
			part:     PartSubject,
			existing: models.Download{ID: 7, UserID: 1, PaperID: 9, UsedFreeCredit: true},
		},
		{
			name:       "correction marks winner row",
			part:       PartCorrection,
			existing:   models.Download{ID: 7, UserID: 1, PaperID: 9, UsedFreeCredit: true},
			wantMarked: []uint{7},
		},
		{
			name:     "correction already fetched",
			part:     PartCorrection,
			existing: models.Download{ID: 7, UserID: 1, PaperID: 9, GotCorrection: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			downloads := &racedDownloads{row: &tt.existing}
			subs := &countingSubscriptions{}
			repos := &repository.Repositories{Download: downloads, Subscription: subs}
			sub := models.NewFreeSubscription(1, fixedNow)
			sub.DownloadsUsed = 1

			r, err := newService(nil).afterConflict(context.Background(), repos, sub, 1, 9, tt.part, fixedNow)
			require.NoError(t, err)

			assert.Equal(t, entitlements.ReasonAlreadyRecorded, r.Reason)
			assert.False(t, r.FirstTime)
			assert.False(t, r.ChargedQuota)
			assert.Equal(t, uint(7), r.Download.ID)
			assert.Equal(t, models.FreeDownloadsIncluded-1, r.Remaining)
			assert.Equal(t, 0, subs.increments)
			assert.Equal(t, 1, downloads.lockReads)
			assert.Equal(t, 0, downloads.plainReads)
			assert.Equal(t, tt.wantMarked, downloads.marked)
			if tt.part == PartCorrection {
				assert.True(t, r.Download.GotCorrection)
			}
		})
	}
}

func TestAfterConflictMissingRowIsAnError(t *testing.T) {
	repos := &repository.Repositories{Download: &racedDownloads{}, Subscription: &countingSubscriptions{}}
	sub := models.NewFreeSubscription(1, fixedNow)

	_, err := newService(nil).afterConflict(context.Background(), repos, sub, 1, 9, PartSubject, fixedNow)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}
