package entitlements

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/epreuvespro/epreuvespro/app/models"
)

var now = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func paidSub(plan string, expires time.Time) *models.Subscription {
	return &models.Subscription{Plan: plan, IsActive: true, ExpiresAt: &expires, DownloadsIncluded: 3}
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "monthly", want: PlanMonthly},
		{in: " YEARLY ", want: PlanYearly},
		{in: "premium", want: PlanFree},
		{in: "", want: PlanFree},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePlan(tt.in), tt.in)
	}
}

func TestEvaluate(t *testing.T) {
	premiumPaper := Item{Premium: true, FreeCredits: true}
	premiumBook := Item{Premium: true}

	tests := []struct {
		name      string
		sub       *models.Subscription
		item      Item
		allowed   bool
		reason    Reason
		consumes  bool
		remaining int
		unlimited bool
	}{
		{
			name:      "nil subscription behaves like fresh free plan",
			sub:       nil,
			item:      premiumPaper,
			allowed:   true,
			reason:    ReasonFreeCredit,
			consumes:  true,
			remaining: 3,
		},
		{
			name:      "free plan with credits left",
			sub:       &models.Subscription{Plan: "free", IsActive: true, DownloadsIncluded: 3, DownloadsUsed: 2},
			item:      premiumPaper,
			allowed:   true,
			reason:    ReasonFreeCredit,
			consumes:  true,
			remaining: 1,
		},
		{
			name:      "free plan exhausted",
			sub:       &models.Subscription{Plan: "free", IsActive: true, DownloadsIncluded: 3, DownloadsUsed: 3},
			item:      premiumPaper,
			allowed:   false,
			reason:    ReasonQuotaExhausted,
			remaining: 0,
		},
		{
			name:      "overused counter clamps to zero",
			sub:       &models.Subscription{Plan: "free", IsActive: true, DownloadsIncluded: 3, DownloadsUsed: 9},
			item:      premiumPaper,
			allowed:   false,
			reason:    ReasonQuotaExhausted,
			remaining: 0,
		},
		{
			name:      "already recorded is allowed without charge even when exhausted",
			sub:       &models.Subscription{Plan: "free", IsActive: true, DownloadsIncluded: 3, DownloadsUsed: 3},
			item:      Item{Premium: true, FreeCredits: true, AlreadyRecorded: true},
			allowed:   true,
			reason:    ReasonAlreadyRecorded,
			remaining: 0,
		},
		{
			name:      "non premium item never consumes credit",
			sub:       &models.Subscription{Plan: "free", IsActive: true, DownloadsIncluded: 3, DownloadsUsed: 3},
			item:      Item{FreeCredits: true},
			allowed:   true,
			reason:    ReasonFreeItem,
			remaining: 0,
		},
		{
			name:      "valid monthly plan is unlimited",
			sub:       paidSub("monthly", now.Add(24*time.Hour)),
			item:      premiumPaper,
			allowed:   true,
			reason:    ReasonSubscription,
			unlimited: true,
		},
		{
			name:      "valid yearly plan opens premium books",
			sub:       paidSub("yearly", now.AddDate(0, 6, 0)),
			item:      premiumBook,
			allowed:   true,
			reason:    ReasonSubscription,
			unlimited: true,
		},
		{
			name:      "expired paid plan without purchase is denied",
			sub:       paidSub("monthly", now.Add(-time.Hour)),
			item:      premiumPaper,
			allowed:   false,
			reason:    ReasonSubscriptionExpired,
			remaining: 0,
		},
		{
			name:      "expired paid plan with purchase is allowed",
			sub:       paidSub("monthly", now.Add(-time.Hour)),
			item:      Item{Premium: true, Purchased: true},
			allowed:   true,
			reason:    ReasonPurchased,
			remaining: 0,
		},
		{
			name:      "free plan cannot spend credits on books",
			sub:       &models.Subscription{Plan: "free", IsActive: true, DownloadsIncluded: 3},
			item:      premiumBook,
			allowed:   false,
			reason:    ReasonSubscriptionRequired,
			remaining: 3,
		},
		{
			name:      "inactive free plan is denied",
			sub:       &models.Subscription{Plan: "free", IsActive: false, DownloadsIncluded: 3},
			item:      premiumPaper,
			allowed:   false,
			reason:    ReasonQuotaExhausted,
			remaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.sub, tt.item, now)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.consumes, d.ConsumesFreeCredit)
			assert.GreaterOrEqual(t, d.Remaining, 0)
			if tt.unlimited {
				assert.True(t, d.IsUnlimited())
			} else {
				assert.Equal(t, tt.remaining, d.Remaining)
			}
		})
	}
}

func TestFreeTierGrantsExactlyThreePremiumItems(t *testing.T) {
	sub := models.NewFreeSubscription(1, now)
	granted := 0
	for i := 0; i < 5; i++ {
		d := Evaluate(sub, Item{Premium: true, FreeCredits: true}, now)
		if !d.Allowed {
			break
		}
		granted++
		if d.ConsumesFreeCredit {
			sub.DownloadsUsed++
		}
	}
	assert.Equal(t, 3, granted)
	assert.Equal(t, 0, Remaining(sub, now))
}

func TestRemainingAfter(t *testing.T) {
	assert.Equal(t, 2, Decision{Remaining: 3, ConsumesFreeCredit: true}.RemainingAfter())
	assert.Equal(t, 3, Decision{Remaining: 3}.RemainingAfter())
	assert.Equal(t, Unlimited, Decision{Remaining: Unlimited, ConsumesFreeCredit: true}.RemainingAfter())
}
