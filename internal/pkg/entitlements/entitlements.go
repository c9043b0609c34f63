package entitlements

import (
	"math"
	"strings"
	"time"

	"github.com/epreuvespro/epreuvespro/app/models"
)

type Plan string

const (
	PlanFree    Plan = models.SubscriptionPlanFree
	PlanMonthly Plan = models.SubscriptionPlanMonthly
	PlanYearly  Plan = models.SubscriptionPlanYearly
)

// Unlimited is reported as remaining quota for a valid paid plan.
const Unlimited = math.MaxInt32

type Reason string

const (
	ReasonAlreadyRecorded      Reason = "already_recorded"
	ReasonSubscription         Reason = "subscription"
	ReasonFreeItem             Reason = "free_item"
	ReasonPurchased            Reason = "purchased"
	ReasonFreeCredit           Reason = "free_credit"
	ReasonQuotaExhausted       Reason = "quota_exhausted"
	ReasonSubscriptionExpired  Reason = "subscription_expired"
	ReasonSubscriptionRequired Reason = "subscription_required"
)

// ParsePlan maps free-form input onto a known plan, defaulting to free.
func ParsePlan(s string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanMonthly:
		return PlanMonthly
	case PlanYearly:
		return PlanYearly
	default:
		return PlanFree
	}
}

func (p Plan) IsPaid() bool {
	return p == PlanMonthly || p == PlanYearly
}

// Item carries the per-item facts the rule depends on.
type Item struct {
	Premium         bool
	Purchased       bool
	AlreadyRecorded bool
	// FreeCredits is true for item kinds the free quota can unlock (papers).
	FreeCredits bool
}

type Decision struct {
	Allowed            bool
	Reason             Reason
	Remaining          int
	ConsumesFreeCredit bool
}

// IsUnlimited reports whether the remaining quota is the unlimited sentinel.
func (d Decision) IsUnlimited() bool {
	return d.Remaining == Unlimited
}

// RemainingAfter is the quota left once this decision has been recorded.
func (d Decision) RemainingAfter() int {
	if d.IsUnlimited() || !d.ConsumesFreeCredit {
		return d.Remaining
	}
	if d.Remaining <= 0 {
		return 0
	}
	return d.Remaining - 1
}

// Remaining reports the quota left on a subscription at a given time.
// A nil subscription is treated as a fresh free account.
func Remaining(sub *models.Subscription, now time.Time) int {
	if sub == nil {
		return models.FreeDownloadsIncluded
	}
	if ParsePlan(sub.Plan).IsPaid() {
		if sub.IsValid(now) {
			return Unlimited
		}
		return 0
	}
	if !sub.IsActive {
		return 0
	}
	return sub.FreeRemaining()
}

// Evaluate decides access to a single item. The order of the checks matters:
// a recorded item is never charged twice and a purchase beats the quota.
func Evaluate(sub *models.Subscription, item Item, now time.Time) Decision {
	if sub == nil {
		sub = models.NewFreeSubscription(0, now)
	}
	remaining := Remaining(sub, now)
	plan := ParsePlan(sub.Plan)

	switch {
	case item.AlreadyRecorded:
		return Decision{Allowed: true, Reason: ReasonAlreadyRecorded, Remaining: remaining}
	case plan.IsPaid() && sub.IsValid(now):
		return Decision{Allowed: true, Reason: ReasonSubscription, Remaining: remaining}
	case !item.Premium:
		return Decision{Allowed: true, Reason: ReasonFreeItem, Remaining: remaining}
	case item.Purchased:
		return Decision{Allowed: true, Reason: ReasonPurchased, Remaining: remaining}
	}

	if plan.IsPaid() {
		return Decision{Reason: ReasonSubscriptionExpired, Remaining: 0}
	}
	if !item.FreeCredits {
		return Decision{Reason: ReasonSubscriptionRequired, Remaining: remaining}
	}
	if sub.IsActive && remaining > 0 {
		return Decision{Allowed: true, Reason: ReasonFreeCredit, Remaining: remaining, ConsumesFreeCredit: true}
	}
	return Decision{Reason: ReasonQuotaExhausted, Remaining: 0}
}
