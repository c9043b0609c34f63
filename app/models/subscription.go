package models

import (
	"time"
)

const (
	SubscriptionPlanFree    = "free"
	SubscriptionPlanMonthly = "monthly"
	SubscriptionPlanYearly  = "yearly"
)

// FreeDownloadsIncluded is the quota granted to a fresh free-tier account.
const FreeDownloadsIncluded = 3

// Subscription is the per-user entitlement row. It is created lazily on first
// access and never deleted.
type Subscription struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"uniqueIndex" json:"user_id"`
	User              User       `gorm:"foreignKey:UserID" json:"-"`
	Plan              string     `gorm:"type:varchar(20);default:'free'" json:"plan"`
	StartedAt         time.Time  `json:"started_at"`
	ExpiresAt         *time.Time `gorm:"type:timestamp;default:null" json:"expires_at"`
	IsActive          bool       `json:"is_active"`
	DownloadsIncluded int        `json:"downloads_included"`
	DownloadsUsed     int        `gorm:"default:0" json:"downloads_used"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewFreeSubscription returns the default row for a user without one.
func NewFreeSubscription(userID uint, now time.Time) *Subscription {
	return &Subscription{
		UserID:            userID,
		Plan:              SubscriptionPlanFree,
		StartedAt:         now,
		IsActive:          true,
		DownloadsIncluded: FreeDownloadsIncluded,
	}
}

func (s *Subscription) IsPaid() bool {
	return s.Plan == SubscriptionPlanMonthly || s.Plan == SubscriptionPlanYearly
}

func (s *Subscription) IsFree() bool {
	return !s.IsPaid()
}

// IsValid mirrors the access rule: an inactive row is never valid, the free
// plan is always valid, a paid plan is valid until it expires.
func (s *Subscription) IsValid(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.IsFree() {
		return true
	}
	return s.ExpiresAt != nil && s.ExpiresAt.After(now)
}

// FreeRemaining is the unclamped-safe count of free credits left.
func (s *Subscription) FreeRemaining() int {
	left := s.DownloadsIncluded - s.DownloadsUsed
	if left < 0 {
		return 0
	}
	return left
}

// DaysLeft returns the whole days until expiry for paid plans, 0 otherwise.
func (s *Subscription) DaysLeft(now time.Time) int {
	if s.ExpiresAt == nil || !s.ExpiresAt.After(now) {
		return 0
	}
	return int(s.ExpiresAt.Sub(now).Hours() / 24)
}

func (s *Subscription) PlanLabel() string {
	switch s.Plan {
	case SubscriptionPlanMonthly:
		return "Mensuel"
	case SubscriptionPlanYearly:
		return "Annuel"
	default:
		return "Gratuit"
	}
}
