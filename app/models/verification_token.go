package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

const (
	TokenPurposeEmailVerification = "email_verification"
	TokenPurposePasswordReset     = "password_reset"
)

const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = 2 * time.Hour
)

type VerificationToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
	Purpose   string     `gorm:"type:varchar(30);index" json:"purpose"`
	Token     string     `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UsedAt    *time.Time `gorm:"type:timestamp;default:null" json:"used_at"`
}

// NewVerificationToken creates a random 32 byte hex token for the given purpose.
func NewVerificationToken(userID uint, purpose string) (*VerificationToken, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return &VerificationToken{
		UserID:  userID,
		Purpose: purpose,
		Token:   hex.EncodeToString(b),
	}, nil
}

func (t *VerificationToken) TTL() time.Duration {
	if t.Purpose == TokenPurposePasswordReset {
		return PasswordResetTTL
	}
	return EmailVerificationTTL
}

// IsValid reports whether the token is unused and younger than its TTL.
func (t *VerificationToken) IsValid(now time.Time) bool {
	if t.UsedAt != nil {
		return false
	}
	return now.Sub(t.CreatedAt) < t.TTL()
}
