package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// Choice is a value/label pair offered by a select input.
type Choice struct {
	Value string
	Label string
}

// ClassLevelChoices are the classes offered at registration.
var ClassLevelChoices = []Choice{
	{Value: "6eme", Label: "6ème"},
	{Value: "5eme", Label: "5ème"},
	{Value: "4eme", Label: "4ème"},
	{Value: "3eme", Label: "3ème"},
	{Value: "2nde", Label: "2nde"},
	{Value: "1ere", Label: "1ère"},
	{Value: "terminale", Label: "Terminale"},
}

type User struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	FirstName            string         `gorm:"type:varchar(150)" json:"first_name" validate:"max=150"`
	LastName             string         `gorm:"type:varchar(150)" json:"last_name" validate:"max=150"`
	Email                string         `gorm:"uniqueIndex;type:varchar(200)" json:"email" validate:"required,email,min=5,max=200"`
	Phone                *string        `gorm:"uniqueIndex;type:varchar(20)" json:"phone,omitempty" validate:"omitempty,min=8,max=20"`
	Password             string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                 string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status               string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	IsStudent            bool           `json:"is_student"`
	IsTeacher            bool           `json:"is_teacher"`
	School               string         `gorm:"type:varchar(200);default:null" json:"school" validate:"max=200"`
	ClassLevel           string         `gorm:"type:varchar(50);default:null" json:"class_level" validate:"max=50"`
	AvatarKey            string         `gorm:"type:varchar(255);default:null" json:"avatar_key"`
	EmailVerified        bool           `json:"email_verified"`
	PhoneVerified        bool           `json:"phone_verified"`
	PaymentCustomerID    string         `gorm:"type:varchar(100);default:null" json:"-"`
	NewsletterSubscribed bool           `json:"newsletter_subscribed"`
	LastLoginAt          *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	LastActivityAt       *time.Time     `gorm:"type:timestamp;default:null" json:"last_activity_at"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a new student account from the registration form.
// The full name is split on the first space into first and last name.
func CreateUser(fullName, email, phone, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	first, last := SplitFullName(fullName)
	u := &User{
		FirstName: first,
		LastName:  last,
		Email:     NormalizeEmail(email),
		Password:  pw,
		Role:      ROLE_USER,
		Status:    STATUS_ACTIVE,
		IsStudent: true,
	}
	if p := NormalizePhone(phone); p != "" {
		u.Phone = &p
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

func SplitFullName(fullName string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(fullName), " ", 2)
	first := parts[0]
	last := ""
	if len(parts) > 1 {
		last = strings.TrimSpace(parts[1])
	}
	return first, last
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips spaces and dots so "97 00 00 00" and "97000000" match.
func NormalizePhone(phone string) string {
	r := strings.NewReplacer(" ", "", ".", "", "-", "")
	return r.Replace(strings.TrimSpace(phone))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName falls back to the email when no name was given.
func (u *User) DisplayName() string {
	if n := u.FullName(); n != "" {
		return n
	}
	return u.Email
}

func (u *User) PhoneNumber() string {
	if u.Phone == nil {
		return ""
	}
	return *u.Phone
}

// ProfileCompletion returns the share of filled profile fields in percent.
func (u *User) ProfileCompletion() int {
	fields := []string{u.FirstName, u.LastName, u.Email, u.PhoneNumber(), u.School, u.ClassLevel}
	filled := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return filled * 100 / len(fields)
}

// DaysAsMember counts full days since registration.
func (u *User) DaysAsMember(now time.Time) int {
	if u.CreatedAt.IsZero() || now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt).Hours() / 24)
}
