// Package accounts handles registration, login, email verification,
// password reset, profiles and the activity log.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/app/repository"
	"github.com/epreuvespro/epreuvespro/internal/pkg/forms"
	"github.com/epreuvespro/epreuvespro/internal/pkg/mail"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrTokenInvalid       = errors.New("token invalid or expired")
)

// Client identifies the request that triggered an activity entry.
type Client struct {
	IP        string
	UserAgent string
}

type Service struct {
	db      *gorm.DB
	mailer  mail.Mailer
	baseURL string
	now     func() time.Time
}

func NewService(db *gorm.DB, mailer mail.Mailer, baseURL string) *Service {
	return &Service{
		db:      db,
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (s *Service) repos() *repository.Repositories {
	return repository.NewRepositories(s.db)
}

// Register validates uniqueness, stores the user with a free subscription and
// sends the verification mail. Field errors are returned for the form.
func (s *Service) Register(ctx context.Context, in forms.RegisterForm, client Client) (*models.User, forms.FieldErrors, error) {
	if errs := forms.Validate(&in); errs != nil {
		return nil, errs, nil
	}

	repos := s.repos()
	errs := forms.FieldErrors{}
	taken, err := repos.User.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, nil, err
	}
	if taken {
		errs.Add("email", "Cette adresse email est déjà utilisée.")
	}
	if in.Phone != "" {
		taken, err = repos.User.PhoneTaken(ctx, in.Phone, 0)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			errs.Add("phone", "Ce numéro de téléphone est déjà utilisé.")
		}
	}
	if errs.Any() {
		return nil, errs, nil
	}

	user, err := models.CreateUser(in.FullName, in.Email, in.Phone, in.Password)
	if err != nil {
		return nil, forms.FieldErrors{"_": "Données d'inscription invalides."}, nil
	}
	user.ClassLevel = strings.TrimSpace(in.ClassLevel)
	user.School = strings.TrimSpace(in.School)
	user.NewsletterSubscribed = in.Newsletter

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repository.NewRepositories(tx)
		if err := r.User.Create(ctx, user); err != nil {
			return err
		}
		if _, err := r.Subscription.GetOrCreate(ctx, user.ID, s.now()); err != nil {
			return err
		}
		return r.Activity.Create(ctx, s.activity(user.ID, models.ActivityRegister, client, nil))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	if err := s.SendVerification(ctx, user); err != nil {
		log.Warnf("[Accounts] verification mail for user %d failed: %v", user.ID, err)
	}
	return user, nil, nil
}

// Authenticate accepts an email address or a phone number as identifier.
func (s *Service) Authenticate(ctx context.Context, identifier, password string, client Client) (*models.User, error) {
	repos := s.repos()
	identifier = strings.TrimSpace(identifier)

	var user *models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = repos.User.GetByEmail(ctx, identifier)
	} else {
		user, err = repos.User.GetByPhone(ctx, identifier)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if err := repos.User.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	s.Log(ctx, user.ID, models.ActivityLogin, client, nil)
	return user, nil
}

// Log appends an activity entry; failures are logged and swallowed.
func (s *Service) Log(ctx context.Context, userID uint, action string, client Client, details map[string]any) {
	s.LogItem(ctx, userID, action, client, details, nil, nil)
}

// LogItem is Log for entries about a specific paper or book.
func (s *Service) LogItem(ctx context.Context, userID uint, action string, client Client, details map[string]any, paperID, bookID *uint) {
	a := s.activity(userID, action, client, details)
	a.PaperID = paperID
	a.BookID = bookID
	if err := s.repos().Activity.Create(ctx, a); err != nil {
		log.Warnf("[Accounts] activity %s for user %d not stored: %v", action, userID, err)
	}
}

func (s *Service) activity(userID uint, action string, client Client, details map[string]any) *models.UserActivity {
	a := models.NewUserActivity(userID, action, details)
	a.IPAddress = client.IP
	a.UserAgent = client.UserAgent
	return a
}

func (s *Service) issueToken(ctx context.Context, userID uint, purpose string) (*models.VerificationToken, error) {
	repo := s.repos().Token
	if err := repo.InvalidateForUser(ctx, userID, purpose, s.now()); err != nil {
		return nil, err
	}
	token, err := models.NewVerificationToken(userID, purpose)
	if err != nil {
		return nil, err
	}
	token.CreatedAt = s.now()
	if err := repo.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// SendVerification issues a fresh email verification token and mails the link.
func (s *Service) SendVerification(ctx context.Context, user *models.User) error {
	token, err := s.issueToken(ctx, user.ID, models.TokenPurposeEmailVerification)
	if err != nil {
		return err
	}
	subject, body, err := mail.VerificationEmail(user.DisplayName(), s.baseURL+"/verify-email/"+token.Token)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, user.Email, subject, body)
}

// consume loads an unused token younger than its TTL and marks it used.
func (s *Service) consume(ctx context.Context, raw, purpose string) (*models.VerificationToken, error) {
	repo := s.repos().Token
	token, err := repo.GetByToken(ctx, strings.TrimSpace(raw), purpose)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !token.IsValid(s.now()) {
		return nil, ErrTokenInvalid
	}
	ok, err := repo.MarkUsed(ctx, token.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenInvalid
	}
	return token, nil
}

// VerifyEmail consumes a verification token and flags the address as verified.
func (s *Service) VerifyEmail(ctx context.Context, raw string) (*models.User, error) {
	token, err := s.consume(ctx, raw, models.TokenPurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	user, err := s.repos().User.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	user.EmailVerified = true
	if err := s.repos().User.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset mails a reset link. Unknown addresses are ignored so
// the response does not reveal which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repos().User.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.issueToken(ctx, user.ID, models.TokenPurposePasswordReset)
	if err != nil {
		return err
	}
	subject, body, err := mail.PasswordResetEmail(user.DisplayName(), s.baseURL+"/password/reset/"+token.Token)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, user.Email, subject, body)
}

// CheckResetToken reports whether a reset link can still be used, without consuming it.
func (s *Service) CheckResetToken(ctx context.Context, raw string) error {
	token, err := s.repos().Token.GetByToken(ctx, strings.TrimSpace(raw), models.TokenPurposePasswordReset)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	if !token.IsValid(s.now()) {
		return ErrTokenInvalid
	}
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, raw string, in forms.ResetPasswordForm) (forms.FieldErrors, error) {
	if errs := forms.Validate(&in); errs != nil {
		return errs, nil
	}
	token, err := s.consume(ctx, raw, models.TokenPurposePasswordReset)
	if err != nil {
		return nil, err
	}
	user, err := s.repos().User.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, err
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, err
	}
	return nil, s.repos().User.Update(ctx, user)
}

// UpdateProfile applies the profile form. The phone must stay unique.
func (s *Service) UpdateProfile(ctx context.Context, user *models.User, in forms.ProfileForm) (forms.FieldErrors, error) {
	if errs := forms.Validate(&in); errs != nil {
		return errs, nil
	}
	repos := s.repos()
	phone := models.NormalizePhone(in.Phone)
	if phone != "" {
		taken, err := repos.User.PhoneTaken(ctx, phone, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return forms.FieldErrors{"phone": "Ce numéro de téléphone est déjà utilisé."}, nil
		}
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.School = strings.TrimSpace(in.School)
	user.ClassLevel = strings.TrimSpace(in.ClassLevel)
	user.NewsletterSubscribed = in.Newsletter
	if phone == "" {
		user.Phone = nil
	} else {
		if user.PhoneNumber() != phone {
			user.PhoneVerified = false
		}
		user.Phone = &phone
	}
	return nil, repos.User.Update(ctx, user)
}

// SetAvatar stores the blob key of a processed avatar.
func (s *Service) SetAvatar(ctx context.Context, user *models.User, key string) error {
	user.AvatarKey = key
	return s.repos().User.Update(ctx, user)
}

// Profile is the data of the profile page.
type Profile struct {
	User         *models.User
	Subscription *models.Subscription
	Activities   []models.UserActivity
	Completion   int
	DaysAsMember int
}

func (s *Service) Profile(ctx context.Context, userID uint) (*Profile, error) {
	repos := s.repos()
	user, err := repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := repos.Subscription.GetOrCreate(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	activities, err := repos.Activity.ListByUser(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:         user,
		Subscription: sub,
		Activities:   activities,
		Completion:   user.ProfileCompletion(),
		DaysAsMember: user.DaysAsMember(s.now()),
	}, nil
}
