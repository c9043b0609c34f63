package accounts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/fixtures"
	"github.com/epreuvespro/epreuvespro/internal/pkg/forms"
)

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *recordingMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// tokenFrom extracts the trailing token of the first link in a mail body.
func tokenFrom(t *testing.T, body, prefix string) string {
	t.Helper()
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, body)
	rest := body[i+len(prefix):]
	end := strings.IndexAny(rest, "\"<")
	require.Greater(t, end, 0)
	return rest[:end]
}

func newService(t *testing.T) (*Service, *recordingMailer, *gorm.DB, *time.Time) {
	db := fixtures.NewDB(t)
	m := &recordingMailer{}
	svc := NewService(db, m, "https://epreuves.test/")
	now := time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, m, db, &now
}

func validRegistration() forms.RegisterForm {
	return forms.RegisterForm{
		FullName:        "Ada  Houngbo Kpanou",
		Email:           "Ada@Example.com",
		Phone:           "97 00 00 01",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		ClassLevel:      "Terminale D",
		AcceptTerms:     true,
		Newsletter:      true,
	}
}

func TestRegisterCreatesUserSubscriptionAndMail(t *testing.T) {
	svc, mailer, db, _ := newService(t)
	ctx := context.Background()

	user, errs, err := svc.Register(ctx, validRegistration(), Client{IP: "10.0.0.1"})
	require.NoError(t, err)
	require.Nil(t, errs)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Houngbo Kpanou", user.LastName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "97000001", user.PhoneNumber())
	assert.True(t, user.NewsletterSubscribed)

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, models.SubscriptionPlanFree, sub.Plan)
	assert.Equal(t, 3, sub.DownloadsIncluded)

	var acts []models.UserActivity
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&acts).Error)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityRegister, acts[0].Action)
	assert.Equal(t, "10.0.0.1", acts[0].IPAddress)

	sent := mailer.last()
	assert.Equal(t, "ada@example.com", sent.To)
	assert.Contains(t, sent.Body, "https://epreuves.test/verify-email/")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, validRegistration(), Client{})
	require.NoError(t, err)

	again := validRegistration()
	again.Email = "ADA@example.com"
	_, errs, err := svc.Register(ctx, again, Client{})
	require.NoError(t, err)
	assert.True(t, errs.Has("email"))
	assert.True(t, errs.Has("phone"))
}

func TestRegisterReturnsFieldErrors(t *testing.T) {
	svc, _, _, _ := newService(t)
	in := validRegistration()
	in.PasswordConfirm = "nope"

	_, errs, err := svc.Register(context.Background(), in, Client{})
	require.NoError(t, err)
	assert.True(t, errs.Has("password_confirm"))
}

func TestAuthenticateByEmailOrPhone(t *testing.T) {
	svc, _, db, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, validRegistration(), Client{})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, " ada@EXAMPLE.com ", "secret123", Client{})
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)

	u2, err := svc.Authenticate(ctx, "97.00.00.01", "secret123", Client{})
	require.NoError(t, err)
	assert.Equal(t, u.ID, u2.ID)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong", Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "secret123", Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", u.ID).Update("status", models.STATUS_DISABLED).Error)
	_, err = svc.Authenticate(ctx, "ada@example.com", "secret123", Client{})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	var logins int64
	db.Model(&models.UserActivity{}).Where("user_id = ? AND action = ?", u.ID, models.ActivityLogin).Count(&logins)
	assert.Equal(t, int64(2), logins)
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	svc, mailer, _, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, validRegistration(), Client{})
	require.NoError(t, err)

	token := tokenFrom(t, mailer.last().Body, "/verify-email/")
	u, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)

	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.VerifyEmail(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestResendInvalidatesPreviousToken(t *testing.T) {
	svc, mailer, _, _ := newService(t)
	ctx := context.Background()
	user, _, err := svc.Register(ctx, validRegistration(), Client{})
	require.NoError(t, err)
	old := tokenFrom(t, mailer.last().Body, "/verify-email/")

	require.NoError(t, svc.SendVerification(ctx, user))
	fresh := tokenFrom(t, mailer.last().Body, "/verify-email/")
	assert.NotEqual(t, old, fresh)

	_, err = svc.VerifyEmail(ctx, old)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.VerifyEmail(ctx, fresh)
	assert.NoError(t, err)
}

func TestPasswordResetFlowAndExpiry(t *testing.T) {
	svc, mailer, _, now := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, validRegistration(), Client{})
	require.NoError(t, err)

	before := len(mailer.sent)
	require.NoError(t, svc.RequestPasswordReset(ctx, "unknown@example.com"))
	assert.Len(t, mailer.sent, before)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ada@example.com"))
	token := tokenFrom(t, mailer.last().Body, "/password/reset/")
	require.NoError(t, svc.CheckResetToken(ctx, token))

	errs, err := svc.ResetPassword(ctx, token, forms.ResetPasswordForm{Password: "short", PasswordConfirm: "short"})
	require.NoError(t, err)
	assert.True(t, errs.Has("password"))

	errs, err = svc.ResetPassword(ctx, token, forms.ResetPasswordForm{Password: "nouveau-secret", PasswordConfirm: "nouveau-secret"})
	require.NoError(t, err)
	require.Nil(t, errs)

	_, err = svc.Authenticate(ctx, "ada@example.com", "nouveau-secret", Client{})
	assert.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ada@example.com"))
	expired := tokenFrom(t, mailer.last().Body, "/password/reset/")
	*now = now.Add(3 * time.Hour)
	assert.ErrorIs(t, svc.CheckResetToken(ctx, expired), ErrTokenInvalid)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, db, _ := newService(t)
	ctx := context.Background()
	ada, _, err := svc.Register(ctx, validRegistration(), Client{})
	require.NoError(t, err)
	other := fixtures.AddUser(t, db, "kofi@example.com")

	errs, err := svc.UpdateProfile(ctx, other, forms.ProfileForm{FirstName: "Kofi", Phone: ada.PhoneNumber()})
	require.NoError(t, err)
	assert.True(t, errs.Has("phone"))

	errs, err = svc.UpdateProfile(ctx, other, forms.ProfileForm{FirstName: "Kofi", LastName: "Agbo", School: "CEG Gbégamey", ClassLevel: "3ème", Phone: "96 11 22 33"})
	require.NoError(t, err)
	require.Nil(t, errs)

	p, err := svc.Profile(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "96112233", p.User.PhoneNumber())
	assert.Equal(t, 100, p.Completion)
	assert.Equal(t, models.SubscriptionPlanFree, p.Subscription.Plan)
}
