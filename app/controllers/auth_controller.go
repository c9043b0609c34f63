package controllers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/accounts"
	"github.com/epreuvespro/epreuvespro/internal/pkg/constants"
	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
	"github.com/epreuvespro/epreuvespro/internal/pkg/forms"
	"github.com/epreuvespro/epreuvespro/internal/pkg/hcaptcha"
	"github.com/epreuvespro/epreuvespro/internal/pkg/metrics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/statistics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// AuthController handles login, registration, email verification and password reset
type AuthController struct {
	svc *Services
}

func NewAuthController(svc *Services) *AuthController {
	return &AuthController{svc: svc}
}

// startSession stores the user in a fresh session.
func startSession(c *fiber.Ctx, user *models.User, remember bool) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(usercontext.KeyUserID, user.ID)
	sess.Set(usercontext.KeyUsername, user.DisplayName())
	sess.Set(usercontext.KeyIsAdmin, user.IsAdmin())
	if remember {
		sess.SetExpiry(session.RememberExpiration)
	}
	return sess.Save()
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return viewmodel.Render(c, "auth/login", "Connexion", fiber.Map{
			"Next": c.Query("next"),
		})
	}

	var in forms.LoginForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	back := constants.LoginRoute
	if in.Next != "" {
		back += "?next=" + url.QueryEscape(in.Next)
	}
	fm := fiber.Map{"type": "error"}

	if errs := forms.Validate(&in); errs.Any() {
		fm["message"] = "Veuillez saisir votre email (ou téléphone) et votre mot de passe."
		return flash.WithError(c, fm).Redirect(back)
	}

	// notice: the message never tells which part was wrong
	user, err := ac.svc.Accounts.Authenticate(c.UserContext(), in.Identifier, in.Password, clientOf(c))
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		metrics.RecordLogin(false)
		fm["message"] = "Identifiants incorrects."
		return flash.WithError(c, fm).Redirect(back)
	case errors.Is(err, accounts.ErrAccountDisabled):
		metrics.RecordLogin(false)
		fm["message"] = "Ce compte est désactivé."
		return flash.WithError(c, fm).Redirect(back)
	case err != nil:
		return internalError(c, "login", err)
	}

	if err := startSession(c, user, in.Remember); err != nil {
		return internalError(c, "login session", err)
	}
	metrics.RecordLogin(true)

	fm = fiber.Map{
		"type":    "success",
		"message": "Bienvenue " + user.FirstName + " !",
	}
	return flash.WithSuccess(c, fm).Redirect(safeNext(in.Next))
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if userID := usercontext.GetUserID(c); userID != 0 {
		ac.svc.Accounts.Log(c.UserContext(), userID, models.ActivityLogout, clientOf(c), nil)
	}

	sess, err := session.GetSessionStore().Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			log.Warnf("[Auth] session destroy failed: %v", err)
		}
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Vous êtes déconnecté. À bientôt !",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}

func (ac *AuthController) renderRegister(c *fiber.Ctx, in forms.RegisterForm, errs forms.FieldErrors) error {
	if errs.Any() {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	in.Password, in.PasswordConfirm = "", ""
	return viewmodel.Render(c, "auth/register", "Inscription", fiber.Map{
		"Form":            in,
		"Errors":          errs,
		"HCaptchaSiteKey": hcaptcha.SiteKey(),
		"ClassLevels":     models.ClassLevelChoices,
	})
}

func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return ac.renderRegister(c, forms.RegisterForm{}, nil)
	}

	var in forms.RegisterForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}

	if hcaptcha.Enabled() {
		valid, err := hcaptcha.Verify(c.UserContext(), in.Captcha)
		if err != nil || !valid {
			errorMsg := "La vérification anti-robot a échoué. Veuillez réessayer."
			if err != nil {
				if env.IsDev() {
					errorMsg = "hCaptcha: " + err.Error()
				}
				log.Warnf("[Auth] hCaptcha validation error: %v", err)
			}
			return ac.renderRegister(c, in, forms.FieldErrors{"h-captcha-response": errorMsg})
		}
	}

	user, errs, err := ac.svc.Accounts.Register(c.UserContext(), in, clientOf(c))
	if err != nil {
		return internalError(c, "register", err)
	}
	if errs.Any() {
		return ac.renderRegister(c, in, errs)
	}

	metrics.Registrations.Inc()
	statistics.Invalidate(c.UserContext())

	if err := startSession(c, user, false); err != nil {
		return internalError(c, "register session", err)
	}

	fm := fiber.Map{
		"type":    "success",
		"message": "Compte créé ! Un email de confirmation vous a été envoyé. Vous disposez de 3 téléchargements gratuits.",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.DashboardRoute)
}

func (ac *AuthController) HandleVerifyEmail(c *fiber.Ctx) error {
	_, err := ac.svc.Accounts.VerifyEmail(c.UserContext(), c.Params("token"))
	if errors.Is(err, accounts.ErrTokenInvalid) {
		fm := fiber.Map{
			"type":    "error",
			"message": "Ce lien de confirmation est invalide ou a expiré.",
		}
		return flash.WithError(c, fm).Redirect(constants.LoginRoute)
	}
	if err != nil {
		return internalError(c, "verify email", err)
	}

	target := constants.LoginRoute
	if isLoggedIn(c) {
		target = constants.DashboardRoute
	}
	fm := fiber.Map{
		"type":    "success",
		"message": "Votre adresse email est confirmée.",
	}
	return flash.WithSuccess(c, fm).Redirect(target)
}

func (ac *AuthController) HandleResendVerification(c *fiber.Ctx) error {
	user, err := ac.svc.Repos.User.GetByID(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return handleLookupError(c, "resend verification", err)
	}
	if user.EmailVerified {
		fm := fiber.Map{"type": "info", "message": "Votre adresse email est déjà confirmée."}
		return flash.WithInfo(c, fm).Redirect(constants.ProfileRoute)
	}
	if err := ac.svc.Accounts.SendVerification(c.UserContext(), user); err != nil {
		log.Errorf("[Auth] resend verification for user %d: %v", user.ID, err)
		fm := fiber.Map{"type": "error", "message": "L'email n'a pas pu être envoyé. Réessayez plus tard."}
		return flash.WithError(c, fm).Redirect(constants.ProfileRoute)
	}
	fm := fiber.Map{"type": "success", "message": "Un nouvel email de confirmation vous a été envoyé."}
	return flash.WithSuccess(c, fm).Redirect(constants.ProfileRoute)
}

func (ac *AuthController) HandleForgotPassword(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return viewmodel.Render(c, "auth/forgot", "Mot de passe oublié", nil)
	}

	var in forms.ForgotPasswordForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	if errs := forms.Validate(&in); errs.Any() {
		c.Status(fiber.StatusUnprocessableEntity)
		return viewmodel.Render(c, "auth/forgot", "Mot de passe oublié", fiber.Map{"Errors": errs, "Form": in})
	}
	if err := ac.svc.Accounts.RequestPasswordReset(c.UserContext(), in.Email); err != nil {
		log.Errorf("[Auth] password reset request: %v", err)
	}

	// same answer whether or not the address exists
	fm := fiber.Map{
		"type":    "success",
		"message": "Si un compte existe pour cette adresse, un lien de réinitialisation vient d'être envoyé.",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}

func (ac *AuthController) HandleResetPassword(c *fiber.Ctx) error {
	token := c.Params("token")
	invalid := func() error {
		fm := fiber.Map{"type": "error", "message": "Ce lien de réinitialisation est invalide ou a expiré."}
		return flash.WithError(c, fm).Redirect("/password/forgot")
	}

	if c.Method() != fiber.MethodPost {
		if err := ac.svc.Accounts.CheckResetToken(c.UserContext(), token); err != nil {
			if errors.Is(err, accounts.ErrTokenInvalid) {
				return invalid()
			}
			return internalError(c, "check reset token", err)
		}
		return viewmodel.Render(c, "auth/reset", "Nouveau mot de passe", fiber.Map{"Token": token})
	}

	var in forms.ResetPasswordForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	errs, err := ac.svc.Accounts.ResetPassword(c.UserContext(), token, in)
	if errors.Is(err, accounts.ErrTokenInvalid) {
		return invalid()
	}
	if err != nil {
		return internalError(c, "reset password", err)
	}
	if errs.Any() {
		c.Status(fiber.StatusUnprocessableEntity)
		return viewmodel.Render(c, "auth/reset", "Nouveau mot de passe", fiber.Map{"Token": token, "Errors": errs})
	}

	fm := fiber.Map{"type": "success", "message": "Mot de passe modifié. Vous pouvez vous connecter."}
	return flash.WithSuccess(c, fm).Redirect(constants.LoginRoute)
}
