package router

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
	"github.com/epreuvespro/epreuvespro/internal/pkg/middleware"
)

var errMissingCSRF = errors.New("missing csrf token")

// csrfFromHeaderOrForm reads the token from X-CSRF-Token (fetch calls of the
// reader and favourites) or from the _csrf form field.
func csrfFromHeaderOrForm(c *fiber.Ctx) (string, error) {
	if token := c.Get("X-CSRF-Token"); token != "" {
		return token, nil
	}
	if token := c.FormValue("_csrf"); token != "" {
		return token, nil
	}
	return "", errMissingCSRF
}

// postLimiter throttles form posts per client; GETs pass through.
func postLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() != fiber.MethodPost
		},
	})
}

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		Extractor:      csrfFromHeaderOrForm,
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", csrf.New(csrfConf))
	h.registerAppRoutes(group)
	h.registerAdminRoutes(group)
}

// registerAppRoutes mounts the site routes on r. Tests mount them without CSRF.
func (h HttpRouter) registerAppRoutes(r fiber.Router) {
	authLimit := postLimiter(10)
	jsonLimit := postLimiter(60)

	r.Get("/", h.home.HandleStart)

	// Auth
	r.Get("/login", middleware.RequireGuest, h.auth.HandleLogin)
	r.Post("/login", authLimit, middleware.RequireGuest, h.auth.HandleLogin)
	r.Get("/register", middleware.RequireGuest, h.auth.HandleRegister)
	r.Post("/register", authLimit, middleware.RequireGuest, h.auth.HandleRegister)
	r.Post("/logout", middleware.RequireAuth, h.auth.HandleLogout)
	r.Post("/user/resend-verification", authLimit, middleware.RequireAuth, h.auth.HandleResendVerification)
	r.Get("/password/forgot", h.auth.HandleForgotPassword)
	r.Post("/password/forgot", authLimit, h.auth.HandleForgotPassword)
	r.Get("/password/reset/:token", h.auth.HandleResetPassword)
	r.Post("/password/reset/:token", authLimit, h.auth.HandleResetPassword)

	// Profile + dashboard
	r.Get("/user/profile", middleware.RequireAuth, h.user.HandleProfile)
	r.Post("/user/profile", middleware.RequireAuth, h.user.HandleProfileUpdate)
	r.Get("/dashboard", middleware.RequireAuth, h.dashboard.HandleDashboard)
	r.Get("/dashboard/downloads", middleware.RequireAuth, h.dashboard.HandleDownloads)
	r.Get("/subscription", h.subscription.HandleSubscription)

	// Exam papers
	r.Get("/papers", h.papers.HandleIndex)
	r.Get("/papers/:slug", h.papers.HandleShow)
	r.Get("/papers/:slug/download", middleware.RequireAuth, h.papers.HandleDownload)
	r.Get("/papers/:slug/download-correction", middleware.RequireAuth, h.papers.HandleDownloadCorrection)
	r.Post("/papers/:slug/favorite", jsonLimit, middleware.RequireAuth, h.papers.HandleFavorite)

	// Library
	r.Get("/library", h.library.HandleIndex)
	r.Get("/library/:slug", h.library.HandleShow)
	r.Get("/library/:slug/read", middleware.RequireAuth, h.library.HandleRead)
	r.Get("/library/:slug/file", middleware.RequireAuth, h.library.HandleFile)
	r.Get("/library/:slug/download", middleware.RequireAuth, h.library.HandleDownload)
	r.Post("/library/:slug/progress", jsonLimit, middleware.RequireAPISessionAuth, h.library.HandleProgress)
	r.Post("/library/:slug/review", middleware.RequireAuth, h.library.HandleReview)
}
