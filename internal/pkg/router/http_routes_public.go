package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/constants"
)

// registerPublicRoutes holds GET-only routes that never render a form.
func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get(constants.MediaRoute+"/*", h.media.HandleMedia)
	app.Get("/verify-email/:token", h.auth.HandleVerifyEmail)
}
