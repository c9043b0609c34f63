package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/app/controllers"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, svc *controllers.Services) {
	// HttpRouter first: it installs the UserContext middleware the API
	// routes rely on.
	setup(app, NewHttpRouter(svc), NewApiRouter(svc))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
