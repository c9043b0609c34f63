package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/app/controllers"
	"github.com/epreuvespro/epreuvespro/internal/pkg/middleware"
	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
)

type HttpRouter struct {
	svc *controllers.Services

	home         *controllers.HomeController
	auth         *controllers.AuthController
	user         *controllers.UserController
	dashboard    *controllers.DashboardController
	subscription *controllers.SubscriptionController
	papers       *controllers.PaperController
	library      *controllers.LibraryController
	admin        *controllers.AdminController
	media        *controllers.MediaController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session unless a store was installed already (tests, sqlite mode)
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(svc *controllers.Services) *HttpRouter {
	return &HttpRouter{
		svc:          svc,
		home:         controllers.NewHomeController(svc),
		auth:         controllers.NewAuthController(svc),
		user:         controllers.NewUserController(svc),
		dashboard:    controllers.NewDashboardController(svc),
		subscription: controllers.NewSubscriptionController(svc),
		papers:       controllers.NewPaperController(svc),
		library:      controllers.NewLibraryController(svc),
		admin:        controllers.NewAdminController(svc),
		media:        controllers.NewMediaController(svc),
	}
}
