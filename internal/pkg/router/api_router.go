package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/epreuvespro/epreuvespro/app/controllers"
	apiv1 "github.com/epreuvespro/epreuvespro/internal/api/v1"
	"github.com/epreuvespro/epreuvespro/internal/pkg/middleware"
)

type ApiRouter struct {
	svc *controllers.Services
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "EpreuvesPro API",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer(h.svc)
	apiv1.RegisterHandlers(v1, apiServer, middleware.RequireAPISessionAuth)
}

func NewApiRouter(svc *controllers.Services) *ApiRouter {
	return &ApiRouter{svc: svc}
}
