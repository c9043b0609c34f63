package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/middleware"
)

func (h HttpRouter) registerAdminRoutes(r fiber.Router) {
	adminGroup := r.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/users", h.admin.HandleUsers)
	adminGroup.Post("/users/:id/plan", h.admin.HandleUserPlan)
	adminGroup.Post("/users/:id/purchases", h.admin.HandleUserPurchase)

	// Catalog uploads
	adminGroup.Get("/papers/new", h.admin.HandlePaperNew)
	adminGroup.Post("/papers/new", h.admin.HandlePaperNew)
	adminGroup.Get("/books/new", h.admin.HandleBookNew)
	adminGroup.Post("/books/new", h.admin.HandleBookNew)
}
