package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/billing"
	"github.com/epreuvespro/epreuvespro/internal/pkg/catalog"
	"github.com/epreuvespro/epreuvespro/internal/pkg/statistics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// HomeController renders the landing page
type HomeController struct {
	svc *Services
}

func NewHomeController(svc *Services) *HomeController {
	return &HomeController{svc: svc}
}

func (hc *HomeController) HandleStart(c *fiber.Ctx) error {
	ctx := c.UserContext()
	papers, err := hc.svc.Catalog.Papers(ctx, catalog.PaperFilter{})
	if err != nil {
		return internalError(c, "home papers", err)
	}
	books, err := hc.svc.Catalog.Books(ctx, catalog.BookFilter{})
	if err != nil {
		return internalError(c, "home books", err)
	}
	return viewmodel.Render(c, "home/index", "Accueil", fiber.Map{
		"Papers": papers.Items,
		"Books":  books.Items,
		"Stats":  statistics.GetStatisticsData(ctx, hc.svc.DB),
		"Offers": billing.Offers,
	})
}
