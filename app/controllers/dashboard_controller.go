package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// DashboardController renders the personal dashboard and download history
type DashboardController struct {
	svc *Services
}

func NewDashboardController(svc *Services) *DashboardController {
	return &DashboardController{svc: svc}
}

func (dc *DashboardController) HandleDashboard(c *fiber.Ctx) error {
	stats, err := dc.svc.Dashboard.Stats(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return internalError(c, "dashboard", err)
	}
	return viewmodel.Render(c, "dashboard/index", "Tableau de bord", fiber.Map{
		"Stats": stats,
	})
}

func (dc *DashboardController) HandleDownloads(c *fiber.Ctx) error {
	groups, err := dc.svc.Dashboard.History(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return internalError(c, "download history", err)
	}
	total := 0
	for _, g := range groups {
		total += len(g.Downloads)
	}
	return viewmodel.Render(c, "dashboard/downloads", "Mes téléchargements", fiber.Map{
		"Groups": groups,
		"Total":  total,
	})
}
