package apiv1

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/controllers"
	"github.com/epreuvespro/epreuvespro/internal/pkg/catalog"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
)

// APIServer implements the ServerInterface
type APIServer struct {
	svc *controllers.Services
}

// NewAPIServer creates a new API server instance
func NewAPIServer(svc *controllers.Services) *APIServer {
	return &APIServer{svc: svc}
}

func internal(c *fiber.Ctx, what string, err error) error {
	log.Errorf("[API] %s: %v", what, err)
	return c.Status(fiber.StatusInternalServerError).JSON(Error{Error: "internal_error"})
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetEntitlement returns the plan and quota of the logged-in user.
func (s *APIServer) GetEntitlement(c *fiber.Ctx) error {
	sub, err := s.svc.Billing.Current(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return internal(c, "entitlement", err)
	}
	cmp, err := s.svc.Billing.Compare(c.UserContext(), sub.UserID)
	if err != nil {
		return internal(c, "entitlement", err)
	}
	return c.JSON(Entitlement{
		Plan:              string(cmp.Current),
		Valid:             cmp.Valid,
		Unlimited:         cmp.Remaining == entitlements.Unlimited,
		Remaining:         cmp.Remaining,
		DownloadsUsed:     sub.DownloadsUsed,
		DownloadsIncluded: sub.DownloadsIncluded,
		ExpiresAt:         sub.ExpiresAt,
	})
}

// ListPapers exposes the paper catalog with the same filters as /papers.
func (s *APIServer) ListPapers(c *fiber.Ctx) error {
	var f catalog.PaperFilter
	if err := c.QueryParser(&f); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(Error{Error: "bad_request", Message: err.Error()})
	}
	page, err := s.svc.Catalog.Papers(c.UserContext(), f)
	if err != nil {
		return internal(c, "list papers", err)
	}
	out := PaperList{
		Items:      make([]PaperSummary, 0, len(page.Items)),
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
	}
	for _, p := range page.Items {
		out.Items = append(out.Items, PaperSummary{
			ID:            p.ID,
			Slug:          p.Slug,
			Title:         p.Title,
			Type:          p.Type,
			Subject:       p.Subject.Name,
			Class:         p.Class.Name,
			SchoolYear:    p.SchoolYear,
			IsPremium:     p.IsPremium,
			HasCorrection: p.HasCorrection(),
			DownloadCount: p.DownloadCount,
		})
	}
	return c.JSON(out)
}

// GetPaperAccess evaluates the entitlement for one paper without recording anything.
func (s *APIServer) GetPaperAccess(c *fiber.Ctx, slug string) error {
	paper, err := s.svc.Repos.Catalog.GetPaperBySlug(c.UserContext(), slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(Error{Error: "not_found"})
	}
	if err != nil {
		return internal(c, "paper access", err)
	}
	d, download, err := s.svc.Ledger.Access(c.UserContext(), usercontext.GetUserID(c), paper)
	if err != nil {
		return internal(c, "paper access", err)
	}
	return c.JSON(PaperAccess{
		Allowed:    d.Allowed,
		Reason:     string(d.Reason),
		Remaining:  d.Remaining,
		Unlimited:  d.IsUnlimited(),
		Downloaded: download != nil,
	})
}
