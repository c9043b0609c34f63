package controllers

import (
	"errors"
	"path"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/catalog"
	"github.com/epreuvespro/epreuvespro/internal/pkg/constants"
	"github.com/epreuvespro/epreuvespro/internal/pkg/entitlements"
	"github.com/epreuvespro/epreuvespro/internal/pkg/ledger"
	"github.com/epreuvespro/epreuvespro/internal/pkg/metrics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// SimilarPapers is the number of related papers on the detail page.
const SimilarPapers = 4

// PaperController serves the exam paper catalog and downloads
type PaperController struct {
	svc *Services
}

func NewPaperController(svc *Services) *PaperController {
	return &PaperController{svc: svc}
}

func (pc *PaperController) HandleIndex(c *fiber.Ctx) error {
	var f catalog.PaperFilter
	if err := c.QueryParser(&f); err != nil {
		f = catalog.PaperFilter{}
	}
	ctx := c.UserContext()

	page, err := pc.svc.Catalog.Papers(ctx, f)
	if err != nil {
		return internalError(c, "paper list", err)
	}
	tax, err := pc.svc.Catalog.Taxonomy(ctx, time.Now())
	if err != nil {
		return internalError(c, "taxonomy", err)
	}
	if userID := usercontext.GetUserID(c); userID != 0 && f.Query != "" && page.Page == 1 {
		pc.svc.Accounts.Log(ctx, userID, models.ActivitySearch, clientOf(c), map[string]any{
			"query":   f.Query,
			"results": page.Total,
		})
	}

	return viewmodel.Render(c, "papers/index", "Épreuves", fiber.Map{
		"Page":      page,
		"Filter":    f,
		"Taxonomy":  tax,
		"PageQuery": pageQuery(c),
	})
}

func (pc *PaperController) HandleShow(c *fiber.Ctx) error {
	ctx := c.UserContext()
	paper, err := pc.svc.Repos.Catalog.GetPaperBySlug(ctx, c.Params("slug"))
	if err != nil {
		return handleLookupError(c, "paper detail", err)
	}
	if err := pc.svc.Repos.Catalog.IncrementPaperViews(ctx, paper.ID); err != nil {
		log.Warnf("[Papers] could not count view of paper %d: %v", paper.ID, err)
	}
	similar, err := pc.svc.Repos.Catalog.SimilarPapers(ctx, paper, SimilarPapers)
	if err != nil {
		return internalError(c, "similar papers", err)
	}

	data := fiber.Map{
		"Paper":   paper,
		"Similar": similar,
	}
	if userID := usercontext.GetUserID(c); userID != 0 {
		decision, download, err := pc.svc.Ledger.Access(ctx, userID, paper)
		if err != nil {
			return internalError(c, "paper access", err)
		}
		favorited, err := pc.svc.Repos.Favorite.Exists(ctx, userID, paper.ID)
		if err != nil {
			return internalError(c, "favorite lookup", err)
		}
		data["Access"] = decision
		data["Downloaded"] = download != nil
		data["Favorited"] = favorited
		pc.svc.Accounts.LogItem(ctx, userID, models.ActivityViewPaper, clientOf(c), nil, &paper.ID, nil)
	}

	return viewmodel.Render(c, "papers/show", paper.Title, data)
}

func (pc *PaperController) HandleDownload(c *fiber.Ctx) error {
	return pc.download(c, ledger.PartSubject)
}

func (pc *PaperController) HandleDownloadCorrection(c *fiber.Ctx) error {
	return pc.download(c, ledger.PartCorrection)
}

func (pc *PaperController) download(c *fiber.Ctx, part ledger.Part) error {
	ctx := c.UserContext()
	userID := usercontext.GetUserID(c)
	paper, err := pc.svc.Repos.Catalog.GetPaperBySlug(ctx, c.Params("slug"))
	if err != nil {
		return handleLookupError(c, "paper download", err)
	}

	key, action := paper.SubjectFile, models.ActivityDownloadPaper
	if part == ledger.PartCorrection {
		key, action = paper.CorrectionFile, models.ActivityDownloadCorrection
	}
	if key == "" {
		return HandleNotFound(c)
	}
	// a missing blob must not cost a credit
	exists, err := pc.svc.Store.Exists(ctx, key)
	if err != nil {
		return internalError(c, "blob lookup", err)
	}
	if !exists {
		log.Warnf("[Papers] file %s of paper %d is missing", key, paper.ID)
		return HandleNotFound(c)
	}

	receipt, err := pc.svc.Ledger.Record(ctx, userID, paper, part, clientIP(c))
	if errors.Is(err, ledger.ErrAccessDenied) {
		reason, _ := ledger.DeniedReason(err)
		metrics.RecordDenial("paper", string(reason))
		fm := fiber.Map{"type": "error", "message": deniedMessage(reason)}
		return flash.WithError(c, fm).Redirect(constants.SubscriptionRoute)
	}
	if err != nil {
		return internalError(c, "record download", err)
	}

	metrics.RecordDownload("paper", string(receipt.Reason))
	pc.svc.Accounts.LogItem(ctx, userID, action, clientOf(c), map[string]any{
		"reason":     string(receipt.Reason),
		"first_time": receipt.FirstTime,
	}, &paper.ID, nil)

	return sendAttachment(c, pc.svc.Store, key, paper.DownloadFilename(part == ledger.PartCorrection, path.Ext(key)))
}

// deniedMessage explains a refusal on the page the user lands on.
func deniedMessage(reason entitlements.Reason) string {
	switch reason {
	case entitlements.ReasonQuotaExhausted:
		return "Vous avez utilisé vos 3 téléchargements gratuits. Choisissez un abonnement pour continuer."
	case entitlements.ReasonSubscriptionExpired:
		return "Votre abonnement a expiré. Renouvelez-le pour continuer."
	default:
		return "Un abonnement est nécessaire pour accéder à ce contenu."
	}
}

func (pc *PaperController) HandleFavorite(c *fiber.Ctx) error {
	ctx := c.UserContext()
	paper, err := pc.svc.Repos.Catalog.GetPaperBySlug(ctx, c.Params("slug"))
	if err != nil {
		if isXHR(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return handleLookupError(c, "favorite", err)
	}

	favorited, err := pc.svc.Repos.Favorite.Toggle(ctx, usercontext.GetUserID(c), paper.ID)
	if err != nil {
		return internalError(c, "favorite toggle", err)
	}

	if isXHR(c) {
		return c.JSON(fiber.Map{"success": true, "favorited": favorited})
	}
	msg := "Épreuve retirée de vos favoris."
	if favorited {
		msg = "Épreuve ajoutée à vos favoris."
	}
	fm := fiber.Map{"type": "success", "message": msg}
	return flash.WithSuccess(c, fm).Redirect(constants.PapersRoute + "/" + paper.Slug)
}
