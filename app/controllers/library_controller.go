package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/catalog"
	"github.com/epreuvespro/epreuvespro/internal/pkg/constants"
	"github.com/epreuvespro/epreuvespro/internal/pkg/forms"
	"github.com/epreuvespro/epreuvespro/internal/pkg/imageprocessor"
	"github.com/epreuvespro/epreuvespro/internal/pkg/library"
	"github.com/epreuvespro/epreuvespro/internal/pkg/metrics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// LibraryController serves the e-book catalog, reader, downloads and reviews
type LibraryController struct {
	svc *Services
}

func NewLibraryController(svc *Services) *LibraryController {
	return &LibraryController{svc: svc}
}

func bookURL(b *models.Book) string {
	return constants.LibraryRoute + "/" + b.Slug
}

func coverURL(c *fiber.Ctx, b *models.Book) string {
	if b.CoverFile == "" {
		return ""
	}
	return constants.MediaRoute + "/" + imageprocessor.PreferredKey(c, b.CoverFile)
}

func (lc *LibraryController) HandleIndex(c *fiber.Ctx) error {
	var f catalog.BookFilter
	if err := c.QueryParser(&f); err != nil {
		f = catalog.BookFilter{}
	}
	ctx := c.UserContext()
	page, err := lc.svc.Catalog.Books(ctx, f)
	if err != nil {
		return internalError(c, "book list", err)
	}
	categories, err := lc.svc.Repos.Library.ListCategories(ctx)
	if err != nil {
		return internalError(c, "categories", err)
	}
	covers := make(map[uint]string, len(page.Items))
	for i := range page.Items {
		covers[page.Items[i].ID] = coverURL(c, &page.Items[i])
	}
	return viewmodel.Render(c, "library/index", "Bibliothèque", fiber.Map{
		"Page":       page,
		"Filter":     f,
		"Categories": categories,
		"Covers":     covers,
		"PageQuery":  pageQuery(c),
	})
}

func (lc *LibraryController) book(c *fiber.Ctx) (*models.Book, error) {
	return lc.svc.Repos.Library.GetBookBySlug(c.UserContext(), c.Params("slug"))
}

func (lc *LibraryController) HandleShow(c *fiber.Ctx) error {
	book, err := lc.book(c)
	if err != nil {
		return handleLookupError(c, "book detail", err)
	}
	detail, err := lc.svc.Library.Detail(c.UserContext(), usercontext.GetUserID(c), book)
	if err != nil {
		return internalError(c, "book detail", err)
	}
	return viewmodel.Render(c, "library/show", book.Title, fiber.Map{
		"Book":     book,
		"Detail":   detail,
		"CoverURL": coverURL(c, book),
	})
}

// denied sends the user back to the book page with an explanation.
func (lc *LibraryController) denied(c *fiber.Ctx, book *models.Book, err error) error {
	d, aerr := lc.svc.Library.Access(c.UserContext(), usercontext.GetUserID(c), book)
	reason := d.Reason
	if aerr != nil {
		log.Warnf("[Library] access reason for book %d: %v", book.ID, aerr)
	}
	metrics.RecordDenial("book", string(reason))
	msg := deniedMessage(reason)
	if book.Price > 0 {
		msg += " Vous pouvez aussi acheter ce livre (" + book.PriceLabel() + ")."
	}
	fm := fiber.Map{"type": "error", "message": msg}
	return flash.WithError(c, fm).Redirect(bookURL(book))
}

func (lc *LibraryController) HandleRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	book, err := lc.book(c)
	if err != nil {
		return handleLookupError(c, "reader", err)
	}
	userID := usercontext.GetUserID(c)
	progress, err := lc.svc.Library.StartReading(ctx, userID, book)
	if errors.Is(err, library.ErrAccessDenied) {
		return lc.denied(c, book, err)
	}
	if err != nil {
		return internalError(c, "start reading", err)
	}
	lc.svc.Accounts.LogItem(ctx, userID, models.ActivityReadBook, clientOf(c), nil, nil, &book.ID)

	return viewmodel.Render(c, "library/read", book.Title, fiber.Map{
		"Book":     book,
		"Progress": progress,
		"FileURL":  bookURL(book) + "/file",
	})
}

// HandleFile streams the book inline for the online reader.
func (lc *LibraryController) HandleFile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	book, err := lc.book(c)
	if err != nil {
		return handleLookupError(c, "reader file", err)
	}
	d, err := lc.svc.Library.Access(ctx, usercontext.GetUserID(c), book)
	if err != nil {
		return internalError(c, "reader access", err)
	}
	if !d.Allowed {
		return fiber.NewError(fiber.StatusForbidden, "accès refusé")
	}
	key, _ := book.DownloadFile()
	if key == "" {
		return HandleNotFound(c)
	}
	rc, obj, err := lc.svc.Store.Open(ctx, key)
	if err != nil {
		return handleBlobError(c, key, err)
	}
	c.Set(fiber.HeaderContentType, obj.ContentType)
	c.Set(fiber.HeaderContentDisposition, "inline")
	return c.SendStream(rc, streamSize(obj))
}

func (lc *LibraryController) HandleDownload(c *fiber.Ctx) error {
	ctx := c.UserContext()
	book, err := lc.book(c)
	if err != nil {
		return handleLookupError(c, "book download", err)
	}
	userID := usercontext.GetUserID(c)
	key, filename, err := lc.svc.Library.Download(ctx, userID, book)
	switch {
	case errors.Is(err, library.ErrAccessDenied):
		return lc.denied(c, book, err)
	case errors.Is(err, library.ErrNoReadingFile):
		return HandleNotFound(c)
	case err != nil:
		return internalError(c, "book download", err)
	}
	exists, err := lc.svc.Store.Exists(ctx, key)
	if err != nil {
		return internalError(c, "blob lookup", err)
	}
	if !exists {
		log.Warnf("[Library] file %s of book %d is missing", key, book.ID)
		return HandleNotFound(c)
	}

	lc.svc.Library.CountDownload(ctx, book)
	metrics.RecordDownload("book", "granted")
	lc.svc.Accounts.LogItem(ctx, userID, models.ActivityDownloadBook, clientOf(c), nil, nil, &book.ID)
	return sendAttachment(c, lc.svc.Store, key, filename)
}

func (lc *LibraryController) HandleProgress(c *fiber.Ctx) error {
	book, err := lc.book(c)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "error": "not_found"})
	}
	var in forms.ProgressForm
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "invalid_body"})
	}
	if errs := forms.Validate(&in); errs.Any() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "errors": errs})
	}

	progress, err := lc.svc.Library.SaveProgress(c.UserContext(), usercontext.GetUserID(c), book, in.Page, in.Percent)
	if errors.Is(err, library.ErrAccessDenied) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "error": "access_denied"})
	}
	if err != nil {
		log.Errorf("[Library] save progress: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "internal"})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"finished": progress.Finished,
		"percent":  progress.Percent,
		"page":     progress.CurrentPage,
	})
}

func (lc *LibraryController) HandleReview(c *fiber.Ctx) error {
	ctx := c.UserContext()
	book, err := lc.book(c)
	if err != nil {
		return handleLookupError(c, "review", err)
	}
	var in forms.ReviewForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	if errs := forms.Validate(&in); errs.Any() {
		fm := fiber.Map{"type": "error", "message": "Choisissez une note entre 1 et 5."}
		return flash.WithError(c, fm).Redirect(bookURL(book))
	}

	userID := usercontext.GetUserID(c)
	if _, err := lc.svc.Library.SubmitReview(ctx, userID, book, in.Score, in.Comment); err != nil {
		return internalError(c, "submit review", err)
	}
	lc.svc.Accounts.LogItem(ctx, userID, models.ActivityReview, clientOf(c), map[string]any{"score": in.Score}, nil, &book.ID)

	fm := fiber.Map{"type": "success", "message": "Merci pour votre avis !"}
	return flash.WithSuccess(c, fm).Redirect(bookURL(book))
}
