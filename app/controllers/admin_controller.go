package controllers

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/billing"
	"github.com/epreuvespro/epreuvespro/internal/pkg/catalog"
	"github.com/epreuvespro/epreuvespro/internal/pkg/forms"
	"github.com/epreuvespro/epreuvespro/internal/pkg/imageprocessor"
	"github.com/epreuvespro/epreuvespro/internal/pkg/metrics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/statistics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
	"github.com/epreuvespro/epreuvespro/internal/pkg/upload"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

const (
	adminUsersPerPage = 50
	// MaxDocumentBytes bounds uploaded papers and books.
	MaxDocumentBytes = 50 << 20
)

// AdminController handles the operator pages: users, plans, purchases and uploads
type AdminController struct {
	svc *Services
	now func() time.Time
}

func NewAdminController(svc *Services) *AdminController {
	return &AdminController{svc: svc, now: time.Now}
}

func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	q := strings.TrimSpace(c.Query("q"))
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	var (
		users []models.User
		err   error
	)
	if q != "" {
		users, err = ac.svc.Repos.User.Search(ctx, q)
	} else {
		users, err = ac.svc.Repos.User.List(ctx, (page-1)*adminUsersPerPage, adminUsersPerPage)
	}
	if err != nil {
		return internalError(c, "admin users", err)
	}
	total, err := ac.svc.Repos.User.Count(ctx)
	if err != nil {
		return internalError(c, "admin user count", err)
	}

	return viewmodel.Render(c, "admin/users", "Utilisateurs", fiber.Map{
		"Users":   users,
		"Total":   total,
		"Query":   q,
		"Page":    page,
		"HasNext": q == "" && int64(page*adminUsersPerPage) < total,
		"Offers":  billing.Offers,
	})
}

func (ac *AdminController) targetUser(c *fiber.Ctx) (*models.User, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.ErrBadRequest
	}
	return ac.svc.Repos.User.GetByID(c.UserContext(), uint(id))
}

func (ac *AdminController) HandleUserPlan(c *fiber.Ctx) error {
	user, err := ac.targetUser(c)
	if err != nil {
		return handleLookupError(c, "admin plan", err)
	}
	var in forms.PlanForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	if errs := forms.Validate(&in); errs.Any() {
		fm := fiber.Map{"type": "error", "message": "Formule inconnue."}
		return flash.WithError(c, fm).Redirect("/admin/users")
	}

	sub, err := ac.svc.Billing.ActivatePlan(c.UserContext(), user.ID, in.Plan)
	if errors.Is(err, billing.ErrUnknownPlan) {
		fm := fiber.Map{"type": "error", "message": "Formule inconnue."}
		return flash.WithError(c, fm).Redirect("/admin/users")
	}
	if err != nil {
		return internalError(c, "activate plan", err)
	}
	metrics.PlanActivations.WithLabelValues(sub.Plan).Inc()
	ac.svc.Accounts.Log(c.UserContext(), user.ID, models.ActivitySubscribe, clientOf(c), map[string]any{
		"plan":       sub.Plan,
		"expires_at": sub.ExpiresAt,
	})

	fm := fiber.Map{"type": "success", "message": user.Email + " : formule " + sub.PlanLabel() + " activée."}
	return flash.WithSuccess(c, fm).Redirect("/admin/users")
}

func (ac *AdminController) HandleUserPurchase(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := ac.targetUser(c)
	if err != nil {
		return handleLookupError(c, "admin purchase", err)
	}
	var in forms.PurchaseForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	if errs := forms.Validate(&in); errs.Any() {
		fm := fiber.Map{"type": "error", "message": "Livre et montant requis."}
		return flash.WithError(c, fm).Redirect("/admin/users")
	}
	book, err := ac.svc.Repos.Library.GetBookBySlug(ctx, strings.TrimSpace(in.BookSlug))
	if err != nil {
		fm := fiber.Map{"type": "error", "message": "Livre introuvable : " + in.BookSlug}
		return flash.WithError(c, fm).Redirect("/admin/users")
	}

	purchase, created, err := ac.svc.Library.RecordPurchase(ctx, user.ID, book, in.Amount)
	if err != nil {
		return internalError(c, "record purchase", err)
	}
	if !created {
		fm := fiber.Map{"type": "info", "message": "Cet utilisateur possède déjà « " + book.Title + " »."}
		return flash.WithInfo(c, fm).Redirect("/admin/users")
	}
	ac.svc.Accounts.LogItem(ctx, user.ID, models.ActivityPurchase, clientOf(c), map[string]any{
		"amount":         purchase.AmountPaid,
		"transaction_id": purchase.TransactionID,
	}, nil, &book.ID)

	fm := fiber.Map{"type": "success", "message": "Achat enregistré pour " + user.Email + "."}
	return flash.WithSuccess(c, fm).Redirect("/admin/users")
}

// storeDocument validates an uploaded PDF/EPUB and writes it under folder.
func (ac *AdminController) storeDocument(ctx context.Context, fh *multipart.FileHeader, folder string) (string, int64, error) {
	if fh.Size > MaxDocumentBytes {
		return "", 0, errors.New("Le fichier ne doit pas dépasser 50 Mo.")
	}
	head, err := upload.Head(fh)
	if err != nil {
		return "", 0, errors.New("Fichier illisible.")
	}
	mime, err := upload.ValidateDocumentBySniff(fh.Filename, head)
	if err != nil {
		return "", 0, err
	}
	f, err := fh.Open()
	if err != nil {
		return "", 0, errors.New("Fichier illisible.")
	}
	defer f.Close()

	key := storage.NewKey(folder, filepath.Ext(fh.Filename), ac.now())
	if err := ac.svc.Store.Put(ctx, key, f, fh.Size, mime); err != nil {
		log.Errorf("[Admin] storing %s failed: %v", key, err)
		return "", 0, errors.New("Le fichier n'a pas pu être enregistré.")
	}
	return key, fh.Size, nil
}

// optionalFile returns the upload for field, nil when nothing was sent.
func optionalFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh.Size == 0 {
		return nil
	}
	return fh
}

func (ac *AdminController) renderPaperForm(c *fiber.Ctx, in forms.PaperForm, errs forms.FieldErrors) error {
	tax, err := ac.svc.Catalog.Taxonomy(c.UserContext(), ac.now())
	if err != nil {
		return internalError(c, "taxonomy", err)
	}
	levels, err := ac.svc.Repos.Catalog.ListLevels(c.UserContext())
	if err != nil {
		return internalError(c, "levels", err)
	}
	if in.SchoolYear == "" {
		in.SchoolYear = catalog.CurrentSchoolYear(ac.now())
	}
	if errs.Any() {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return viewmodel.Render(c, "admin/paper_new", "Nouvelle épreuve", fiber.Map{
		"Form":     in,
		"Errors":   errs,
		"Taxonomy": tax,
		"Levels":   levels,
	})
}

func (ac *AdminController) HandlePaperNew(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return ac.renderPaperForm(c, forms.PaperForm{IsPremium: true, Session: models.SessionNormal}, nil)
	}
	ctx := c.UserContext()

	var in forms.PaperForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	errs := forms.Validate(&in)
	if errs == nil {
		errs = forms.FieldErrors{}
	}
	if in.Type != "" && !models.IsValidPaperType(in.Type) {
		errs.Add("type", "Type d'épreuve inconnu.")
	}
	subjectFile := optionalFile(c, "subject_file")
	if subjectFile == nil {
		errs.Add("subject_file", "Le fichier du sujet est obligatoire.")
	}
	if errs.Any() {
		return ac.renderPaperForm(c, in, errs)
	}

	paper := &models.ExamPaper{
		Title:        strings.TrimSpace(in.Title),
		LevelID:      in.LevelID,
		ClassID:      in.ClassID,
		SubjectID:    in.SubjectID,
		PeriodID:     in.PeriodID,
		SchoolYear:   in.SchoolYear,
		Type:         in.Type,
		Session:      in.Session,
		Duration:     strings.TrimSpace(in.Duration),
		Scale:        20,
		Description:  in.Description,
		Instructions: in.Instructions,
		IsPremium:    in.IsPremium,
		IsActive:     true,
	}
	if paper.Session == "" {
		paper.Session = models.SessionNormal
	}
	if in.SeriesID > 0 {
		id := in.SeriesID
		paper.SeriesID = &id
	}
	if in.Coefficient > 0 {
		coef := in.Coefficient
		paper.Coefficient = &coef
	}
	if err := ac.resolveNames(ctx, paper); err != nil {
		errs.Add("subject_id", err.Error())
		return ac.renderPaperForm(c, in, errs)
	}

	key, size, err := ac.storeDocument(ctx, subjectFile, storage.FolderSubjects)
	if err != nil {
		errs.Add("subject_file", err.Error())
		return ac.renderPaperForm(c, in, errs)
	}
	paper.SubjectFile = key
	paper.FileSizeKB = size / 1024

	if fh := optionalFile(c, "correction_file"); fh != nil {
		if paper.CorrectionFile, _, err = ac.storeDocument(ctx, fh, storage.FolderCorrections); err != nil {
			errs.Add("correction_file", err.Error())
			return ac.renderPaperForm(c, in, errs)
		}
	}
	if fh := optionalFile(c, "report_file"); fh != nil {
		if paper.ReportFile, _, err = ac.storeDocument(ctx, fh, storage.FolderReports); err != nil {
			errs.Add("report_file", err.Error())
			return ac.renderPaperForm(c, in, errs)
		}
	}

	paper.Slug, err = models.UniqueSlug(paper.SlugBase(), 80, 75, func(s string) (bool, error) {
		return ac.svc.Repos.Catalog.PaperSlugExists(ctx, s)
	})
	if err != nil {
		return internalError(c, "paper slug", err)
	}
	if err := ac.svc.Repos.Catalog.CreatePaper(ctx, paper); err != nil {
		return internalError(c, "create paper", err)
	}
	statistics.Invalidate(ctx)
	log.Infof("[Admin] paper %d (%s) created", paper.ID, paper.Slug)

	fm := fiber.Map{"type": "success", "message": "Épreuve publiée."}
	return flash.WithSuccess(c, fm).Redirect("/papers/" + paper.Slug)
}

// resolveNames loads the class and subject names the slug is built from.
func (ac *AdminController) resolveNames(ctx context.Context, paper *models.ExamPaper) error {
	classes, err := ac.svc.Repos.Catalog.ListClasses(ctx)
	if err != nil {
		return err
	}
	for _, cl := range classes {
		if cl.ID == paper.ClassID {
			paper.Class = cl
		}
	}
	subjects, err := ac.svc.Repos.Catalog.ListSubjects(ctx)
	if err != nil {
		return err
	}
	for _, s := range subjects {
		if s.ID == paper.SubjectID {
			paper.Subject = s
		}
	}
	if paper.Class.ID == 0 || paper.Subject.ID == 0 {
		return errors.New("Classe ou matière inconnue.")
	}
	return nil
}

func (ac *AdminController) renderBookForm(c *fiber.Ctx, in forms.BookForm, errs forms.FieldErrors) error {
	categories, err := ac.svc.Repos.Library.ListCategories(c.UserContext())
	if err != nil {
		return internalError(c, "categories", err)
	}
	if errs.Any() {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return viewmodel.Render(c, "admin/book_new", "Nouveau livre", fiber.Map{
		"Form":       in,
		"Errors":     errs,
		"Categories": categories,
	})
}

func (ac *AdminController) HandleBookNew(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return ac.renderBookForm(c, forms.BookForm{IsPremium: true, Language: "Français"}, nil)
	}
	ctx := c.UserContext()

	var in forms.BookForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}
	errs := forms.Validate(&in)
	if errs == nil {
		errs = forms.FieldErrors{}
	}
	pdf, epub := optionalFile(c, "pdf_file"), optionalFile(c, "epub_file")
	if pdf == nil && epub == nil {
		errs.Add("pdf_file", "Ajoutez au moins un fichier PDF ou EPUB.")
	}
	if errs.Any() {
		return ac.renderBookForm(c, in, errs)
	}

	book := &models.Book{
		Title:       strings.TrimSpace(in.Title),
		Subtitle:    strings.TrimSpace(in.Subtitle),
		Author:      strings.TrimSpace(in.Author),
		Publisher:   strings.TrimSpace(in.Publisher),
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Excerpt:     in.Excerpt,
		ISBN:        strings.TrimSpace(in.ISBN),
		Language:    strings.TrimSpace(in.Language),
		Price:       in.Price,
		IsPremium:   in.IsPremium,
		IsActive:    true,
	}
	if book.Language == "" {
		book.Language = "Français"
	}
	if in.PageCount > 0 {
		n := in.PageCount
		book.PageCount = &n
	}
	if in.PublicationYear > 0 {
		y := in.PublicationYear
		book.PublicationYear = &y
	}

	var err error
	if pdf != nil {
		if book.PDFFile, _, err = ac.storeDocument(ctx, pdf, storage.FolderBooksPDF); err != nil {
			errs.Add("pdf_file", err.Error())
			return ac.renderBookForm(c, in, errs)
		}
	}
	if epub != nil {
		if book.EPUBFile, _, err = ac.storeDocument(ctx, epub, storage.FolderBooksEPUB); err != nil {
			errs.Add("epub_file", err.Error())
			return ac.renderBookForm(c, in, errs)
		}
	}
	switch {
	case book.PDFFile != "" && book.EPUBFile != "":
		book.Format = models.BookFormatBoth
	case book.EPUBFile != "":
		book.Format = models.BookFormatEPUB
	default:
		book.Format = models.BookFormatPDF
	}

	if fh := optionalFile(c, "cover"); fh != nil {
		if book.CoverFile, err = ac.storeCover(ctx, fh); err != nil {
			errs.Add("cover", err.Error())
			return ac.renderBookForm(c, in, errs)
		}
	}

	book.Slug, err = models.UniqueSlug(book.Title, 50, 50, func(s string) (bool, error) {
		return ac.svc.Repos.Library.BookSlugExists(ctx, s)
	})
	if err != nil {
		return internalError(c, "book slug", err)
	}
	if err := ac.svc.Repos.Library.CreateBook(ctx, book); err != nil {
		return internalError(c, "create book", err)
	}
	statistics.Invalidate(ctx)
	log.Infof("[Admin] book %d (%s) created", book.ID, book.Slug)

	fm := fiber.Map{"type": "success", "message": "Livre ajouté à la bibliothèque."}
	return flash.WithSuccess(c, fm).Redirect("/library/" + book.Slug)
}

func (ac *AdminController) storeCover(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	head, err := upload.Head(fh)
	if err != nil {
		return "", errors.New("Fichier illisible.")
	}
	if _, err := upload.ValidateImageBySniff(fh.Filename, head); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", errors.New("Fichier illisible.")
	}
	defer f.Close()
	key, err := imageprocessor.Store(ctx, ac.svc.Store, storage.FolderCovers, f, imageprocessor.CoverSpec)
	if err != nil {
		log.Warnf("[Admin] cover processing failed: %v", err)
		return "", errors.New("Cette image n'a pas pu être traitée.")
	}
	return key, nil
}
