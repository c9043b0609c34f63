package controllers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/constants"
	"github.com/epreuvespro/epreuvespro/internal/pkg/forms"
	"github.com/epreuvespro/epreuvespro/internal/pkg/imageprocessor"
	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
	"github.com/epreuvespro/epreuvespro/internal/pkg/upload"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// UserController serves the profile pages
type UserController struct {
	svc *Services
}

func NewUserController(svc *Services) *UserController {
	return &UserController{svc: svc}
}

func (uc *UserController) renderProfile(c *fiber.Ctx, form *forms.ProfileForm, errs forms.FieldErrors) error {
	profile, err := uc.svc.Accounts.Profile(c.UserContext(), usercontext.GetUserID(c))
	if err != nil {
		return handleLookupError(c, "profile", err)
	}
	if form == nil {
		u := profile.User
		form = &forms.ProfileForm{
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Phone:      u.PhoneNumber(),
			School:     u.School,
			ClassLevel: u.ClassLevel,
			Newsletter: u.NewsletterSubscribed,
		}
	}
	if errs.Any() {
		c.Status(fiber.StatusUnprocessableEntity)
	}
	return viewmodel.Render(c, "user/profile", "Mon profil", fiber.Map{
		"Profile":     profile,
		"Form":        form,
		"Errors":      errs,
		"AvatarURL":   avatarURL(c, profile.User),
		"ClassLevels": models.ClassLevelChoices,
	})
}

// avatarURL points at the media route, preferring WebP when accepted.
func avatarURL(c *fiber.Ctx, u *models.User) string {
	if u.AvatarKey == "" {
		return ""
	}
	return constants.MediaRoute + "/" + imageprocessor.PreferredKey(c, u.AvatarKey)
}

func (uc *UserController) HandleProfile(c *fiber.Ctx) error {
	return uc.renderProfile(c, nil, nil)
}

func (uc *UserController) HandleProfileUpdate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := uc.svc.Repos.User.GetByID(ctx, usercontext.GetUserID(c))
	if err != nil {
		return handleLookupError(c, "profile update", err)
	}

	var in forms.ProfileForm
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "formulaire invalide")
	}

	var avatarKey string
	if fh, err := c.FormFile("avatar"); err == nil && fh.Size > 0 {
		avatarKey, err = uc.storeAvatar(c, fh)
		if err != nil {
			return uc.renderProfile(c, &in, forms.FieldErrors{"avatar": err.Error()})
		}
	}

	errs, err := uc.svc.Accounts.UpdateProfile(ctx, user, in)
	if err != nil {
		return internalError(c, "profile update", err)
	}
	if errs.Any() {
		return uc.renderProfile(c, &in, errs)
	}

	if avatarKey != "" {
		old := user.AvatarKey
		if err := uc.svc.Accounts.SetAvatar(ctx, user, avatarKey); err != nil {
			return internalError(c, "avatar", err)
		}
		if old != "" {
			for _, key := range []string{old, imageprocessor.WebPKey(old)} {
				if err := uc.svc.Store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
					log.Warnf("[User] could not delete old avatar %s: %v", key, err)
				}
			}
		}
	}

	// the navbar reads the display name from the session
	if err := session.SetSessionValue(c, usercontext.KeyUsername, user.DisplayName()); err != nil {
		log.Warnf("[User] session name refresh failed: %v", err)
	}

	fm := fiber.Map{"type": "success", "message": "Profil mis à jour."}
	return flash.WithSuccess(c, fm).Redirect(constants.ProfileRoute)
}

func (uc *UserController) storeAvatar(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	if fh.Size > imageprocessor.MaxInputBytes {
		return "", errors.New("L'image ne doit pas dépasser 8 Mo.")
	}
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

	key, err := imageprocessor.Store(c.UserContext(), uc.svc.Store, storage.FolderAvatars, f, imageprocessor.AvatarSpec)
	if err != nil {
		log.Warnf("[User] avatar processing failed: %v", err)
		return "", errors.New("Cette image n'a pas pu être traitée.")
	}
	return key, nil
}
