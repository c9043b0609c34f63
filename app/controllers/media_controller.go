package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
)

// publicFolders may be served without an entitlement check.
var publicFolders = []string{storage.FolderAvatars + "/", storage.FolderCovers + "/"}

// MediaController streams public pictures out of the blob store
type MediaController struct {
	svc *Services
}

func NewMediaController(svc *Services) *MediaController {
	return &MediaController{svc: svc}
}

func (mc *MediaController) HandleMedia(c *fiber.Ctx) error {
	key := c.Params("*")
	if !storage.ValidKey(key) || !isPublicKey(key) {
		return HandleNotFound(c)
	}
	rc, obj, err := mc.svc.Store.Open(c.UserContext(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return HandleNotFound(c)
	}
	if err != nil {
		return internalError(c, "media "+key, err)
	}
	c.Set(fiber.HeaderContentType, obj.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=604800")
	c.Vary(fiber.HeaderAccept)
	return c.SendStream(rc, streamSize(obj))
}

func isPublicKey(key string) bool {
	for _, prefix := range publicFolders {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// sendAttachment streams a blob as a download with the given file name.
func sendAttachment(c *fiber.Ctx, store storage.Store, key, filename string) error {
	rc, obj, err := store.Open(c.UserContext(), key)
	if err != nil {
		return handleBlobError(c, key, err)
	}
	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, obj.ContentType)
	return c.SendStream(rc, streamSize(obj))
}

// streamSize is the body size for SendStream; -1 streams until EOF.
func streamSize(obj *storage.Object) int {
	if obj.Size > 0 {
		return int(obj.Size)
	}
	return -1
}

func handleBlobError(c *fiber.Ctx, key string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		log.Warnf("[Media] blob %s is missing", key)
		return HandleNotFound(c)
	}
	return internalError(c, "open "+key, err)
}
