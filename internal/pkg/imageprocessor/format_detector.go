package imageprocessor

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PreferredKey picks the WebP variant when the browser accepts it.
func PreferredKey(c *fiber.Ctx, jpegKey string) string {
	if jpegKey == "" || !strings.HasSuffix(jpegKey, ".jpg") {
		return jpegKey
	}
	if strings.Contains(c.Get(fiber.HeaderAccept), "image/webp") {
		return WebPKey(jpegKey)
	}
	return jpegKey
}
