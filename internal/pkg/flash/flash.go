package flash

import (
	"github.com/gofiber/fiber/v2"
	sflash "github.com/sujit-baniya/flash"
)

// Flash message key in request locals
const FlashKey = "flash"

// Set stores a message shown by the current render, without a redirect.
func Set(c *fiber.Ctx, message fiber.Map) {
	c.Locals(FlashKey, message)
}

// Error is Set for an error message.
func Error(c *fiber.Ctx, message string) {
	Set(c, fiber.Map{"type": "error", "message": message})
}

// Get returns the in-request message, falling back to the message carried
// over a redirect by the flash cookie.
func Get(c *fiber.Ctx) fiber.Map {
	if m, ok := c.Locals(FlashKey).(fiber.Map); ok && m != nil {
		return m
	}
	m := sflash.Get(c)
	if len(m) == 0 {
		return nil
	}
	return m
}
