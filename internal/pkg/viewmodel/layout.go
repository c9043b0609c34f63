package viewmodel

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/flash"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
)

type Layout struct {
	Page          string
	FromProtected bool
	IsError       bool
	Msg           fiber.Map
	Username      string
	IsAdmin       bool
	CSRF          string
	Year          int
}

// NewLayout collects what the shared layout template reads on every page.
func NewLayout(c *fiber.Ctx, page string) Layout {
	uc := usercontext.GetUserContext(c)
	csrf, _ := c.Locals("csrf").(string)
	return Layout{
		Page:          page,
		FromProtected: uc.IsLoggedIn,
		Msg:           flash.Get(c),
		Username:      uc.Username,
		IsAdmin:       uc.IsAdmin,
		CSRF:          csrf,
		Year:          time.Now().Year(),
	}
}

// Render wraps page data with the layout and renders it inside layouts/main.
func Render(c *fiber.Ctx, view, page string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Layout"] = NewLayout(c, page)
	return c.Render(view, data, "layouts/main")
}
