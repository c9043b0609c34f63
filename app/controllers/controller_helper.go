package controllers

import (
	"errors"
	"html/template"
	"net/netip"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/internal/pkg/accounts"
	"github.com/epreuvespro/epreuvespro/internal/pkg/constants"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// pageQuery is the current query string without the page parameter, for paginator links.
func pageQuery(c *fiber.Ctx) template.URL {
	v, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return ""
	}
	v.Del("page")
	return template.URL(v.Encode())
}

// clientOf returns the request identity stored with activity entries.
func clientOf(c *fiber.Ctx) accounts.Client {
	return accounts.Client{IP: clientIP(c), UserAgent: c.Get(fiber.HeaderUserAgent)}
}

// isXHR reports whether the request came from fetch/XMLHttpRequest and expects JSON.
func isXHR(c *fiber.Ctx) bool {
	return c.Get("X-Requested-With") == "XMLHttpRequest" || strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON)
}

// safeNext only allows local absolute paths as post-login redirect targets.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return constants.DashboardRoute
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return constants.DashboardRoute
	}
	return next
}

// HandleNotFound renders the 404 page.
func HandleNotFound(c *fiber.Ctx) error {
	c.Status(fiber.StatusNotFound)
	return viewmodel.Render(c, "errors/404", "Page introuvable", nil)
}

// handleLookupError maps a repository miss to the 404 page and anything else to a 500.
func handleLookupError(c *fiber.Ctx, what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return HandleNotFound(c)
	}
	return internalError(c, what, err)
}

func internalError(c *fiber.Ctx, what string, err error) error {
	log.Errorf("[Controller] %s: %v", what, err)
	return fiber.NewError(fiber.StatusInternalServerError, "Une erreur est survenue")
}

// TrustProxies makes c.IP() read the proxy header, but only for requests whose
// peer address is one of proxies (IPs or CIDR ranges). With no proxies the
// header is never consulted.
func TrustProxies(cfg *fiber.Config, proxies []string, header string) {
	if len(proxies) == 0 {
		return
	}
	if header == "" {
		header = fiber.HeaderXForwardedFor
	}
	cfg.ProxyHeader = header
	cfg.EnableTrustedProxyCheck = true
	cfg.TrustedProxies = proxies
	cfg.EnableIPValidation = true
}

// clientIP is the caller address as resolved by fiber, IPv4-mapped addresses unwrapped.
func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if addr, err := netip.ParseAddr(ip); err == nil {
		return addr.Unmap().String()
	}
	return ip
}

// HandleError is the app error handler: HTML pages for browsers, JSON for XHR and /api.
func HandleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Une erreur est survenue"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		log.Errorf("[Controller] unhandled error on %s: %v", c.Path(), err)
	}

	if isXHR(c) || strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
	if code == fiber.StatusNotFound {
		return HandleNotFound(c)
	}
	c.Status(code)
	if rerr := viewmodel.Render(c, "errors/error", "Erreur", fiber.Map{"Code": code, "Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}
