package apiv1

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pong defines the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Entitlement describes the caller's plan and remaining quota.
type Entitlement struct {
	Plan              string     `json:"plan"`
	Valid             bool       `json:"valid"`
	Unlimited         bool       `json:"unlimited"`
	Remaining         int        `json:"remaining"`
	DownloadsUsed     int        `json:"downloads_used"`
	DownloadsIncluded int        `json:"downloads_included"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// PaperSummary is one exam paper of a list.
type PaperSummary struct {
	ID            uint   `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Subject       string `json:"subject"`
	Class         string `json:"class"`
	SchoolYear    string `json:"school_year"`
	IsPremium     bool   `json:"is_premium"`
	HasCorrection bool   `json:"has_correction"`
	DownloadCount int64  `json:"download_count"`
}

// PaperList is a page of papers.
type PaperList struct {
	Items      []PaperSummary `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// PaperAccess is the caller's entitlement for one paper.
type PaperAccess struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason"`
	Remaining  int    `json:"remaining"`
	Unlimited  bool   `json:"unlimited"`
	Downloaded bool   `json:"downloaded"`
}

// ServerInterface lists the v1 operations.
type ServerInterface interface {
	GetPing(c *fiber.Ctx) error
	GetEntitlement(c *fiber.Ctx) error
	ListPapers(c *fiber.Ctx) error
	GetPaperAccess(c *fiber.Ctx, slug string) error
}

// RegisterHandlers mounts the operations on router. Authenticated operations
// get the given middlewares in front.
func RegisterHandlers(router fiber.Router, si ServerInterface, auth ...fiber.Handler) {
	router.Get("/ping", si.GetPing)
	router.Get("/papers", si.ListPapers)

	withAuth := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, auth...), h)
	}
	router.Get("/me/entitlement", withAuth(si.GetEntitlement)...)
	router.Get("/papers/:slug/access", withAuth(func(c *fiber.Ctx) error {
		return si.GetPaperAccess(c, c.Params("slug"))
	})...)
}
