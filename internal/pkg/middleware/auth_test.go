package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
)

func appWith(uc usercontext.UserContext, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		usercontext.Set(c, uc)
		return c.Next()
	})
	app.Get("/*", guard, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

var (
	guest   = usercontext.UserContext{}
	student = usercontext.UserContext{UserID: 7, Username: "Ada", IsLoggedIn: true}
	admin   = usercontext.UserContext{UserID: 1, Username: "Admin", IsLoggedIn: true, IsAdmin: true}
)

func TestRequireAuth(t *testing.T) {
	resp, err := appWith(guest, RequireAuth).Test(httptest.NewRequest(http.MethodGet, "/papers/bac-2023/download?x=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fpapers%2Fbac-2023%2Fdownload%3Fx%3D1", resp.Header.Get(fiber.HeaderLocation))

	resp, err = appWith(student, RequireAuth).Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		uc       usercontext.UserContext
		status   int
		location string
	}{
		{name: "guest", uc: guest, status: fiber.StatusSeeOther, location: "/login"},
		{name: "student", uc: student, status: fiber.StatusSeeOther, location: "/"},
		{name: "admin", uc: admin, status: fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := appWith(tt.uc, RequireAdmin).Test(httptest.NewRequest(http.MethodGet, "/admin/users", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get(fiber.HeaderLocation))
		})
	}
}

func TestRequireAPISessionAuth(t *testing.T) {
	resp, err := appWith(guest, RequireAPISessionAuth).Test(httptest.NewRequest(http.MethodGet, "/api/v1/me/entitlement", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

func TestRequireGuest(t *testing.T) {
	resp, err := appWith(student, RequireGuest).Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", resp.Header.Get(fiber.HeaderLocation))

	resp, err = appWith(guest, RequireGuest).Test(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
