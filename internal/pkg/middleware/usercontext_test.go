package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
)

func TestUserContextFromSession(t *testing.T) {
	store := session.NewMemoryStore()
	app := fiber.New()
	app.Use(UserContextMiddleware)
	app.Get("/login-as", func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		sess.Set(usercontext.KeyUserID, uint(42))
		sess.Set(usercontext.KeyUsername, "Koffi Agbo")
		sess.Set(usercontext.KeyIsAdmin, false)
		return sess.Save()
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.GetUserContext(c))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"is_logged_in":false`)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/login-as", nil))
	require.NoError(t, err)
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `"user_id":42`)
	assert.Contains(t, string(body), `"is_logged_in":true`)
}
