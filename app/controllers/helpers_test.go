package controllers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/cache"
	"github.com/epreuvespro/epreuvespro/internal/pkg/fixtures"
	"github.com/epreuvespro/epreuvespro/internal/pkg/mail"
	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

type testEnv struct {
	db    *gorm.DB
	svc   *Services
	store *storage.LocalStore
	tax   *fixtures.Taxonomy
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.Connect(mr.Addr(), "")
	session.NewMemoryStore()

	db := fixtures.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	return &testEnv{
		db:    db,
		svc:   NewServices(db, store, mail.LogMailer{}, "http://localhost:4000"),
		store: store,
		tax:   fixtures.SeedTaxonomy(t, db),
	}
}

// newApp returns an app with the real templates; the given handlers run
// before the routes, typically asUser.
func (e *testEnv) newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        viewmodel.NewEngine("../../views"),
		ErrorHandler: HandleError,
	})
	app.Use(func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	})
	for _, h := range handlers {
		app.Use(h)
	}
	return app
}

// asUser marks every request as coming from the given user.
func asUser(u *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.Set(c, usercontext.UserContext{
			UserID:     u.ID,
			Username:   u.DisplayName(),
			IsLoggedIn: true,
			IsAdmin:    u.IsAdmin(),
		})
		return c.Next()
	}
}

func (e *testEnv) putBlob(t *testing.T, key, content string) {
	t.Helper()
	require.NoError(t, e.store.Put(context.Background(), key, strings.NewReader(content), int64(len(content)), storage.ContentType(key)))
}

func formRequest(method, target string, values url.Values) *http.Request {
	req, _ := http.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	return req
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
