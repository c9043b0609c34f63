package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epreuvespro/epreuvespro/app/controllers"
	"github.com/epreuvespro/epreuvespro/internal/pkg/cache"
	"github.com/epreuvespro/epreuvespro/internal/pkg/fixtures"
	"github.com/epreuvespro/epreuvespro/internal/pkg/mail"
	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

type routerEnv struct {
	app *fiber.App
	tax *fixtures.Taxonomy
	svc *controllers.Services
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.Connect(mr.Addr(), "")
	session.NewMemoryStore()

	db := fixtures.NewDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := controllers.NewServices(db, store, mail.LogMailer{}, "http://localhost:4000")

	app := fiber.New(fiber.Config{
		Views:        viewmodel.NewEngine("../../../views"),
		ErrorHandler: controllers.HandleError,
	})
	InstallRouter(app, svc)
	app.Use(controllers.HandleNotFound)

	return &routerEnv{app: app, tax: fixtures.SeedTaxonomy(t, db), svc: svc}
}

func loadAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)
	require.NoError(t, doc.Validate(t.Context()))
	return doc
}

// conforms checks a JSON body against a named component schema.
func conforms(t *testing.T, doc *openapi3.T, schema string, body []byte) {
	t.Helper()
	ref, ok := doc.Components.Schemas[schema]
	require.True(t, ok, schema)
	var v any
	require.NoError(t, json.Unmarshal(body, &v))
	assert.NoError(t, ref.Value.VisitJSON(v), string(body))
}

func TestAPIPingMatchesContract(t *testing.T) {
	e := newRouterEnv(t)
	doc := loadAPIDoc(t)

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	conforms(t, doc, "Pong", body)
}

func TestAPIPapersMatchesContract(t *testing.T) {
	e := newRouterEnv(t)
	doc := loadAPIDoc(t)
	db := e.svc.DB
	fixtures.AddPaper(t, db, e.tax, "BAC D Mathématiques 2023")
	fixtures.AddPaper(t, db, e.tax, "BEPC Français 2022", fixtures.Premium(false))

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/papers?q=bac", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	conforms(t, doc, "PaperList", body)

	var list struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "BAC D Mathématiques 2023", list.Items[0].Title)
}

func TestAPIRequiresSession(t *testing.T) {
	e := newRouterEnv(t)
	doc := loadAPIDoc(t)

	for _, target := range []string{"/api/v1/me/entitlement", "/api/v1/papers/anything/access"} {
		resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, target)
		body, _ := io.ReadAll(resp.Body)
		conforms(t, doc, "Error", body)
	}
}

func TestProtectedPageRedirectsToLogin(t *testing.T) {
	e := newRouterEnv(t)

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?next=%2Fdashboard", resp.Header.Get(fiber.HeaderLocation))
}

func TestPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	e := newRouterEnv(t)

	form := url.Values{"username": {"ada@example.bj"}, "password": {"secret123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestPostWithCSRFTokenPasses(t *testing.T) {
	e := newRouterEnv(t)
	fixtures.AddUser(t, e.svc.DB, "ada@example.bj")

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var token string
	for _, ck := range resp.Cookies() {
		if ck.Name == "csrf_" {
			token = ck.Value
		}
	}
	require.NotEmpty(t, token)

	form := url.Values{"username": {"ada@example.bj"}, "password": {"secret123"}, "_csrf": {token}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: token})
	resp, err = e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get(fiber.HeaderLocation))
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	e := newRouterEnv(t)

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
