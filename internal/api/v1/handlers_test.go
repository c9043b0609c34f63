package apiv1

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/epreuvespro/epreuvespro/app/controllers"
	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/fixtures"
	"github.com/epreuvespro/epreuvespro/internal/pkg/mail"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
)

func setupAPI(t *testing.T, user *models.User, db *gorm.DB) (*fiber.App, *controllers.Services) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	svc := controllers.NewServices(db, store, mail.LogMailer{}, "http://localhost:4000")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		uc := usercontext.UserContext{}
		if user != nil {
			uc = usercontext.UserContext{UserID: user.ID, Username: user.DisplayName(), IsLoggedIn: true}
		}
		usercontext.Set(c, uc)
		return c.Next()
	})
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(svc))
	return app, svc
}

func getJSON(t *testing.T, app *fiber.App, target string, out any) []byte {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, target)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
	return body
}

func schemaOf(t *testing.T, name string) *openapi3.Schema {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)
	ref, ok := doc.Components.Schemas[name]
	require.True(t, ok, name)
	return ref.Value
}

func TestEntitlementFreeAndYearly(t *testing.T) {
	db := fixtures.NewDB(t)
	user := fixtures.AddUser(t, db, "ada@example.bj")
	app, svc := setupAPI(t, user, db)
	schema := schemaOf(t, "Entitlement")

	var ent Entitlement
	body := getJSON(t, app, "/api/v1/me/entitlement", &ent)
	assert.Equal(t, "free", ent.Plan)
	assert.Equal(t, 3, ent.Remaining)
	assert.False(t, ent.Unlimited)
	assert.Nil(t, ent.ExpiresAt)
	var raw any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NoError(t, schema.VisitJSON(raw))

	_, err := svc.Billing.ActivatePlan(context.Background(), user.ID, "yearly")
	require.NoError(t, err)

	body = getJSON(t, app, "/api/v1/me/entitlement", &ent)
	assert.Equal(t, "yearly", ent.Plan)
	assert.True(t, ent.Valid)
	assert.True(t, ent.Unlimited)
	require.NotNil(t, ent.ExpiresAt)
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.NoError(t, schema.VisitJSON(raw))
}

func TestPaperAccessDoesNotSpendCredit(t *testing.T) {
	db := fixtures.NewDB(t)
	tax := fixtures.SeedTaxonomy(t, db)
	user := fixtures.AddUser(t, db, "ada@example.bj")
	paper := fixtures.AddPaper(t, db, tax, "BAC A1 Philosophie 2019")
	app, _ := setupAPI(t, user, db)

	var access PaperAccess
	for i := 0; i < 4; i++ {
		body := getJSON(t, app, "/api/v1/papers/"+paper.Slug+"/access", &access)
		var raw any
		require.NoError(t, json.Unmarshal(body, &raw))
		assert.NoError(t, schemaOf(t, "PaperAccess").VisitJSON(raw))
	}
	assert.True(t, access.Allowed)
	assert.Equal(t, "free_credit", access.Reason)
	assert.Equal(t, 3, access.Remaining)
	assert.False(t, access.Downloaded)

	var sub models.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, 0, sub.DownloadsUsed)
}

func TestPaperAccessUnknownSlug(t *testing.T) {
	db := fixtures.NewDB(t)
	user := fixtures.AddUser(t, db, "ada@example.bj")
	app, _ := setupAPI(t, user, db)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/papers/nope/access", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestPing(t *testing.T) {
	db := fixtures.NewDB(t)
	app, _ := setupAPI(t, nil, db)

	var pong Pong
	getJSON(t, app, "/api/v1/ping", &pong)
	assert.Equal(t, "pong", pong.Ping)
}
