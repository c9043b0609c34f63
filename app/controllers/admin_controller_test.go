package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epreuvespro/epreuvespro/app/models"
	"github.com/epreuvespro/epreuvespro/internal/pkg/fixtures"
)

func adminApp(e *testEnv, admin *models.User) *fiber.App {
	app := e.newApp(asUser(admin))
	ac := NewAdminController(e.svc)
	app.Get("/admin/users", ac.HandleUsers)
	app.Post("/admin/users/:id/plan", ac.HandleUserPlan)
	app.Post("/admin/users/:id/purchases", ac.HandleUserPurchase)
	return app
}

func addAdmin(t *testing.T, e *testEnv) *models.User {
	t.Helper()
	admin := fixtures.AddUser(t, e.db, "admin@epreuvespro.bj")
	require.NoError(t, e.db.Model(admin).Update("role", models.ROLE_ADMIN).Error)
	admin.Role = models.ROLE_ADMIN
	return admin
}

func TestAdminActivatesYearlyPlan(t *testing.T) {
	e := newTestEnv(t)
	app := adminApp(e, addAdmin(t, e))
	user := fixtures.AddUser(t, e.db, "eleve@example.bj")

	resp, err := app.Test(formRequest(http.MethodPost, fmt.Sprintf("/admin/users/%d/plan", user.ID), url.Values{"plan": {"yearly"}}), -1)
	require.NoError(t, err)
	assert.Equal(t, "/admin/users", resp.Header.Get(fiber.HeaderLocation))

	var sub models.Subscription
	require.NoError(t, e.db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, "yearly", sub.Plan)
	require.NotNil(t, sub.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), *sub.ExpiresAt, 48*time.Hour)
}

func TestAdminRejectsUnknownPlan(t *testing.T) {
	e := newTestEnv(t)
	app := adminApp(e, addAdmin(t, e))
	user := fixtures.AddUser(t, e.db, "eleve@example.bj")

	resp, err := app.Test(formRequest(http.MethodPost, fmt.Sprintf("/admin/users/%d/plan", user.ID), url.Values{"plan": {"lifetime"}}), -1)
	require.NoError(t, err)
	assert.Equal(t, "/admin/users", resp.Header.Get(fiber.HeaderLocation))

	var count int64
	require.NoError(t, e.db.Model(&models.Subscription{}).Where("user_id = ? AND plan <> ?", user.ID, "free").Count(&count).Error)
	assert.Zero(t, count)
}

func TestAdminRecordsPurchaseOnce(t *testing.T) {
	e := newTestEnv(t)
	app := adminApp(e, addAdmin(t, e))
	user := fixtures.AddUser(t, e.db, "eleve@example.bj")
	cat := fixtures.AddCategory(t, e.db, "Littérature", "litterature")
	book := fixtures.AddBook(t, e.db, cat, "L'Enfant noir")

	form := url.Values{"book": {book.Slug}, "amount": {"1500"}}
	for i := 0; i < 2; i++ {
		resp, err := app.Test(formRequest(http.MethodPost, fmt.Sprintf("/admin/users/%d/purchases", user.ID), form), -1)
		require.NoError(t, err)
		assert.Equal(t, "/admin/users", resp.Header.Get(fiber.HeaderLocation))
	}

	var count int64
	require.NoError(t, e.db.Model(&models.BookPurchase{}).Where("user_id = ? AND book_id = ?", user.ID, book.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdminUsersSearch(t *testing.T) {
	e := newTestEnv(t)
	app := adminApp(e, addAdmin(t, e))
	fixtures.AddUser(t, e.db, "koffi@example.bj")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/users?q=koffi", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "koffi@example.bj")
}
