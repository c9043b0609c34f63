package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a UserContext for every request
func UserContextMiddleware(c *fiber.Ctx) error {
	store := session.GetSessionStore()
	if store == nil {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	sess, err := store.Get(c)
	if err != nil {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	userID, ok := sess.Get(usercontext.KeyUserID).(uint)
	if !ok || userID == 0 {
		usercontext.Set(c, usercontext.UserContext{})
		return c.Next()
	}

	username, _ := sess.Get(usercontext.KeyUsername).(string)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)
	usercontext.Set(c, usercontext.UserContext{
		UserID:     userID,
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
	})
	return c.Next()
}
