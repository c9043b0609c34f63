package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/epreuvespro/epreuvespro/internal/pkg/cache"
	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
)

const (
	// DefaultExpiration applies to sessions without "remember me".
	DefaultExpiration = 24 * time.Hour
	// RememberExpiration applies when the user ticked "remember me".
	RememberExpiration = 30 * 24 * time.Hour
)

var sessionStore *session.Store

func config() session.Config {
	return session.Config{
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev() && env.GetEnv("APP_COOKIE_SECURE", "true") == "true",
		CookieSameSite: "Lax",
		Expiration:     DefaultExpiration,
		KeyLookup:      "cookie:session_id",
	}
}

// NewSessionStore creates the Redis backed session store (database 1, the cache uses 0).
func NewSessionStore() *session.Store {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	cfg := config()
	cfg.Storage = storage
	sessionStore = session.New(cfg)
	return sessionStore
}

// NewMemoryStore installs an in-process store, used by tests and the sqlite dev mode.
func NewMemoryStore() *session.Store {
	cfg := config()
	cfg.CookieSecure = false
	sessionStore = session.New(cfg)
	return sessionStore
}

func GetSessionStore() *session.Store {
	return sessionStore
}

// SetSessionValue stores a key-value pair in the user's individual session
func SetSessionValue(c *fiber.Ctx, key string, value string) error {
	if sessionStore == nil {
		return fmt.Errorf("session store not initialized")
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return fmt.Errorf("failed to get session: %v", err)
	}

	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	if sessionStore == nil {
		return ""
	}

	sess, err := sessionStore.Get(c)
	if err != nil {
		return ""
	}

	if strValue, ok := sess.Get(key).(string); ok {
		return strValue
	}
	return ""
}
