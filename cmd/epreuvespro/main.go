package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/epreuvespro/epreuvespro/app/controllers"
	"github.com/epreuvespro/epreuvespro/internal/pkg/cache"
	"github.com/epreuvespro/epreuvespro/internal/pkg/database"
	"github.com/epreuvespro/epreuvespro/internal/pkg/env"
	"github.com/epreuvespro/epreuvespro/internal/pkg/mail"
	"github.com/epreuvespro/epreuvespro/internal/pkg/metrics"
	"github.com/epreuvespro/epreuvespro/internal/pkg/router"
	"github.com/epreuvespro/epreuvespro/internal/pkg/session"
	"github.com/epreuvespro/epreuvespro/internal/pkg/storage"
	"github.com/epreuvespro/epreuvespro/internal/pkg/viewmodel"
)

// MaxBodyBytes leaves room for the 50 MB document uploads of the admin forms.
const MaxBodyBytes = 64 << 20

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// sqlite is the single-process dev mode, sessions stay in memory there
	if strings.EqualFold(env.GetEnv("DB_DRIVER", "mysql"), "sqlite") {
		session.NewMemoryStore()
	}

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/epreuvespro to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	store, err := storage.NewFromEnv(context.Background())
	if err != nil {
		panic(err)
	}
	svc := controllers.NewServices(database.GetDB(), store, mail.New(), env.GetEnv("APP_BASE_URL", "http://localhost:4000"))

	// init fiber app
	cfg := fiber.Config{
		Views:        viewmodel.NewEngine(basePath + "views"),
		BodyLimit:    MaxBodyBytes,
		ErrorHandler: controllers.HandleError,
	}
	controllers.TrustProxies(&cfg, env.GetEnvList("TRUSTED_PROXIES"), env.GetEnv("PROXY_HEADER", ""))
	app := fiber.New(cfg)

	// ignore and cache favicon
	app.Use(favicon.New(favicon.Config{
		File:         basePath + "public/assets/icons/favicon.ico",
		URL:          "/favicon.ico",
		CacheControl: "public, max-age=604800",
	}))

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// prometheus scrape endpoint and the fiber monitor page
	metricsAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	})
	app.Get("/metrics", metricsAuth, metrics.Handler())
	app.Get("/monitor", metricsAuth, monitor.New(monitor.Config{Title: "EpreuvesPro"}))

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
		Title:    "EpreuvesPro API",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, svc)

	app.Use(controllers.HandleNotFound)

	return app
}
