package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/config"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// Setup mounts every route. middleware.MethodOverride must already be the
// first handler of app so tunnelled PUT and DELETE requests reach the
// routes below.
func Setup(
	app *fiber.App,
	cfg *config.Config,
	sessions *session.Store,
	users middleware.RoleLookup,
	userHandler *handlers.UserHandler,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	recorder *metrics.Recorder,
) {
	secure := cfg.AppEnv == "production"

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	api.Get("/health", healthHandler.Check)

	app.Get("/metrics", recorder.Handler())

	// Login: stricter limit, 10 req/min per IP
	auth := app.Group(cfg.LoginPath, middleware.CSRF(sessions, secure, cfg.LoginPath), middleware.ExposeCSRFToken())
	auth.Get("/", authHandler.LoginForm)
	auth.Post("/", limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}), authHandler.Login)
	auth.Post("/logout", authHandler.Logout)

	user := app.Group(cfg.CollectionPath,
		limiter.New(limiter.Config{
			Max:               120,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		}),
		middleware.CSRF(sessions, secure, cfg.CollectionPath),
		middleware.ExposeCSRFToken(),
		middleware.JWTOptional(cfg),
		middleware.ResolveActor(users),
	)
	user.Get("/", userHandler.Index)
	user.Get("/create", userHandler.Create)
	user.Post("/", userHandler.Store)
	user.Get("/:id", userHandler.Show)
	user.Get("/:id/edit", userHandler.Edit)
	user.Put("/:id", userHandler.Update)
	user.Put("/:id/password", userHandler.ChangePassword)
	user.Delete("/:id", userHandler.Destroy)
}
