package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/config"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/database"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/lang"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/logging"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/repository"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/routes"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/services"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/session"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/views"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Database
	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// System log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(db, slog.LevelError)
	slog.SetDefault(slog.New(logging.NewMultiHandler(logging.Stdout(), dbLogHandler)))

	// Log cleanup
	cleanup, err := logging.StartCleanup(db, cfg.LogRetentionDays)
	if err != nil {
		slog.Error("log cleanup scheduling failed", "error", err)
		os.Exit(1)
	}

	// Sessions back flash messages and csrf tokens
	var storage fiber.Storage
	if cfg.SessionDriver == "redis" {
		redisStorage, err := session.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("redis connection failed", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisStorage.Close()
		storage = redisStorage
	}
	secure := cfg.AppEnv == "production"
	sessions := session.NewStore(storage, secure)

	// Permissions and messages
	gate, err := permissions.NewCasbinGate(cfg.PermissionsPolicyPath)
	if err != nil {
		slog.Error("failed to load permission policy", "path", cfg.PermissionsPolicyPath, "error", err)
		os.Exit(1)
	}
	catalog, err := lang.Load(cfg.LangPath)
	if err != nil {
		slog.Error("failed to load message catalog", "path", cfg.LangPath, "error", err)
		os.Exit(1)
	}

	// Services
	userRepo := repository.NewGormUserRepository(db)
	userService := services.NewUserService(userRepo, gate, catalog, cfg.PageSize)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTAccessExpiry)

	if cfg.AdminUsername != "" {
		created, err := authService.EnsureAdmin(context.Background(), &dto.UserRequest{
			Username:             cfg.AdminUsername,
			Email:                cfg.AdminEmail,
			Password:             cfg.AdminPassword,
			PasswordConfirmation: cfg.AdminPassword,
		})
		if err != nil {
			slog.Error("bootstrap account failed", "username", cfg.AdminUsername, "error", err)
			os.Exit(1)
		}
		if !created {
			slog.Info("bootstrap account exists", "username", cfg.AdminUsername)
		}
	}

	// Handlers
	recorder := metrics.NewRecorder()
	interactive := handlers.NewInteractiveResponder(sessions, cfg.CollectionPath, cfg.LoginPath, cfg.RoleChoices)
	programmatic := handlers.NewProgrammaticResponder(cfg.RoleChoices)
	userHandler := handlers.NewUserHandler(userService, interactive, programmatic, recorder)
	authHandler := handlers.NewAuthHandler(authService, interactive, catalog, cfg.CollectionPath, cfg.LoginPath, secure)
	healthHandler := handlers.NewHealthHandler(db)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
		Views:        views.NewEngine(),
	})

	// Must run before routing so tunnelled PUT/DELETE match their routes
	app.Use(middleware.MethodOverride())

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, sessions, userRepo, userHandler, authHandler, healthHandler, recorder)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "collection_path", cfg.CollectionPath)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	<-cleanup.Stop().Done()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(db); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.ErrorContext(c.UserContext(), "unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:  1,
		Reason: message,
	})
}
