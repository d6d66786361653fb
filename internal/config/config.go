package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBDriver   string `env:"DB_DRIVER" env-default:"postgres"`
	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" env-default:"user_admin"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"disable"`
	DBPath     string `env:"DB_PATH" env-default:"user_admin.db"`

	// Auth
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_EXPIRY" env-default:"2h"`

	// Bootstrap account, created at startup when the username is free
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Admin surface
	PageSize              int      `env:"PAGE_SIZE" env-default:"15"`
	CollectionPath        string   `env:"COLLECTION_PATH" env-default:"/admin/user"`
	LoginPath             string   `env:"LOGIN_PATH" env-default:"/login"`
	PermissionsPolicyPath string   `env:"PERMISSIONS_POLICY_PATH"`
	LangPath              string   `env:"LANG_PATH"`
	RoleChoices           []string `env:"ROLE_CHOICES" env-separator:"," env-default:"admin,editor,viewer"`

	// Sessions (flash messages, csrf)
	SessionDriver string `env:"SESSION_DRIVER" env-default:"memory"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Logging
	LogRetentionDays int `env:"LOG_RETENTION_DAYS" env-default:"30"`

	// Server
	Port        string `env:"PORT" env-default:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" env-default:"*"`
	AppEnv      string `env:"APP_ENV" env-default:"development"`
	SentryDSN   string `env:"SENTRY_DSN"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not loaded, continuing with environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg.CollectionPath = normalizePath(cfg.CollectionPath)
	cfg.LoginPath = normalizePath(cfg.LoginPath)
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DBPassword == "" {
			return errors.New("DB_PASSWORD environment variable is required")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.SessionDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_DRIVER %q", c.SessionDriver)
	}
	if c.PageSize <= 0 {
		return errors.New("PAGE_SIZE must be positive")
	}
	return nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
