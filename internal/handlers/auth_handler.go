package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/lang"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/services"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/session"
	"github.com/gofiber/fiber/v2"
)

// TokenCookie carries the access token of browser sessions.
const TokenCookie = "token"

type AuthHandler struct {
	authService    *services.AuthService
	interactive    *InteractiveResponder
	catalog        *lang.Catalog
	collectionPath string
	loginPath      string
	secureCookie   bool
}

func NewAuthHandler(authService *services.AuthService, interactive *InteractiveResponder, catalog *lang.Catalog, collectionPath, loginPath string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		interactive:    interactive,
		catalog:        catalog,
		collectionPath: collectionPath,
		loginPath:      loginPath,
		secureCookie:   secureCookie,
	}
}

func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	return h.interactive.Render(c, "auth/login", nil)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			slog.Error("login failed", "error", err)
		}
		reason := h.catalog.Get(lang.LoginFailed)
		if IsProgrammatic(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: 1, Reason: reason,
			})
		}
		return h.interactive.Redirect(c, h.loginPath, &session.Flash{Error: 1, Reason: reason})
	}

	if IsProgrammatic(c) {
		return c.JSON(resp)
	}
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    resp.AccessToken,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(h.collectionPath, fiber.StatusFound)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	message := h.catalog.Get(lang.LogoutSuccess)
	if IsProgrammatic(c) {
		return c.JSON(dto.SuccessResponse{Success: message})
	}
	return h.interactive.Redirect(c, h.loginPath, &session.Flash{Success: message})
}
