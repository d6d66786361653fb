package middleware

import (
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

const (
	CSRFContextKey = "csrf"
	CSRFHeader     = "X-CSRF-Token"
	CSRFFormField  = "_token"
)

const csrfReason = "Invalid or missing CSRF token"

var errCSRFMissing = errors.New("missing csrf token")

// CSRF requires an anti-forgery token on every unsafe method. The token is
// read from the X-CSRF-Token header, then from the "_token" form field.
// A rejected JSON caller gets a 403; a rejected form post is sent back to
// the page it came from, or to fallback, with the reason flashed.
func CSRF(flash *session.Store, secure bool, fallback string) fiber.Handler {
	return csrf.New(csrf.Config{
		Session:        flash.Sessions(),
		SessionKey:     "fiber.csrf.token",
		CookieName:     "user_admin_csrf",
		CookieSameSite: "Lax",
		CookieSecure:   secure,
		Expiration:     2 * time.Hour,
		ContextKey:     CSRFContextKey,
		Extractor: func(c *fiber.Ctx) (string, error) {
			if token := c.Get(CSRFHeader); token != "" {
				return token, nil
			}
			if token := c.FormValue(CSRFFormField); token != "" {
				return token, nil
			}
			return "", errCSRFMissing
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.WarnContext(c.UserContext(), "csrf check failed", "method", c.Method(), "path", c.Path(), "error", err)
			if WantsJSON(c) {
				return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
					Error: 1, Reason: csrfReason,
				})
			}
			if err := flash.Put(c, &session.Flash{Error: 1, Reason: csrfReason}); err != nil {
				return err
			}
			return c.Redirect(sameSiteReferer(c, fallback), fiber.StatusFound)
		},
	})
}

// CSRFToken returns the token issued for this request, if any.
func CSRFToken(c *fiber.Ctx) string {
	token, _ := c.Locals(CSRFContextKey).(string)
	return token
}

// ExposeCSRFToken echoes the request's token in the X-CSRF-Token response
// header so JSON clients can send it back on their next write.
func ExposeCSRFToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token := CSRFToken(c); token != "" {
			c.Set(CSRFHeader, token)
		}
		return c.Next()
	}
}

// WantsJSON reports whether the caller expects JSON rather than pages and
// redirects: an XHR request, or an Accept header preferring JSON.
func WantsJSON(c *fiber.Ctx) bool {
	if c.XHR() {
		return true
	}
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// sameSiteReferer returns the path of the Referer when it points at this
// host, else fallback.
func sameSiteReferer(c *fiber.Ctx, fallback string) string {
	ref, err := url.Parse(c.Get(fiber.HeaderReferer))
	if err != nil || ref.Host == "" || ref.Host != c.Hostname() {
		return fallback
	}
	return ref.RequestURI()
}
