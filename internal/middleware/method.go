package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// MethodOverride lets HTML forms reach PUT and DELETE routes by posting a
// "_method" field or an X-HTTP-Method-Override header.
func MethodOverride() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		override := c.Get("X-HTTP-Method-Override")
		if override == "" {
			override = c.FormValue("_method")
		}
		switch strings.ToUpper(override) {
		case fiber.MethodPut:
			c.Method(fiber.MethodPut)
		case fiber.MethodDelete:
			c.Method(fiber.MethodDelete)
		}
		return c.Next()
	}
}
