package middleware

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/repository"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "actor"

// RoleLookup loads the account behind a token subject.
type RoleLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ResolveActor turns the parsed JWT into a permissions.Actor:
// 1. no token or no usable sub claim -> anonymous
// 2. sub names a stored user -> that user's role tags
func ResolveActor(users RoleLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := permissions.Actor{}

		if sub := subject(c); sub != "" {
			if id, err := uuid.Parse(sub); err == nil {
				user, err := users.FindByID(c.UserContext(), id)
				switch {
				case err == nil:
					actor = permissions.Actor{ID: user.ID, Roles: user.RoleNames()}
				case errors.Is(err, repository.ErrNotFound):
					slog.Warn("token subject has no account", "sub", sub)
				default:
					slog.Error("failed to resolve actor", "sub", sub, "error", err)
				}
			}
		}

		c.Locals(actorKey, actor)
		return c.Next()
	}
}

func subject(c *fiber.Ctx) string {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// GetActor returns the actor resolved for this request, anonymous if none.
func GetActor(c *fiber.Ctx) permissions.Actor {
	if actor, ok := c.Locals(actorKey).(permissions.Actor); ok {
		return actor
	}
	return permissions.Actor{}
}
