package repository

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// UserRepository persists users and the role rows they own.
//
// Writes are individual statements; callers that need several of them to
// succeed together must arrange that themselves.
type UserRepository interface {
	// List returns one page of users with roles loaded, plus the total count.
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	// FindByID returns ErrNotFound when no user has the given id.
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// FindByLogin matches either the username or the email.
	FindByLogin(ctx context.Context, login string) (*models.User, error)

	// UsernameTaken and EmailTaken ignore the user identified by exclude,
	// which may be uuid.Nil.
	UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error)
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)

	Create(ctx context.Context, user *models.User) error
	// UpdateProfile writes username and email only. The password hash is
	// never touched.
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error

	AttachRoles(ctx context.Context, userID uuid.UUID, roles []string) error
	DeleteRoles(ctx context.Context, userID uuid.UUID) error
}
