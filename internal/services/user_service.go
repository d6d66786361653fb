package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/lang"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ResourceUser is the permission resource guarding every user operation.
const ResourceUser = "user"

const maxPageSize = 100

type UserService struct {
	repo      repository.UserRepository
	gate      permissions.Gate
	validator *Validator
	catalog   *lang.Catalog
	pageSize  int
	hashCost  int
}

type UserServiceOption func(*UserService)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) UserServiceOption {
	return func(s *UserService) { s.hashCost = cost }
}

func NewUserService(repo repository.UserRepository, gate permissions.Gate, catalog *lang.Catalog, pageSize int, opts ...UserServiceOption) *UserService {
	if pageSize <= 0 {
		pageSize = 15
	}
	s := &UserService{
		repo:      repo,
		gate:      gate,
		validator: NewValidator(repo),
		catalog:   catalog,
		pageSize:  pageSize,
		hashCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserService) denied(actor permissions.Actor, action string) (Outcome, bool) {
	if s.gate.Allowed(actor, ResourceUser, action) {
		return Outcome{}, false
	}
	slog.Warn("permission denied", "actor", actor.ID.String(), "resource", ResourceUser, "action", action)
	return unauthorized(s.catalog.Get(lang.PermissionDenied)), true
}

// find loads the user named by rawID. A malformed id is treated as absent.
func (s *UserService) find(ctx context.Context, rawID string) (*models.User, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) persistenceFailure(ctx context.Context, origin Origin, userID uuid.UUID, req *dto.UserRequest, action string, err error) Outcome {
	slog.ErrorContext(ctx, "user persistence failed", "action", action, "user_id", userID.String(), "error", err)
	errs := FieldErrors{{Message: s.catalog.Get(lang.PersistenceFailure)}}
	return failure(origin, userID, errs, req)
}

// List returns one page of users. take overrides the configured page size.
func (s *UserService) List(ctx context.Context, actor permissions.Actor, take, page int) Outcome {
	if out, ok := s.denied(actor, permissions.ActionRead); ok {
		return out
	}

	perPage := take
	if perPage <= 0 {
		perPage = s.pageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	if page < 1 {
		page = 1
	}

	users, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return s.persistenceFailure(ctx, OriginNone, uuid.Nil, nil, "list", err)
	}

	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	return success("", &Page{
		Users:    users,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: lastPage,
	})
}

// CreateForm re-selects previously submitted roles, if any.
func (s *UserService) CreateForm(ctx context.Context, actor permissions.Actor, old *dto.UserRequest) Outcome {
	if out, ok := s.denied(actor, permissions.ActionCreate); ok {
		return out
	}
	selected := []string{}
	if old != nil && len(old.Roles) > 0 {
		selected = old.Roles
	}
	return success("", &FormState{SelectedRoles: selected})
}

func (s *UserService) Store(ctx context.Context, actor permissions.Actor, req *dto.UserRequest) Outcome {
	if out, ok := s.denied(actor, permissions.ActionCreate); ok {
		return out
	}

	errs, err := s.validator.Validate(ctx, StoreRules(), req, uuid.Nil)
	if err != nil {
		return s.persistenceFailure(ctx, OriginCreate, uuid.Nil, req, "store", err)
	}
	if len(errs) > 0 {
		return failure(OriginCreate, uuid.Nil, errs, req)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return s.persistenceFailure(ctx, OriginCreate, uuid.Nil, req, "store", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return s.persistenceFailure(ctx, OriginCreate, uuid.Nil, req, "store", err)
	}

	roles := normalizeRoles(req.Roles)
	if err := s.repo.AttachRoles(ctx, user.ID, roles); err != nil {
		// a failed store leaves no account behind
		if derr := s.repo.Delete(ctx, user.ID); derr != nil {
			slog.ErrorContext(ctx, "failed to remove partially stored user", "action", "store", "user_id", user.ID.String(), "error", derr)
		}
		return s.persistenceFailure(ctx, OriginCreate, uuid.Nil, req, "store", err)
	}
	user.Roles = roleRows(user.ID, roles)

	slog.InfoContext(ctx, "user stored", "action", "store", "user_id", user.ID.String(), "actor", actor.ID.String())
	return success(s.catalog.Get(lang.StoreSuccess), user)
}

func (s *UserService) Show(ctx context.Context, actor permissions.Actor, rawID string) Outcome {
	if out, ok := s.denied(actor, permissions.ActionRead); ok {
		return out
	}
	user, err := s.find(ctx, rawID)
	if err != nil {
		return s.lookupFailure(ctx, err, lang.NotFound, "show")
	}
	return success("", user)
}

// EditForm selects previously submitted roles, falling back to the user's
// current roles.
func (s *UserService) EditForm(ctx context.Context, actor permissions.Actor, rawID string, old *dto.UserRequest) Outcome {
	if out, ok := s.denied(actor, permissions.ActionUpdate); ok {
		return out
	}
	user, err := s.find(ctx, rawID)
	if err != nil {
		return s.lookupFailure(ctx, err, lang.NotFound, "edit")
	}

	selected := user.RoleNames()
	if old != nil && len(old.Roles) > 0 {
		selected = old.Roles
	}
	return success("", &FormState{User: user, SelectedRoles: selected})
}

// Update writes username and email, then replaces the user's roles with the
// submitted list. The role replacement is not transactional: a crash between
// the delete and the insert leaves the user without roles.
func (s *UserService) Update(ctx context.Context, actor permissions.Actor, rawID string, req *dto.UserRequest) Outcome {
	if out, ok := s.denied(actor, permissions.ActionUpdate); ok {
		return out
	}
	user, err := s.find(ctx, rawID)
	if err != nil {
		return s.lookupFailure(ctx, err, lang.NotFound, "update")
	}

	errs, err := s.validator.Validate(ctx, UpdateRules(user, req), req, user.ID)
	if err != nil {
		return s.persistenceFailure(ctx, OriginEdit, user.ID, req, "update", err)
	}
	if len(errs) > 0 {
		return failure(OriginEdit, user.ID, errs, req)
	}

	user.Username = req.Username
	user.Email = req.Email
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return s.persistenceFailure(ctx, OriginEdit, user.ID, req, "update", err)
	}

	roles := normalizeRoles(req.Roles)
	if err := s.repo.DeleteRoles(ctx, user.ID); err != nil {
		return s.persistenceFailure(ctx, OriginEdit, user.ID, req, "update", err)
	}
	if err := s.repo.AttachRoles(ctx, user.ID, roles); err != nil {
		return s.persistenceFailure(ctx, OriginEdit, user.ID, req, "update", err)
	}
	user.Roles = roleRows(user.ID, roles)

	slog.InfoContext(ctx, "user updated", "action", "update", "user_id", user.ID.String(), "actor", actor.ID.String())
	return success(s.catalog.Get(lang.UpdateSuccess), user)
}

func (s *UserService) ChangePassword(ctx context.Context, actor permissions.Actor, rawID string, req *dto.UserRequest) Outcome {
	if out, ok := s.denied(actor, permissions.ActionUpdate); ok {
		return out
	}
	user, err := s.find(ctx, rawID)
	if err != nil {
		return s.lookupFailure(ctx, err, lang.NotFound, "change_password")
	}

	errs, err := s.validator.Validate(ctx, PasswordRules(), req, user.ID)
	if err != nil {
		return s.persistenceFailure(ctx, OriginPassword, user.ID, req, "change_password", err)
	}
	if len(errs) > 0 {
		return failure(OriginPassword, user.ID, errs, req)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return s.persistenceFailure(ctx, OriginPassword, user.ID, req, "change_password", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return s.persistenceFailure(ctx, OriginPassword, user.ID, req, "change_password", err)
	}

	slog.InfoContext(ctx, "user password changed", "action", "change_password", "user_id", user.ID.String(), "actor", actor.ID.String())
	return success(s.catalog.Get(lang.UpdatePasswordSuccess), user)
}

// Destroy deletes the user's roles, then the user.
func (s *UserService) Destroy(ctx context.Context, actor permissions.Actor, rawID string) Outcome {
	if out, ok := s.denied(actor, permissions.ActionDelete); ok {
		return out
	}
	user, err := s.find(ctx, rawID)
	if err != nil {
		return s.lookupFailure(ctx, err, lang.DestroyFail, "destroy")
	}

	if err := s.repo.DeleteRoles(ctx, user.ID); err != nil {
		return s.persistenceFailure(ctx, OriginNone, user.ID, nil, "destroy", err)
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return s.persistenceFailure(ctx, OriginNone, user.ID, nil, "destroy", err)
	}

	slog.InfoContext(ctx, "user destroyed", "action", "destroy", "user_id", user.ID.String(), "actor", actor.ID.String())
	return success(s.catalog.Get(lang.DestroySuccess), nil)
}

func (s *UserService) lookupFailure(ctx context.Context, err error, notFoundKey, action string) Outcome {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(s.catalog.Get(notFoundKey))
	}
	return s.persistenceFailure(ctx, OriginNone, uuid.Nil, nil, action, err)
}

// normalizeRoles trims tags, drops empty ones and collapses duplicates,
// keeping first-seen order.
func normalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func roleRows(userID uuid.UUID, roles []string) []models.UserRole {
	rows := make([]models.UserRole, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, models.UserRole{UserID: userID, Role: r})
	}
	return rows
}
