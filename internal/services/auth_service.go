package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username, email or password")
	ErrBootstrapInvalid   = errors.New("bootstrap account is invalid")
)

// AdminRole is granted to the bootstrap account.
const AdminRole = "admin"

// AuthService issues the access tokens the actor middleware reads.
type AuthService struct {
	repo      repository.UserRepository
	validator *Validator
	secret    []byte
	expiry    time.Duration
	hashCost  int
}

func NewAuthService(repo repository.UserRepository, secret string, expiry time.Duration) *AuthService {
	if expiry <= 0 {
		expiry = 2 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		validator: NewValidator(repo),
		secret:    []byte(secret),
		expiry:    expiry,
		hashCost:  bcrypt.DefaultCost,
	}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if req.Login == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.FindByLogin(ctx, req.Login)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// EnsureAdmin creates the bootstrap account with the admin role unless its
// username is already taken. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, req *dto.UserRequest) (bool, error) {
	taken, err := s.repo.UsernameTaken(ctx, req.Username, uuid.Nil)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	errs, err := s.validator.Validate(ctx, StoreRules(), req, uuid.Nil)
	if err != nil {
		return false, err
	}
	if len(errs) > 0 {
		return false, fmt.Errorf("%w: %v", ErrBootstrapInvalid, errs.Messages())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: req.Username, Email: req.Email, Password: string(hash)}
	if err := s.repo.Create(ctx, user); err != nil {
		return false, err
	}
	if err := s.repo.AttachRoles(ctx, user.ID, []string{AdminRole}); err != nil {
		return false, err
	}

	slog.Info("bootstrap account created", "user_id", user.ID.String(), "username", user.Username)
	return true, nil
}

func (s *AuthService) issue(user *models.User) (*dto.AuthResponse, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &dto.AuthResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        dto.NewUserResponse(user),
	}, nil
}
