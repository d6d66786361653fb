package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/google/uuid"
)

// UserRequest is the submitted user form. It is bound from JSON bodies and
// from urlencoded HTML forms alike.
type UserRequest struct {
	Username             string   `json:"username" form:"username"`
	Email                string   `json:"email" form:"email"`
	Password             string   `json:"password" form:"password"`
	PasswordConfirmation string   `json:"password_confirmation" form:"password_confirmation"`
	Roles                []string `json:"roles" form:"roles"`
}

// WithoutSecrets returns a copy safe to keep in session storage.
func (r *UserRequest) WithoutSecrets() *UserRequest {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Password = ""
	cp.PasswordConfirmation = ""
	cp.Roles = append([]string(nil), r.Roles...)
	return &cp
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Roles:     u.RoleNames(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func NewUserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// SuccessResponse is the programmatic envelope of a successful write.
type SuccessResponse struct {
	Success string `json:"success"`
}

// FailureResponse carries every field error of a failed write.
type FailureResponse struct {
	Error  int      `json:"error"`
	Reason []string `json:"reason"`
}

// ErrorResponse carries a single reason (not found, permission denied).
type ErrorResponse struct {
	Error  int    `json:"error"`
	Reason string `json:"reason"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

// UserFormResponse feeds a client-side create or edit form.
type UserFormResponse struct {
	User          *UserResponse `json:"user,omitempty"`
	SelectedRoles []string      `json:"selected_roles"`
	RoleChoices   []string      `json:"role_choices"`
}
