package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	FieldUsername             = "username"
	FieldEmail                = "email"
	FieldPassword             = "password"
	FieldPasswordConfirmation = "password_confirmation"
	FieldRoles                = "roles"
)

// MaxRoleLength matches the user_roles.role column width.
const MaxRoleLength = 50

// FieldRule is the rule set of one submitted field. Tag uses validator
// syntax; Unique and SameAs are checked outside the validator. Each applies
// Tag to every element of a list field instead of to a single value.
type FieldRule struct {
	Field  string
	Tag    string
	Unique bool
	SameAs string
	Each   bool
}

type RuleSet []FieldRule

// Rule returns the rule for field, if present.
func (rs RuleSet) Rule(field string) (FieldRule, bool) {
	for _, r := range rs {
		if r.Field == field {
			return r, true
		}
	}
	return FieldRule{}, false
}

func StoreRules() RuleSet {
	return RuleSet{
		{Field: FieldUsername, Tag: "required,min=5", Unique: true},
		{Field: FieldEmail, Tag: "required,email", Unique: true},
		{Field: FieldPassword, Tag: "required,min=5"},
		{Field: FieldPasswordConfirmation, Tag: "required,min=5", SameAs: FieldPassword},
		rolesRule(),
	}
}

func rolesRule() FieldRule {
	return FieldRule{Field: FieldRoles, Tag: fmt.Sprintf("max=%d", MaxRoleLength), Each: true}
}

// UpdateRules waives uniqueness of username and email when the submitted
// value equals the stored one.
func UpdateRules(current *models.User, req *dto.UserRequest) RuleSet {
	return RuleSet{
		{Field: FieldUsername, Tag: "required,min=5", Unique: current.Username != req.Username},
		{Field: FieldEmail, Tag: "required,email", Unique: current.Email != req.Email},
		rolesRule(),
	}
}

func PasswordRules() RuleSet {
	return RuleSet{
		{Field: FieldPassword, Tag: "required,min=5"},
		{Field: FieldPasswordConfirmation, Tag: "required,min=5", SameAs: FieldPassword},
	}
}

type FieldError struct {
	Field   string
	Message string
}

type FieldErrors []FieldError

func (fe FieldErrors) Messages() []string {
	out := make([]string, 0, len(fe))
	for _, e := range fe {
		out = append(out, e.Message)
	}
	return out
}

func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// UniquenessChecker is the part of the repository the validator needs.
type UniquenessChecker interface {
	UsernameTaken(ctx context.Context, username string, exclude uuid.UUID) (bool, error)
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
}

type Validator struct {
	validate *validator.Validate
	unique   UniquenessChecker
}

func NewValidator(unique UniquenessChecker) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		unique:   unique,
	}
}

// Validate checks req against rules. exclude is the id of the record being
// edited, or uuid.Nil. A non-nil error means a lookup failed, not that the
// input is invalid.
func (v *Validator) Validate(ctx context.Context, rules RuleSet, req *dto.UserRequest, exclude uuid.UUID) (FieldErrors, error) {
	values := fieldValues(req)
	lists := map[string][]string{FieldRoles: normalizeRoles(req.Roles)}
	var errs FieldErrors

	for _, rule := range rules {
		if rule.Each {
			if msg := v.checkEach(rule.Field, lists[rule.Field], rule.Tag); msg != "" {
				errs = append(errs, FieldError{Field: rule.Field, Message: msg})
			}
			continue
		}

		value := values[rule.Field]

		if msg := v.checkTag(rule.Field, value, rule.Tag); msg != "" {
			errs = append(errs, FieldError{Field: rule.Field, Message: msg})
			continue
		}

		if rule.SameAs != "" {
			if err := v.validate.VarWithValue(value, values[rule.SameAs], "eqcsfield"); err != nil {
				errs = append(errs, FieldError{
					Field:   rule.Field,
					Message: fmt.Sprintf("The %s and %s must match.", label(rule.Field), label(rule.SameAs)),
				})
				continue
			}
		}

		if rule.Unique {
			taken, err := v.taken(ctx, rule.Field, value, exclude)
			if err != nil {
				return nil, err
			}
			if taken {
				errs = append(errs, FieldError{
					Field:   rule.Field,
					Message: fmt.Sprintf("The %s has already been taken.", label(rule.Field)),
				})
			}
		}
	}
	return errs, nil
}

// checkEach reports the first element of values that fails tag.
func (v *Validator) checkEach(field string, values []string, tag string) string {
	for _, value := range values {
		if msg := v.checkTag(field, value, tag); msg != "" {
			return msg
		}
	}
	return ""
}

func (v *Validator) checkTag(field, value, tag string) string {
	if tag == "" {
		return ""
	}
	err := v.validate.Var(value, tag)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("The %s is invalid.", label(field))
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label(field))
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", label(field), fe.Param())
	case "max":
		return fmt.Sprintf("Each of the %s may not be greater than %s characters.", label(field), fe.Param())
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", label(field))
	default:
		return fmt.Sprintf("The %s is invalid.", label(field))
	}
}

func (v *Validator) taken(ctx context.Context, field, value string, exclude uuid.UUID) (bool, error) {
	switch field {
	case FieldUsername:
		return v.unique.UsernameTaken(ctx, value, exclude)
	case FieldEmail:
		return v.unique.EmailTaken(ctx, value, exclude)
	default:
		return false, fmt.Errorf("no uniqueness check for field %q", field)
	}
}

func fieldValues(req *dto.UserRequest) map[string]string {
	return map[string]string{
		FieldUsername:             req.Username,
		FieldEmail:                req.Email,
		FieldPassword:             req.Password,
		FieldPasswordConfirmation: req.PasswordConfirmation,
	}
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}
