package services

import (
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/google/uuid"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
	OutcomeNotFound
	OutcomeUnauthorized
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Origin names the form a failed write came from, so an interactive client
// can be sent back to it.
type Origin string

const (
	OriginNone     Origin = ""
	OriginCreate   Origin = "create"
	OriginEdit     Origin = "edit"
	OriginPassword Origin = "password"
)

// Outcome is the result of a user operation before it is rendered.
type Outcome struct {
	Kind OutcomeKind
	// Message is the translated success, not-found or denial text.
	Message string
	// Errors lists field errors of a failed write, in field order.
	Errors FieldErrors
	// Input is the submitted form, secrets removed, for re-display.
	Input *dto.UserRequest
	// Origin and UserID locate the form that produced a failure.
	Origin Origin
	UserID uuid.UUID
	// Data is the read payload: *Page, *models.User or *FormState.
	Data any
}

func (o Outcome) Reasons() []string {
	return o.Errors.Messages()
}

// Page is one page of the user listing.
type Page struct {
	Users    []models.User
	Total    int64
	Page     int
	PerPage  int
	LastPage int
}

func (p *Page) HasPrev() bool { return p.Page > 1 }
func (p *Page) HasNext() bool { return p.Page < p.LastPage }
func (p *Page) Prev() int     { return p.Page - 1 }
func (p *Page) Next() int     { return p.Page + 1 }

// FormState feeds the create and edit forms.
type FormState struct {
	User          *models.User
	SelectedRoles []string
}

func (f *FormState) Selected(role string) bool {
	for _, r := range f.SelectedRoles {
		if r == role {
			return true
		}
	}
	return false
}

func success(message string, data any) Outcome {
	return Outcome{Kind: OutcomeSuccess, Message: message, Data: data}
}

func failure(origin Origin, userID uuid.UUID, errs FieldErrors, input *dto.UserRequest) Outcome {
	return Outcome{
		Kind:   OutcomeFailure,
		Errors: errs,
		Input:  input.WithoutSecrets(),
		Origin: origin,
		UserID: userID,
	}
}

func notFound(message string) Outcome {
	return Outcome{Kind: OutcomeNotFound, Message: message}
}

func unauthorized(message string) Outcome {
	return Outcome{Kind: OutcomeUnauthorized, Message: message}
}
