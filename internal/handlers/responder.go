package handlers

import (
	"html"
	"html/template"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/models"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/services"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/session"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/views"
	"github.com/gofiber/fiber/v2"
)

const (
	ModeHTML = "html"
	ModeJSON = "json"
)

// Operation names, used for views and metrics labels.
const (
	OpIndex          = "index"
	OpCreate         = "create"
	OpStore          = "store"
	OpShow           = "show"
	OpEdit           = "edit"
	OpUpdate         = "update"
	OpChangePassword = "change_password"
	OpDestroy        = "destroy"
)

const (
	flashLocalsKey = "flash"
	reasonSep      = "<br>"
)

var opViews = map[string]string{
	OpIndex:  "users/index",
	OpCreate: "users/create",
	OpShow:   "users/show",
	OpEdit:   "users/edit",
}

// Responder turns an operation outcome into an HTTP response.
type Responder interface {
	Mode() string
	Respond(c *fiber.Ctx, op string, out services.Outcome) error
}

// IsProgrammatic reports whether the caller wants JSON rather than pages
// and redirects.
func IsProgrammatic(c *fiber.Ctx) bool {
	return middleware.WantsJSON(c)
}

// ProgrammaticResponder writes JSON envelopes.
type ProgrammaticResponder struct {
	roleChoices []string
}

func NewProgrammaticResponder(roleChoices []string) *ProgrammaticResponder {
	return &ProgrammaticResponder{roleChoices: roleChoices}
}

func (r *ProgrammaticResponder) Mode() string { return ModeJSON }

func (r *ProgrammaticResponder) Respond(c *fiber.Ctx, op string, out services.Outcome) error {
	switch out.Kind {
	case services.OutcomeSuccess:
		if out.Message != "" {
			return c.JSON(dto.SuccessResponse{Success: out.Message})
		}
		if page, ok := out.Data.(*services.Page); ok {
			setPageHeaders(c, page)
		}
		return c.JSON(r.payload(out.Data))
	case services.OutcomeFailure:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.FailureResponse{
			Error: 1, Reason: out.Reasons(),
		})
	case services.OutcomeNotFound:
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: 1, Reason: out.Message,
		})
	default:
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: 1, Reason: out.Message,
		})
	}
}

func (r *ProgrammaticResponder) payload(data any) any {
	switch v := data.(type) {
	case *services.Page:
		return dto.NewUserResponses(v.Users)
	case *models.User:
		return dto.NewUserResponse(v)
	case *services.FormState:
		resp := dto.UserFormResponse{SelectedRoles: v.SelectedRoles, RoleChoices: r.roleChoices}
		if v.User != nil {
			u := dto.NewUserResponse(v.User)
			resp.User = &u
		}
		return resp
	default:
		return v
	}
}

// Paging headers of a JSON listing, whose body is the bare array of users.
const (
	HeaderTotalCount = "X-Total-Count"
	HeaderPage       = "X-Page"
	HeaderPerPage    = "X-Per-Page"
	HeaderLastPage   = "X-Last-Page"
)

func setPageHeaders(c *fiber.Ctx, p *services.Page) {
	c.Set(HeaderTotalCount, strconv.FormatInt(p.Total, 10))
	c.Set(HeaderPage, strconv.Itoa(p.Page))
	c.Set(HeaderPerPage, strconv.Itoa(p.PerPage))
	c.Set(HeaderLastPage, strconv.Itoa(p.LastPage))
}

// InteractiveResponder renders pages for reads and answers writes with a
// redirect carrying a flash message.
type InteractiveResponder struct {
	flash          *session.Store
	collectionPath string
	loginPath      string
	roleChoices    []string
}

func NewInteractiveResponder(flash *session.Store, collectionPath, loginPath string, roleChoices []string) *InteractiveResponder {
	return &InteractiveResponder{
		flash:          flash,
		collectionPath: collectionPath,
		loginPath:      loginPath,
		roleChoices:    roleChoices,
	}
}

func (r *InteractiveResponder) Mode() string { return ModeHTML }

func (r *InteractiveResponder) Respond(c *fiber.Ctx, op string, out services.Outcome) error {
	switch out.Kind {
	case services.OutcomeSuccess:
		if out.Message != "" {
			return r.redirect(c, r.collectionPath, &session.Flash{Success: out.Message})
		}
		return r.render(c, op, out.Data)
	case services.OutcomeFailure:
		if op == OpIndex {
			// nowhere to send the caller back to
			return fiber.NewError(fiber.StatusServiceUnavailable, strings.Join(out.Reasons(), " "))
		}
		return r.redirect(c, r.formLocation(out), &session.Flash{
			Error:  1,
			Reason: strings.Join(out.Reasons(), reasonSep),
			Old:    out.Input,
		})
	case services.OutcomeNotFound:
		return r.redirect(c, r.collectionPath, &session.Flash{Error: 1, Reason: out.Message})
	default:
		return r.redirect(c, r.loginPath, &session.Flash{Reason: out.Message})
	}
}

// Flash returns this request's pending flash. The session value is consumed
// on first use and cached for the rest of the request.
func (r *InteractiveResponder) Flash(c *fiber.Ctx) *session.Flash {
	if f, ok := c.Locals(flashLocalsKey).(*session.Flash); ok {
		return f
	}
	f, err := r.flash.Pull(c)
	if err != nil {
		slog.Error("failed to read flash", "path", c.Path(), "error", err)
	}
	c.Locals(flashLocalsKey, f)
	return f
}

// OldInput returns the form input flashed by a failed write, if any.
func (r *InteractiveResponder) OldInput(c *fiber.Ctx) *dto.UserRequest {
	return r.Flash(c).Old
}

// Redirect flashes f and redirects to location.
func (r *InteractiveResponder) Redirect(c *fiber.Ctx, location string, f *session.Flash) error {
	return r.redirect(c, location, f)
}

// Render renders view inside the layout with the common page data.
func (r *InteractiveResponder) Render(c *fiber.Ctx, view string, data fiber.Map) error {
	f := r.Flash(c)
	old := f.Old
	if old == nil {
		old = &dto.UserRequest{}
	}

	bind := fiber.Map{
		"Base":   r.collectionPath,
		"Login":  r.loginPath,
		"CSRF":   middleware.CSRFToken(c),
		"Flash":  f,
		"Reason": reasonHTML(f.Reason),
		"Old":    old,
		"Roles":  r.roleChoices,
	}
	for k, v := range data {
		bind[k] = v
	}
	return c.Render(view, bind, views.Layout)
}

func (r *InteractiveResponder) render(c *fiber.Ctx, op string, data any) error {
	view, ok := opViews[op]
	if !ok {
		return fiber.ErrNotFound
	}

	bind := fiber.Map{}
	switch v := data.(type) {
	case *services.Page:
		bind["Page"] = v
	case *models.User:
		bind["User"] = v
	case *services.FormState:
		bind["Form"] = v
	}
	return r.Render(c, view, bind)
}

func (r *InteractiveResponder) redirect(c *fiber.Ctx, location string, f *session.Flash) error {
	if err := r.flash.Put(c, f); err != nil {
		return err
	}
	return c.Redirect(location, fiber.StatusFound)
}

func (r *InteractiveResponder) formLocation(out services.Outcome) string {
	switch out.Origin {
	case services.OriginCreate:
		return views.Path(r.collectionPath, "create")
	case services.OriginEdit:
		return views.Path(r.collectionPath, out.UserID, "edit")
	case services.OriginPassword:
		return views.Path(r.collectionPath, out.UserID, "edit") + "#change-password"
	default:
		return r.collectionPath
	}
}

// reasonHTML escapes each flashed message and keeps the line breaks
// between them.
func reasonHTML(reason string) template.HTML {
	if reason == "" {
		return ""
	}
	parts := strings.Split(reason, reasonSep)
	for i, p := range parts {
		parts[i] = html.EscapeString(p)
	}
	return template.HTML(strings.Join(parts, reasonSep))
}
