package handlers

import (
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/user-admin/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users       *services.UserService
	interactive *InteractiveResponder
	api         *ProgrammaticResponder
	metrics     *metrics.Recorder
}

func NewUserHandler(users *services.UserService, interactive *InteractiveResponder, api *ProgrammaticResponder, recorder *metrics.Recorder) *UserHandler {
	return &UserHandler{users: users, interactive: interactive, api: api, metrics: recorder}
}

func (h *UserHandler) Index(c *fiber.Ctx) error {
	take := c.QueryInt("take", 0)
	page := c.QueryInt("page", 1)
	out := h.users.List(c.UserContext(), middleware.GetActor(c), take, page)
	return h.respond(c, OpIndex, out)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	out := h.users.CreateForm(c.UserContext(), middleware.GetActor(c), h.oldInput(c))
	return h.respond(c, OpCreate, out)
}

func (h *UserHandler) Store(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	out := h.users.Store(c.UserContext(), middleware.GetActor(c), &req)
	return h.respond(c, OpStore, out)
}

func (h *UserHandler) Show(c *fiber.Ctx) error {
	out := h.users.Show(c.UserContext(), middleware.GetActor(c), c.Params("id"))
	return h.respond(c, OpShow, out)
}

func (h *UserHandler) Edit(c *fiber.Ctx) error {
	out := h.users.EditForm(c.UserContext(), middleware.GetActor(c), c.Params("id"), h.oldInput(c))
	return h.respond(c, OpEdit, out)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	out := h.users.Update(c.UserContext(), middleware.GetActor(c), c.Params("id"), &req)
	return h.respond(c, OpUpdate, out)
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.UserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	out := h.users.ChangePassword(c.UserContext(), middleware.GetActor(c), c.Params("id"), &req)
	return h.respond(c, OpChangePassword, out)
}

func (h *UserHandler) Destroy(c *fiber.Ctx) error {
	out := h.users.Destroy(c.UserContext(), middleware.GetActor(c), c.Params("id"))
	return h.respond(c, OpDestroy, out)
}

func (h *UserHandler) responder(c *fiber.Ctx) Responder {
	if IsProgrammatic(c) {
		return h.api
	}
	return h.interactive
}

func (h *UserHandler) respond(c *fiber.Ctx, op string, out services.Outcome) error {
	r := h.responder(c)
	if h.metrics != nil {
		h.metrics.Observe(op, out.Kind.String(), r.Mode())
	}
	return r.Respond(c, op, out)
}

// oldInput is only carried across a redirect, so JSON callers never have any.
func (h *UserHandler) oldInput(c *fiber.Ctx) *dto.UserRequest {
	if IsProgrammatic(c) {
		return nil
	}
	return h.interactive.OldInput(c)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: 1, Reason: "Invalid request body",
	})
}
