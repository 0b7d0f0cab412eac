package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/services/audit"
	usersvc "domus/internal/services/user"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler is the admin-facing user administration surface; self-service
// lives on AuthHandler.
type UserHandler struct {
	users usersvc.Service
	audit audit.Service
}

func NewUserHandler(users usersvc.Service, auditSvc audit.Service) *UserHandler {
	return &UserHandler{users: users, audit: auditSvc}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	opts := pagination.ParseFromRequest(c)
	users, total, err := h.users.List(opts)
	if err != nil {
		return response.ServerError(c)
	}
	dtos := make([]fiber.Map, len(users))
	for i := range users {
		dtos[i] = userDTO(&users[i])
	}
	return response.Paginated(c, dtos, len(dtos), total, opts.Page, opts.Limit)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	return response.Success(c, "", userDTO(user))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus drives the registration lifecycle (approve, deactivate).
func (h *UserHandler) SetStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	var req setStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	before, err := h.users.GetByID(id)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if err := h.users.SetStatus(id, req.Status); err != nil {
		return response.BadRequest(c, err.Error())
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceUser,
		ResourceID:   &id,
		Before:       fiber.Map{"registrationStatus": before.RegistrationStatus},
		After:        fiber.Map{"registrationStatus": req.Status},
		IP:           c.IP(),
	})
	return response.Success(c, "Status updated", nil)
}

type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Name      string  `json:"name"`
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name != "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "name", Message: "use firstName and lastName", Value: req.Name,
		}})
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	before := userDTO(user)
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if _, err := h.users.Update(user); err != nil {
		return response.ServerError(c)
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceUser,
		ResourceID:   &id,
		Before:       before,
		After:        userDTO(user),
		IP:           c.IP(),
	})
	return response.Success(c, "User updated", userDTO(user))
}

// Delete is admin-only; routing enforces that before we get here.
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	before, err := h.users.GetByID(id)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if err := h.users.Delete(id); err != nil {
		if errors.Is(err, usersvc.ErrNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.ServerError(c)
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionDelete,
		ResourceKind: models.ResourceUser,
		ResourceID:   &id,
		Before:       userDTO(before),
		IP:           c.IP(),
	})
	return response.Success(c, "User deleted", nil)
}
