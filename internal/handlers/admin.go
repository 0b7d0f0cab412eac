package handlers

import (
	"domus/internal/models"
	"domus/internal/services/audit"
	propertysvc "domus/internal/services/property"
	"domus/internal/services/recurrence"
	usersvc "domus/internal/services/user"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler covers the admin-only operations that do not belong to a
// resource handler: approvals, hard deletes, and the manual generation
// trigger.
type AdminHandler struct {
	users      usersvc.Service
	properties propertysvc.Service
	generator  *recurrence.Generator
	audit      audit.Service
}

func NewAdminHandler(users usersvc.Service, properties propertysvc.Service,
	generator *recurrence.Generator, auditSvc audit.Service) *AdminHandler {
	return &AdminHandler{
		users:      users,
		properties: properties,
		generator:  generator,
		audit:      auditSvc,
	}
}

// ApproveUser moves a pending registration to active.
func (h *AdminHandler) ApproveUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	user, err := h.users.GetByID(id)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	before := user.RegistrationStatus
	if err := h.users.SetStatus(id, models.RegistrationActive); err != nil {
		return response.ServerError(c)
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceUser,
		ResourceID:   &id,
		Description:  "registration approved",
		Before:       fiber.Map{"registrationStatus": before},
		After:        fiber.Map{"registrationStatus": models.RegistrationActive},
		IP:           c.IP(),
	})
	return response.Success(c, "User approved", nil)
}

// HardDeleteProperty is irreversible; the archived path is the normal one.
func (h *AdminHandler) HardDeleteProperty(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	before, err := h.properties.Get(id)
	if err != nil {
		return response.NotFound(c, "Property not found")
	}
	if err := h.properties.HardDelete(id); err != nil {
		return response.ServerError(c)
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionDelete,
		ResourceKind: models.ResourceProperty,
		ResourceID:   &id,
		Description:  "property hard-deleted",
		Before:       before,
		IP:           c.IP(),
	})
	return response.Success(c, "Property deleted", nil)
}

// TriggerGeneration runs one generation pass on demand; the same pass the
// scheduler runs periodically.
func (h *AdminHandler) TriggerGeneration(c *fiber.Ctx) error {
	stats := h.generator.Run()

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionGenerate,
		ResourceKind: models.ResourceRentRecord,
		Description:  "manual generation trigger",
		After:        stats,
		IP:           c.IP(),
	})
	return response.Success(c, "Generation complete", fiber.Map{"stats": stats})
}
