package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/services/audit"
	maintsvc "domus/internal/services/maintenance"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// PublicHandler serves token-holders with no account. Views are redacted:
// no internal notes, no assignee identity, no creator identity. Every access
// lands in the audit log.
type PublicHandler struct {
	maint maintsvc.Service
	audit audit.Service
}

func NewPublicHandler(maint maintsvc.Service, auditSvc audit.Service) *PublicHandler {
	return &PublicHandler{maint: maint, audit: auditSvc}
}

// publicRequestDTO is the redacted external view of a request.
func publicRequestDTO(req *models.MaintenanceRequest) fiber.Map {
	return fiber.Map{
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"priority":    req.Priority,
		"status":      req.Status,
		"createdAt":   req.CreatedAt,
		"resolvedAt":  req.ResolvedAt,
	}
}

func publicTemplateDTO(t *models.ScheduledMaintenance) fiber.Map {
	return fiber.Map{
		"title":       t.Title,
		"description": t.Description,
		"category":    t.Category,
		"status":      t.Status,
		"nextDueDate": t.NextDueDate,
	}
}

// publicLinkError maps a failed token resolution: an expired link is a
// credential that stopped working (401), an unknown one never existed (404).
func publicLinkError(c *fiber.Ctx, err error) error {
	if errors.Is(err, maintsvc.ErrTokenExpired) {
		return response.Unauthorized(c, "Link has expired")
	}
	return response.NotFound(c, "Unknown link")
}

func (h *PublicHandler) GetRequest(c *fiber.Ctx) error {
	req, err := h.maint.ResolveRequestToken(c.Params("token"))
	if err != nil {
		return publicLinkError(c, err)
	}
	h.audit.Record(audit.Entry{
		Action:       models.ActionPublicAccess,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &req.ID,
		Description:  "public view",
		IP:           c.IP(),
	})
	return response.Success(c, "", publicRequestDTO(req))
}

type publicUpdateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// UpdateRequest lets an external vendor move a shared request to in_progress
// or completed, identified by name and phone rather than an account.
func (h *PublicHandler) UpdateRequest(c *fiber.Ctx) error {
	req, err := h.maint.ResolveRequestToken(c.Params("token"))
	if err != nil {
		return publicLinkError(c, err)
	}

	var body publicUpdateRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if body.Name == "" || body.Phone == "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "name", Message: "name and phone are required",
		}})
	}
	caller := body.Name + " / " + body.Phone

	before := req.Status
	if body.Status != "" {
		updated, err := h.maint.Transition(req.ID, body.Status, maintsvc.TransitionContext{Public: true})
		if err != nil {
			h.audit.Record(audit.Entry{
				ActorEmail:   caller,
				Action:       models.ActionPublicAccess,
				ResourceKind: models.ResourceRequest,
				ResourceID:   &req.ID,
				Description:  err.Error(),
				Status:       models.AuditFailure,
				IP:           c.IP(),
			})
			if errors.Is(err, maintsvc.ErrGuardViolation) {
				return response.Forbidden(c)
			}
			return response.UnprocessableEntity(c, "Illegal status transition")
		}
		req = updated
	}

	if body.Comment != "" {
		if _, err := h.maint.AddComment(&models.Comment{
			ResourceKind: models.ResourceRequest,
			ResourceID:   req.ID,
			AuthorName:   body.Name,
			AuthorPhone:  body.Phone,
			Message:      body.Comment,
		}); err != nil {
			return response.ServerError(c)
		}
	}

	h.audit.Record(audit.Entry{
		ActorEmail:   caller,
		Action:       models.ActionPublicAccess,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &req.ID,
		Description:  "public update",
		Before:       fiber.Map{"status": before},
		After:        fiber.Map{"status": req.Status},
		IP:           c.IP(),
	})
	return response.Success(c, "Request updated", publicRequestDTO(req))
}

func (h *PublicHandler) GetTemplate(c *fiber.Ctx) error {
	t, err := h.maint.ResolveTemplateToken(c.Params("token"))
	if err != nil {
		return publicLinkError(c, err)
	}
	h.audit.Record(audit.Entry{
		Action:       models.ActionPublicAccess,
		ResourceKind: models.ResourceTemplate,
		ResourceID:   &t.ID,
		Description:  "public view",
		IP:           c.IP(),
	})
	return response.Success(c, "", publicTemplateDTO(t))
}
