package handlers

import (
	"strconv"

	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"
	"domus/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AuditHandler exposes the audit log to admins.
type AuditHandler struct {
	audit audit.Service
}

func NewAuditHandler(auditSvc audit.Service) *AuditHandler {
	return &AuditHandler{audit: auditSvc}
}

func (h *AuditHandler) List(c *fiber.Ctx) error {
	filter := repositories.AuditFilter{
		Action:       c.Query("action"),
		ResourceKind: c.Query("resourceKind"),
		Status:       c.Query("status"),
	}
	if v := c.Query("actorId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return response.BadRequest(c, "invalid actorId")
		}
		filter.ActorID = uint(id)
	}
	if v := c.Query("resourceId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return response.BadRequest(c, "invalid resourceId")
		}
		filter.ResourceID = uint(id)
	}
	if v := c.Query("from"); v != "" {
		from, err := validation.ParseDate(v)
		if err != nil {
			return response.BadRequest(c, "invalid from date")
		}
		filter.From = from
	}
	if v := c.Query("to"); v != "" {
		to, err := validation.ParseDate(v)
		if err != nil {
			return response.BadRequest(c, "invalid to date")
		}
		filter.To = to
	}

	opts := pagination.ParseFromRequest(c)
	entries, total, err := h.audit.List(filter, opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, entries, len(entries), total, opts.Page, opts.Limit)
}
