package handlers

import (
	"errors"
	"time"

	"domus/internal/models"
	"domus/internal/services/audit"
	"domus/internal/services/authz"
	maintsvc "domus/internal/services/maintenance"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"
	"domus/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ScheduledHandler manages recurring maintenance templates.
type ScheduledHandler struct {
	maint  maintsvc.Service
	actors *ActorLoader
	audit  audit.Service
}

func NewScheduledHandler(maint maintsvc.Service, actors *ActorLoader, auditSvc audit.Service) *ScheduledHandler {
	return &ScheduledHandler{maint: maint, actors: actors, audit: auditSvc}
}

type frequencyRequest struct {
	Type        string `json:"type"`
	Interval    int    `json:"interval"`
	DaysOfWeek  []int  `json:"daysOfWeek"`
	DaysOfMonth []int  `json:"daysOfMonth"`
	MonthOfYear int    `json:"monthOfYear"`
	CustomDays  []int  `json:"customDays"`
	EndDate     string `json:"endDate"`
	Occurrences *int   `json:"occurrences"`
}

func (f *frequencyRequest) toModel() (models.Frequency, error) {
	freq := models.Frequency{
		Type:        f.Type,
		Interval:    f.Interval,
		DaysOfWeek:  models.IntList(f.DaysOfWeek),
		DaysOfMonth: models.IntList(f.DaysOfMonth),
		MonthOfYear: f.MonthOfYear,
		CustomDays:  models.IntList(f.CustomDays),
		Occurrences: f.Occurrences,
	}
	if freq.Interval == 0 {
		freq.Interval = 1
	}
	if f.EndDate != "" {
		end, err := validation.ParseDate(f.EndDate)
		if err != nil {
			return freq, err
		}
		freq.EndDate = &end
	}
	return freq, nil
}

type templateRequest struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      string            `json:"category"`
	PropertyID    uint              `json:"propertyId"`
	UnitID        *uint             `json:"unitId"`
	ScheduledDate string            `json:"scheduledDate"`
	Recurring     bool              `json:"recurring"`
	Frequency     *frequencyRequest `json:"frequency"`
	AssigneeID    *uint             `json:"assigneeId"`
	AssigneeKind  string            `json:"assigneeKind"`
}

func (h *ScheduledHandler) Create(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Title == "" || req.PropertyID == 0 || req.ScheduledDate == "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "title", Message: "title, propertyId and scheduledDate are required",
		}})
	}

	decision := authz.Authorize(actor, authz.ActionCreate,
		authz.Target{Kind: models.ResourceTemplate, PropertyID: req.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceTemplate, nil, decision.Reason)
	}

	scheduled, err := validation.ParseDate(req.ScheduledDate)
	if err != nil {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "scheduledDate", Message: err.Error(), Value: req.ScheduledDate,
		}})
	}

	t := &models.ScheduledMaintenance{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		PropertyID:    req.PropertyID,
		UnitID:        req.UnitID,
		CreatedByID:   actor.ID,
		ScheduledDate: scheduled,
		Recurring:     req.Recurring,
	}
	if req.Recurring {
		if req.Frequency == nil {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "frequency", Message: "recurring templates require a frequency",
			}})
		}
		freq, err := req.Frequency.toModel()
		if err != nil {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "frequency.endDate", Message: err.Error(),
			}})
		}
		t.Frequency = freq
	}
	if req.AssigneeID != nil {
		switch req.AssigneeKind {
		case models.AssigneeUser:
			t.SetAssignee(models.UserAssignee(*req.AssigneeID))
		case models.AssigneeVendor:
			t.SetAssignee(models.VendorAssignee(*req.AssigneeID))
		default:
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "assigneeKind", Message: "assigneeKind must be User or Vendor", Value: req.AssigneeKind,
			}})
		}
	}

	created, err := h.maint.CreateTemplate(t)
	if err != nil {
		if errors.Is(err, maintsvc.ErrFrequencyRequired) {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "frequency", Message: err.Error(),
			}})
		}
		return response.BadRequest(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceTemplate,
		ResourceID:   &created.ID,
		After:        created,
		IP:           c.IP(),
	})
	return response.Created(c, "Template created", created)
}

func (h *ScheduledHandler) Get(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	t, err := h.maint.GetTemplate(id)
	if err != nil {
		return response.NotFound(c, "Template not found")
	}
	decision := authz.Authorize(actor, authz.ActionRead,
		authz.Target{Kind: models.ResourceTemplate, PropertyID: t.PropertyID, UnitID: t.UnitID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceTemplate, &id, decision.Reason)
	}
	return response.Success(c, "", t)
}

func (h *ScheduledHandler) List(c *fiber.Ctx) error {
	actor, _, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	opts := pagination.ParseFromRequest(c)
	templates, total, err := h.maint.ListTemplates(authz.ScopedPropertyIDs(actor), opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, templates, len(templates), total, opts.Page, opts.Limit)
}

func (h *ScheduledHandler) Update(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	t, err := h.maint.GetTemplate(id)
	if err != nil {
		return response.NotFound(c, "Template not found")
	}
	before := *t

	decision := authz.Authorize(actor, authz.ActionUpdate,
		authz.Target{Kind: models.ResourceTemplate, PropertyID: t.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceTemplate, &id, decision.Reason)
	}

	var req templateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Title != "" {
		t.Title = req.Title
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.Category != "" {
		t.Category = req.Category
	}
	if req.ScheduledDate != "" {
		scheduled, err := validation.ParseDate(req.ScheduledDate)
		if err != nil {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "scheduledDate", Message: err.Error(), Value: req.ScheduledDate,
			}})
		}
		t.ScheduledDate = scheduled
	}
	if req.Frequency != nil {
		freq, err := req.Frequency.toModel()
		if err != nil {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "frequency.endDate", Message: err.Error(),
			}})
		}
		t.Frequency = freq
		t.Recurring = true
	}

	updated, err := h.maint.UpdateTemplate(t)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceTemplate,
		ResourceID:   &id,
		Before:       before,
		After:        updated,
		IP:           c.IP(),
	})
	return response.Success(c, "Template updated", updated)
}

func (h *ScheduledHandler) Pause(c *fiber.Ctx) error {
	return h.lifecycle(c, "pause")
}

func (h *ScheduledHandler) Resume(c *fiber.Ctx) error {
	return h.lifecycle(c, "resume")
}

func (h *ScheduledHandler) Cancel(c *fiber.Ctx) error {
	return h.lifecycle(c, "cancel")
}

func (h *ScheduledHandler) lifecycle(c *fiber.Ctx, verb string) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	t, err := h.maint.GetTemplate(id)
	if err != nil {
		return response.NotFound(c, "Template not found")
	}
	before := t.Status

	decision := authz.Authorize(actor, authz.ActionUpdate,
		authz.Target{Kind: models.ResourceTemplate, PropertyID: t.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionStatusChange, models.ResourceTemplate, &id, decision.Reason)
	}

	switch verb {
	case "pause":
		t, err = h.maint.PauseTemplate(id)
	case "resume":
		t, err = h.maint.ResumeTemplate(id)
	case "cancel":
		t, err = h.maint.CancelTemplate(id)
	}
	if err != nil {
		return response.UnprocessableEntity(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceTemplate,
		ResourceID:   &id,
		Before:       fiber.Map{"status": before},
		After:        fiber.Map{"status": t.Status},
		IP:           c.IP(),
	})
	return response.Success(c, "Template "+t.Status, t)
}

// IssuePublicLink mints a share token for vendor coordination on a template.
func (h *ScheduledHandler) IssuePublicLink(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	t, err := h.maint.GetTemplate(id)
	if err != nil {
		return response.NotFound(c, "Template not found")
	}
	decision := authz.Authorize(actor, authz.ActionUpdate,
		authz.Target{Kind: models.ResourceTemplate, PropertyID: t.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceTemplate, &id, decision.Reason)
	}

	var body publicLinkRequest
	_ = c.BodyParser(&body)
	ttl := defaultPublicLinkTTL
	if body.TTLHours > 0 {
		ttl = time.Duration(body.TTLHours) * time.Hour
	}

	raw, updated, err := h.maint.IssueTemplateToken(id, ttl)
	if err != nil {
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceTemplate,
		ResourceID:   &id,
		Description:  "public link issued",
		IP:           c.IP(),
	})
	return response.Created(c, "Public link issued", fiber.Map{
		"token":     raw,
		"expiresAt": updated.PublicLinkExpiresAt,
	})
}
