package handlers

import (
	"errors"
	"time"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/services/authz"
	maintsvc "domus/internal/services/maintenance"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"
	"domus/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// defaultPublicLinkTTL bounds how long a share link stays live unless the
// caller asks for less.
const defaultPublicLinkTTL = 30 * 24 * time.Hour

type RequestHandler struct {
	maint  maintsvc.Service
	actors *ActorLoader
	audit  audit.Service
}

func NewRequestHandler(maint maintsvc.Service, actors *ActorLoader, auditSvc audit.Service) *RequestHandler {
	return &RequestHandler{maint: maint, actors: actors, audit: auditSvc}
}

func requestTarget(req *models.MaintenanceRequest) authz.Target {
	t := authz.Target{
		Kind:       models.ResourceRequest,
		PropertyID: req.PropertyID,
		UnitID:     req.UnitID,
		OwnerID:    req.CreatedByID,
	}
	if a, ok := req.Assignee(); ok {
		t.AssigneeID = a.ID
		t.AssigneeKind = a.Kind
	}
	return t
}

// isManager reports whether the actor counts as a manager of the request's
// property for transition guards.
func isManager(actor authz.Actor, target authz.Target) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleLandlord, models.RolePropertyManager:
		return authz.Authorize(actor, authz.ActionUpdate, authz.Target{
			Kind:       target.Kind,
			PropertyID: target.PropertyID,
		}).Allowed
	}
	return false
}

type createRequestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	PropertyID  uint   `json:"propertyId"`
	UnitID      *uint  `json:"unitId"`
	MediaRefs   string `json:"mediaRefs"`
}

func (h *RequestHandler) Create(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	var req createRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Title == "" || req.PropertyID == 0 {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "title", Message: "title and propertyId are required",
		}})
	}

	decision := authz.Authorize(actor, authz.ActionCreate, authz.Target{
		Kind:       models.ResourceRequest,
		PropertyID: req.PropertyID,
		UnitID:     req.UnitID,
	})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceRequest, nil, decision.Reason)
	}

	created, err := h.maint.CreateRequest(&models.MaintenanceRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		PropertyID:  req.PropertyID,
		UnitID:      req.UnitID,
		CreatedByID: actor.ID,
		MediaRefs:   req.MediaRefs,
	})
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &created.ID,
		After:        created,
		IP:           c.IP(),
	})
	return response.Created(c, "Request created", created)
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	decision := authz.Authorize(actor, authz.ActionRead, requestTarget(req))
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceRequest, &id, decision.Reason)
	}
	return response.Success(c, "", req)
}

func (h *RequestHandler) List(c *fiber.Ctx) error {
	actor, _, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	opts := pagination.ParseFromRequest(c)

	filter := repositories.RequestFilter{Status: c.Query("status")}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleTenant:
		filter.CreatedByID = actor.ID
	case models.RoleVendor:
		filter.AssigneeID = actor.ID
		filter.AssigneeKind = models.AssigneeUser
	default:
		filter.PropertyIDs = authz.ScopedPropertyIDs(actor)
	}

	reqs, total, err := h.maint.ListRequests(filter, opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, reqs, len(reqs), total, opts.Page, opts.Limit)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *RequestHandler) Transition(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	var body transitionRequest
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.BadRequest(c, "status is required")
	}

	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	target := requestTarget(req)
	decision := authz.Authorize(actor, authz.ActionUpdate, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionStatusChange, models.ResourceRequest, &id, decision.Reason)
	}

	before := req.Status
	tctx := maintsvc.TransitionContext{
		ActorID:  actor.ID,
		Manager:  isManager(actor, target),
		Assignee: target.AssigneeKind == models.AssigneeUser && target.AssigneeID == actor.ID,
	}
	updated, err := h.maint.Transition(id, body.Status, tctx)
	if err != nil {
		switch {
		case errors.Is(err, maintsvc.ErrBadTransition):
			return response.UnprocessableEntity(c, "Illegal status transition")
		case errors.Is(err, maintsvc.ErrGuardViolation):
			return denyAndAudit(c, h.audit, claims, models.ActionStatusChange, models.ResourceRequest, &id, err.Error())
		default:
			return response.BadRequest(c, err.Error())
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &id,
		Before:       fiber.Map{"status": before},
		After:        fiber.Map{"status": updated.Status},
		IP:           c.IP(),
	})
	return response.Success(c, "Request "+updated.Status, updated)
}

type assignRequest struct {
	AssigneeID   uint   `json:"assigneeId"`
	AssigneeKind string `json:"assigneeKind"`
}

func (h *RequestHandler) Assign(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	var body assignRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	target := requestTarget(req)
	decision := authz.Authorize(actor, authz.ActionAssign, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionAssign, models.ResourceRequest, &id, decision.Reason)
	}

	var assignee models.Assignee
	switch body.AssigneeKind {
	case models.AssigneeUser:
		assignee = models.UserAssignee(body.AssigneeID)
	case models.AssigneeVendor:
		assignee = models.VendorAssignee(body.AssigneeID)
	default:
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "assigneeKind", Message: "assigneeKind must be User or Vendor", Value: body.AssigneeKind,
		}})
	}

	tctx := maintsvc.TransitionContext{ActorID: actor.ID, Manager: isManager(actor, target)}
	updated, err := h.maint.Assign(id, assignee, tctx)
	if err != nil {
		switch {
		case errors.Is(err, maintsvc.ErrMissingAssignee):
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "assigneeId", Message: "assigneeId is required",
			}})
		case errors.Is(err, maintsvc.ErrVendorAssignment):
			return denyAndAudit(c, h.audit, claims, models.ActionAssign, models.ResourceRequest, &id, err.Error())
		case errors.Is(err, maintsvc.ErrBadTransition):
			return response.UnprocessableEntity(c, "Request cannot be assigned in its current status")
		default:
			return response.ServerError(c)
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionAssign,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &id,
		After:        fiber.Map{"assigneeId": body.AssigneeID, "assigneeKind": body.AssigneeKind},
		IP:           c.IP(),
	})
	return response.Success(c, "Request assigned", updated)
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *RequestHandler) Feedback(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	decision := authz.Authorize(actor, authz.ActionFeedback, requestTarget(req))
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceRequest, &id, decision.Reason)
	}

	var body feedbackRequest
	if err := c.BodyParser(&body); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := validation.CheckRating(body.Rating); err != nil {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "rating", Message: err.Error(), Value: body.Rating,
		}})
	}

	updated, err := h.maint.SubmitFeedback(id, body.Rating, body.Comment)
	if err != nil {
		if errors.Is(err, maintsvc.ErrFeedbackState) {
			return response.UnprocessableEntity(c, "Feedback is only accepted on completed requests")
		}
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &id,
		Description:  "tenant feedback recorded",
		After:        fiber.Map{"rating": body.Rating},
		IP:           c.IP(),
	})
	return response.Success(c, "Feedback recorded", updated)
}

type commentRequest struct {
	Message string `json:"message"`
}

func (h *RequestHandler) AddComment(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	decision := authz.Authorize(actor, authz.ActionRead, requestTarget(req))
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceComment, &id, decision.Reason)
	}

	var body commentRequest
	if err := c.BodyParser(&body); err != nil || body.Message == "" {
		return response.BadRequest(c, "comment message is required")
	}

	comment, err := h.maint.AddComment(&models.Comment{
		ResourceKind: models.ResourceRequest,
		ResourceID:   id,
		AuthorID:     &actor.ID,
		Message:      body.Message,
	})
	if err != nil {
		return response.ServerError(c)
	}
	return response.Created(c, "Comment added", comment)
}

func (h *RequestHandler) ListComments(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	decision := authz.Authorize(actor, authz.ActionRead, requestTarget(req))
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceComment, &id, decision.Reason)
	}

	comments, err := h.maint.ListComments(models.ResourceRequest, id)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Success(c, "", comments)
}

type publicLinkRequest struct {
	TTLHours int `json:"ttlHours"`
}

// IssuePublicLink mints a share token; the raw value appears in this
// response only, storage holds the hash.
func (h *RequestHandler) IssuePublicLink(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	req, err := h.maint.GetRequest(id)
	if err != nil {
		return response.NotFound(c, "Request not found")
	}
	target := requestTarget(req)
	decision := authz.Authorize(actor, authz.ActionUpdate, target)
	if !decision.Allowed || !isManager(actor, target) {
		reason := decision.Reason
		if reason == "" {
			reason = "public links are manager-only"
		}
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceRequest, &id, reason)
	}

	var body publicLinkRequest
	_ = c.BodyParser(&body)
	ttl := defaultPublicLinkTTL
	if body.TTLHours > 0 {
		ttl = time.Duration(body.TTLHours) * time.Hour
	}

	raw, updated, err := h.maint.IssueRequestToken(id, ttl)
	if err != nil {
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceRequest,
		ResourceID:   &id,
		Description:  "public link issued",
		IP:           c.IP(),
	})
	return response.Created(c, "Public link issued", fiber.Map{
		"token":     raw,
		"expiresAt": updated.PublicLinkExpiresAt,
	})
}
