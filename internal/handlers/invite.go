package handlers

import (
	"errors"
	"time"

	"domus/internal/models"
	"domus/internal/services/audit"
	authsvc "domus/internal/services/auth"
	"domus/internal/services/authz"
	invitesvc "domus/internal/services/invite"
	"domus/internal/services/notification"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type InviteHandler struct {
	invites  invitesvc.Service
	auth     authsvc.Service
	notifier *notification.Service
	actors   *ActorLoader
	audit    audit.Service
	expiry   time.Duration
}

func NewInviteHandler(invites invitesvc.Service, auth authsvc.Service, notifier *notification.Service,
	actors *ActorLoader, auditSvc audit.Service, expiry time.Duration) *InviteHandler {
	return &InviteHandler{
		invites:  invites,
		auth:     auth,
		notifier: notifier,
		actors:   actors,
		audit:    auditSvc,
		expiry:   expiry,
	}
}

// inviteDTO never exposes the token hash.
func inviteDTO(inv *models.Invite) fiber.Map {
	return fiber.Map{
		"id":          inv.ID,
		"email":       inv.Email,
		"roles":       inv.Roles,
		"propertyId":  inv.PropertyID,
		"unitId":      inv.UnitID,
		"status":      inv.Status,
		"expiresAt":   inv.ExpiresAt,
		"resendCount": inv.ResendCount,
		"createdAt":   inv.CreatedAt,
	}
}

type createInviteRequest struct {
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	PropertyID *uint    `json:"propertyId"`
	UnitID     *uint    `json:"unitId"`
}

func (h *InviteHandler) Create(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	var req createInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	target := authz.Target{Kind: models.ResourceInvite}
	if req.PropertyID != nil {
		target.PropertyID = *req.PropertyID
	}
	decision := authz.Authorize(actor, authz.ActionCreate, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionInviteSend, models.ResourceInvite, nil, decision.Reason)
	}

	raw, inv, err := h.invites.Create(invitesvc.CreateInput{
		Email:         req.Email,
		Roles:         req.Roles,
		PropertyID:    req.PropertyID,
		UnitID:        req.UnitID,
		GeneratedByID: actor.ID,
		Expiry:        h.expiry,
	})
	if err != nil {
		if errors.Is(err, invitesvc.ErrTenantNeedsUnit) {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "unitId", Message: "tenant invites require a unit",
			}})
		}
		return response.BadRequest(c, err.Error())
	}

	h.notifier.Enqueue(notification.SideEffect{
		Kind:      notification.KindEmail,
		Recipient: inv.Email,
		Subject:   "You have been invited",
		Body:      "Use this invite code to join: " + raw,
	})
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionInviteSend,
		ResourceKind: models.ResourceInvite,
		ResourceID:   &inv.ID,
		After:        inviteDTO(inv),
		IP:           c.IP(),
	})
	// The raw token appears in this response and the outbound email only.
	return response.Created(c, "Invite created", fiber.Map{
		"invite": inviteDTO(inv),
		"token":  raw,
	})
}

func (h *InviteHandler) List(c *fiber.Ctx) error {
	actor, _, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	opts := pagination.ParseFromRequest(c)
	invites, total, err := h.invites.List(authz.ScopedPropertyIDs(actor), c.Query("status"), opts)
	if err != nil {
		return response.ServerError(c)
	}
	dtos := make([]fiber.Map, len(invites))
	for i := range invites {
		dtos[i] = inviteDTO(&invites[i])
	}
	return response.Paginated(c, dtos, len(dtos), total, opts.Page, opts.Limit)
}

// Verify is the public pre-flight: the invitee checks the token before
// committing to an account.
func (h *InviteHandler) Verify(c *fiber.Ctx) error {
	inv, err := h.invites.Verify(c.Params("token"))
	if err != nil {
		return response.NotFound(c, "Invite is expired or unknown")
	}
	return response.Success(c, "", inviteDTO(inv))
}

type acceptInviteRequest struct {
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Accept finishes the invite: account find-or-create, association grant and
// invite consumption happen in one transaction, then a session is issued.
func (h *InviteHandler) Accept(c *fiber.Ctx) error {
	var req acceptInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.invites.Accept(invitesvc.AcceptInput{
		Token:     c.Params("token"),
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, invitesvc.ErrNotFound), errors.Is(err, invitesvc.ErrNotPending):
			return response.NotFound(c, "Invite is expired or unknown")
		case errors.Is(err, invitesvc.ErrWeakPassword):
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "password", Message: err.Error(),
			}})
		case errors.Is(err, invitesvc.ErrUserInactive):
			return response.Forbidden(c)
		default:
			return response.ServerError(c)
		}
	}

	access, refresh, err := h.auth.IssueTokens(result.User)
	if err != nil {
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &result.User.ID,
		ActorEmail:   result.User.Email,
		Action:       models.ActionInviteAccept,
		ResourceKind: models.ResourceInvite,
		ResourceID:   &result.Invite.ID,
		Description:  "invite accepted",
		After:        inviteDTO(result.Invite),
		IP:           c.IP(),
	})
	return response.Success(c, "Invite accepted", fiber.Map{
		"user":         userDTO(result.User),
		"userCreated":  result.UserCreated,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

type declineInviteRequest struct {
	Reason string `json:"reason"`
}

func (h *InviteHandler) Decline(c *fiber.Ctx) error {
	var req declineInviteRequest
	_ = c.BodyParser(&req)

	inv, err := h.invites.Decline(c.Params("token"), req.Reason)
	if err != nil {
		return response.NotFound(c, "Invite is expired or unknown")
	}
	h.audit.Record(audit.Entry{
		ActorEmail:   inv.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceInvite,
		ResourceID:   &inv.ID,
		Description:  "invite declined",
		IP:           c.IP(),
	})
	return response.Success(c, "Invite declined", nil)
}

func (h *InviteHandler) Cancel(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	inv, err := h.invites.Get(id)
	if err != nil {
		return response.NotFound(c, "Invite not found")
	}

	target := authz.Target{Kind: models.ResourceInvite}
	if inv.PropertyID != nil {
		target.PropertyID = *inv.PropertyID
	}
	decision := authz.Authorize(actor, authz.ActionUpdate, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionStatusChange, models.ResourceInvite, &id, decision.Reason)
	}

	inv, err = h.invites.Cancel(id, actor.ID)
	if err != nil {
		if errors.Is(err, invitesvc.ErrNotPending) {
			return response.UnprocessableEntity(c, "Invite is no longer pending")
		}
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceInvite,
		ResourceID:   &id,
		Description:  "invite cancelled",
		After:        inviteDTO(inv),
		IP:           c.IP(),
	})
	return response.Success(c, "Invite cancelled", nil)
}

// Resend rotates the token and extends the expiry, capped per invite.
func (h *InviteHandler) Resend(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	inv, err := h.invites.Get(id)
	if err != nil {
		return response.NotFound(c, "Invite not found")
	}

	target := authz.Target{Kind: models.ResourceInvite}
	if inv.PropertyID != nil {
		target.PropertyID = *inv.PropertyID
	}
	decision := authz.Authorize(actor, authz.ActionUpdate, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionInviteSend, models.ResourceInvite, &id, decision.Reason)
	}

	raw, inv, err := h.invites.Resend(id)
	if err != nil {
		switch {
		case errors.Is(err, invitesvc.ErrResendLimit):
			return response.UnprocessableEntity(c, "Invite resend limit reached")
		case errors.Is(err, invitesvc.ErrResendTooSoon):
			return response.Error(c, fiber.StatusTooManyRequests, "Invite was re-sent too recently")
		case errors.Is(err, invitesvc.ErrNotPending):
			return response.UnprocessableEntity(c, "Invite is no longer pending")
		default:
			return response.ServerError(c)
		}
	}

	h.notifier.Enqueue(notification.SideEffect{
		Kind:      notification.KindEmail,
		Recipient: inv.Email,
		Subject:   "Your invite was re-sent",
		Body:      "Use this invite code to join: " + raw,
	})
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionInviteSend,
		ResourceKind: models.ResourceInvite,
		ResourceID:   &id,
		Description:  "invite re-sent",
		After:        inviteDTO(inv),
		IP:           c.IP(),
	})
	return response.Success(c, "Invite re-sent", inviteDTO(inv))
}
