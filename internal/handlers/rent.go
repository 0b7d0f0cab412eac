package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/services/authz"
	leasesvc "domus/internal/services/lease"
	rentsvc "domus/internal/services/rent"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type RentHandler struct {
	rents  rentsvc.Service
	leases leasesvc.Service
	actors *ActorLoader
	audit  audit.Service
}

func NewRentHandler(rents rentsvc.Service, leases leasesvc.Service,
	actors *ActorLoader, auditSvc audit.Service) *RentHandler {
	return &RentHandler{rents: rents, leases: leases, actors: actors, audit: auditSvc}
}

// target resolves the owning lease so the record can be authorized like any
// other lease-scoped resource.
func (h *RentHandler) target(rec *models.RentRecord) (authz.Target, error) {
	lease, err := h.leases.Get(rec.LeaseID)
	if err != nil {
		return authz.Target{}, err
	}
	return authz.Target{
		Kind:       models.ResourceRentRecord,
		PropertyID: lease.PropertyID,
		UnitID:     &lease.UnitID,
		OwnerID:    lease.TenantID,
	}, nil
}

func (h *RentHandler) Get(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	rec, err := h.rents.Get(id)
	if err != nil {
		return response.NotFound(c, "Rent record not found")
	}
	target, err := h.target(rec)
	if err != nil {
		return response.ServerError(c)
	}
	decision := authz.Authorize(actor, authz.ActionRead, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceRentRecord, &id, decision.Reason)
	}
	return response.Success(c, "", rec)
}

// List narrows to the actor's leases: tenants see their own, managers see
// records under their scoped properties.
func (h *RentHandler) List(c *fiber.Ctx) error {
	actor, _, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	opts := pagination.ParseFromRequest(c)

	filter := repositories.RentFilter{
		Status: c.Query("status"),
		Period: c.Query("period"),
	}
	if actor.Role != models.RoleAdmin {
		leaseFilter := repositories.LeaseFilter{}
		if actor.Role == models.RoleTenant {
			leaseFilter.TenantID = actor.ID
		} else {
			leaseFilter.PropertyIDs = authz.ScopedPropertyIDs(actor)
		}
		leases, _, err := h.leases.List(leaseFilter, repositories.ListOptions{Limit: repositories.MaxPageSize})
		if err != nil {
			return response.ServerError(c)
		}
		ids := make([]uint, 0, len(leases))
		for i := range leases {
			ids = append(ids, leases[i].ID)
		}
		filter.LeaseIDs = ids
	}

	recs, total, err := h.rents.List(filter, opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, recs, len(recs), total, opts.Page, opts.Limit)
}

type paymentRequest struct {
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
	TransactionID string  `json:"transactionId"`
	ProofMediaRef string  `json:"proofMediaRef"`
}

// Pay records a payment made out of band; no gateway is involved, the record
// just tracks what the tenant reports and the manager later verifies.
func (h *RentHandler) Pay(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	rec, err := h.rents.Get(id)
	if err != nil {
		return response.NotFound(c, "Rent record not found")
	}
	target, err := h.target(rec)
	if err != nil {
		return response.ServerError(c)
	}
	decision := authz.Authorize(actor, authz.ActionPay, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionPayment, models.ResourceRentRecord, &id, decision.Reason)
	}

	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	before := fiber.Map{"status": rec.Status, "amountPaid": rec.AmountPaid}

	updated, err := h.rents.RecordPayment(id, rentsvc.PaymentInput{
		Amount:        req.Amount,
		Method:        req.Method,
		TransactionID: req.TransactionID,
		ProofMediaRef: req.ProofMediaRef,
	})
	if err != nil {
		switch {
		case errors.Is(err, rentsvc.ErrInvalidAmount):
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "amount", Message: "amount must be positive", Value: req.Amount,
			}})
		case errors.Is(err, rentsvc.ErrAlreadySettled):
			return response.UnprocessableEntity(c, "Rent record is already settled")
		default:
			return response.ServerError(c)
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionPayment,
		ResourceKind: models.ResourceRentRecord,
		ResourceID:   &id,
		Before:       before,
		After:        fiber.Map{"status": updated.Status, "amountPaid": updated.AmountPaid},
		IP:           c.IP(),
	})
	return response.Success(c, "Payment recorded", updated)
}

// Waive is manager-side forgiveness of an obligation.
func (h *RentHandler) Waive(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	rec, err := h.rents.Get(id)
	if err != nil {
		return response.NotFound(c, "Rent record not found")
	}
	target, err := h.target(rec)
	if err != nil {
		return response.ServerError(c)
	}
	// Waiving is a manager update, never a tenant payment action.
	target.OwnerID = 0
	decision := authz.Authorize(actor, authz.ActionUpdate, target)
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionStatusChange, models.ResourceRentRecord, &id, decision.Reason)
	}

	before := rec.Status
	updated, err := h.rents.Waive(id)
	if err != nil {
		if errors.Is(err, rentsvc.ErrAlreadySettled) {
			return response.UnprocessableEntity(c, "Rent record is already settled")
		}
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceRentRecord,
		ResourceID:   &id,
		Before:       fiber.Map{"status": before},
		After:        fiber.Map{"status": updated.Status},
		IP:           c.IP(),
	})
	return response.Success(c, "Rent waived", updated)
}
