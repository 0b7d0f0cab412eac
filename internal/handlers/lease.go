package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/services/authz"
	leasesvc "domus/internal/services/lease"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"
	"domus/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type LeaseHandler struct {
	leases leasesvc.Service
	actors *ActorLoader
	audit  audit.Service
}

func NewLeaseHandler(leases leasesvc.Service, actors *ActorLoader, auditSvc audit.Service) *LeaseHandler {
	return &LeaseHandler{leases: leases, actors: actors, audit: auditSvc}
}

type createLeaseRequest struct {
	PropertyID      uint    `json:"propertyId"`
	UnitID          uint    `json:"unitId"`
	TenantID        uint    `json:"tenantId"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	MonthlyRent     float64 `json:"monthlyRent"`
	Currency        string  `json:"currency"`
	PaymentDueDay   int     `json:"paymentDueDay"`
	SecurityDeposit float64 `json:"securityDeposit"`
	Terms           string  `json:"terms"`
	Activate        bool    `json:"activate"`
}

func (h *LeaseHandler) Create(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	var req createLeaseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.PropertyID == 0 || req.UnitID == 0 || req.TenantID == 0 {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "propertyId", Message: "propertyId, unitId and tenantId are required",
		}})
	}

	decision := authz.Authorize(actor, authz.ActionCreate,
		authz.Target{Kind: models.ResourceLease, PropertyID: req.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceLease, nil, decision.Reason)
	}

	start, err := validation.ParseDate(req.StartDate)
	if err != nil {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "startDate", Message: err.Error(), Value: req.StartDate,
		}})
	}
	end, err := validation.ParseDate(req.EndDate)
	if err != nil {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "endDate", Message: err.Error(), Value: req.EndDate,
		}})
	}

	lease, err := h.leases.Create(leasesvc.CreateInput{
		PropertyID:      req.PropertyID,
		UnitID:          req.UnitID,
		TenantID:        req.TenantID,
		StartDate:       start,
		EndDate:         end,
		MonthlyRent:     req.MonthlyRent,
		Currency:        req.Currency,
		PaymentDueDay:   req.PaymentDueDay,
		SecurityDeposit: req.SecurityDeposit,
		Terms:           req.Terms,
		Activate:        req.Activate,
	})
	if err != nil {
		switch {
		case errors.Is(err, leasesvc.ErrActiveLeaseExists):
			return response.Conflict(c, "Unit already has an active lease")
		case errors.Is(err, leasesvc.ErrInvalidPeriod):
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "endDate", Message: "lease end must be after start",
			}})
		default:
			return response.BadRequest(c, err.Error())
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceLease,
		ResourceID:   &lease.ID,
		After:        lease,
		IP:           c.IP(),
	})
	return response.Created(c, "Lease created", lease)
}

func (h *LeaseHandler) Get(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	lease, err := h.leases.Get(id)
	if err != nil {
		return response.NotFound(c, "Lease not found")
	}

	decision := authz.Authorize(actor, authz.ActionRead, authz.Target{
		Kind:       models.ResourceLease,
		PropertyID: lease.PropertyID,
		UnitID:     &lease.UnitID,
		OwnerID:    lease.TenantID,
	})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceLease, &id, decision.Reason)
	}
	return response.Success(c, "", lease)
}

func (h *LeaseHandler) List(c *fiber.Ctx) error {
	actor, _, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	opts := pagination.ParseFromRequest(c)

	filter := repositories.LeaseFilter{
		Status: c.Query("status"),
	}
	if actor.Role == models.RoleTenant {
		filter.TenantID = actor.ID
	} else {
		filter.PropertyIDs = authz.ScopedPropertyIDs(actor)
	}

	leases, total, err := h.leases.List(filter, opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, leases, len(leases), total, opts.Page, opts.Limit)
}

func (h *LeaseHandler) Activate(c *fiber.Ctx) error {
	return h.changeStatus(c, "activate")
}

func (h *LeaseHandler) Terminate(c *fiber.Ctx) error {
	return h.changeStatus(c, "terminate")
}

func (h *LeaseHandler) changeStatus(c *fiber.Ctx, verb string) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	lease, err := h.leases.Get(id)
	if err != nil {
		return response.NotFound(c, "Lease not found")
	}
	before := lease.Status

	decision := authz.Authorize(actor, authz.ActionUpdate,
		authz.Target{Kind: models.ResourceLease, PropertyID: lease.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionStatusChange, models.ResourceLease, &id, decision.Reason)
	}

	switch verb {
	case "activate":
		lease, err = h.leases.Activate(id)
	case "terminate":
		lease, err = h.leases.Terminate(id)
	}
	if err != nil {
		if errors.Is(err, leasesvc.ErrActiveLeaseExists) {
			return response.Conflict(c, "Unit already has an active lease")
		}
		return response.UnprocessableEntity(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionStatusChange,
		ResourceKind: models.ResourceLease,
		ResourceID:   &id,
		Before:       fiber.Map{"status": before},
		After:        fiber.Map{"status": lease.Status},
		IP:           c.IP(),
	})
	return response.Success(c, "Lease "+lease.Status, lease)
}

type scheduleRequest struct {
	Amount             float64 `json:"amount"`
	Currency           string  `json:"currency"`
	DueDateDay         int     `json:"dueDateDay"`
	BillingPeriod      string  `json:"billingPeriod"`
	EffectiveStartDate string  `json:"effectiveStartDate"`
	EffectiveEndDate   string  `json:"effectiveEndDate"`
	AutoGenerate       *bool   `json:"autoGenerate"`
}

func (h *LeaseHandler) CreateSchedule(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	leaseID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	lease, err := h.leases.Get(leaseID)
	if err != nil {
		return response.NotFound(c, "Lease not found")
	}

	decision := authz.Authorize(actor, authz.ActionCreate,
		authz.Target{Kind: models.ResourceRentSchedule, PropertyID: lease.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceRentSchedule, nil, decision.Reason)
	}

	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	start, err := validation.ParseDate(req.EffectiveStartDate)
	if err != nil {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "effectiveStartDate", Message: err.Error(), Value: req.EffectiveStartDate,
		}})
	}
	sched := &models.RentSchedule{
		LeaseID:            leaseID,
		Amount:             req.Amount,
		Currency:           req.Currency,
		DueDateDay:         req.DueDateDay,
		BillingPeriod:      req.BillingPeriod,
		EffectiveStartDate: start,
		AutoGenerate:       true,
	}
	if req.EffectiveEndDate != "" {
		end, err := validation.ParseDate(req.EffectiveEndDate)
		if err != nil {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "effectiveEndDate", Message: err.Error(), Value: req.EffectiveEndDate,
			}})
		}
		sched.EffectiveEndDate = &end
	}
	if req.AutoGenerate != nil {
		sched.AutoGenerate = *req.AutoGenerate
	}

	created, err := h.leases.CreateSchedule(sched)
	if err != nil {
		if errors.Is(err, leasesvc.ErrScheduleOverlap) {
			return response.UnprocessableEntity(c, "Active schedules for a lease may not overlap")
		}
		return response.BadRequest(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceRentSchedule,
		ResourceID:   &created.ID,
		After:        created,
		IP:           c.IP(),
	})
	return response.Created(c, "Schedule created", created)
}

func (h *LeaseHandler) ListSchedules(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	leaseID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	lease, err := h.leases.Get(leaseID)
	if err != nil {
		return response.NotFound(c, "Lease not found")
	}
	decision := authz.Authorize(actor, authz.ActionRead, authz.Target{
		Kind:       models.ResourceRentSchedule,
		PropertyID: lease.PropertyID,
		UnitID:     &lease.UnitID,
		OwnerID:    lease.TenantID,
	})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceRentSchedule, nil, decision.Reason)
	}

	opts := pagination.ParseFromRequest(c)
	schedules, total, err := h.leases.ListSchedules(leaseID, opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, schedules, len(schedules), total, opts.Page, opts.Limit)
}

// UpdateSchedule edits cadence fields; deactivation goes through here too.
func (h *LeaseHandler) UpdateSchedule(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	schedID, err := parseID(c, "schedId")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	sched, err := h.leases.GetSchedule(schedID)
	if err != nil {
		return response.NotFound(c, "Schedule not found")
	}
	before := *sched

	decision := authz.Authorize(actor, authz.ActionUpdate,
		authz.Target{Kind: models.ResourceRentSchedule, PropertyID: sched.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceRentSchedule, &schedID, decision.Reason)
	}

	var req struct {
		scheduleRequest
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Amount != 0 {
		sched.Amount = req.Amount
	}
	if req.Currency != "" {
		sched.Currency = req.Currency
	}
	if req.DueDateDay != 0 {
		if err := validation.CheckDueDay(req.DueDateDay); err != nil {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "dueDateDay", Message: err.Error(), Value: req.DueDateDay,
			}})
		}
		sched.DueDateDay = req.DueDateDay
	}
	if req.BillingPeriod != "" {
		if !models.ValidBillingCadence(req.BillingPeriod) {
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "billingPeriod", Message: "unknown billing cadence", Value: req.BillingPeriod,
			}})
		}
		sched.BillingPeriod = req.BillingPeriod
	}
	if req.AutoGenerate != nil {
		sched.AutoGenerate = *req.AutoGenerate
	}
	if req.Active != nil {
		sched.Active = *req.Active
	}

	updated, err := h.leases.UpdateSchedule(sched)
	if err != nil {
		if errors.Is(err, leasesvc.ErrScheduleOverlap) {
			return response.UnprocessableEntity(c, "Active schedules for a lease may not overlap")
		}
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceRentSchedule,
		ResourceID:   &schedID,
		Before:       before,
		After:        updated,
		IP:           c.IP(),
	})
	return response.Success(c, "Schedule updated", updated)
}
