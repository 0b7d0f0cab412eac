package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/services/authz"
	propertysvc "domus/internal/services/property"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"
	"domus/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type PropertyHandler struct {
	properties propertysvc.Service
	assocs     repositories.AssociationRepository
	actors     *ActorLoader
	audit      audit.Service
}

func NewPropertyHandler(properties propertysvc.Service, assocs repositories.AssociationRepository,
	actors *ActorLoader, auditSvc audit.Service) *PropertyHandler {
	return &PropertyHandler{properties: properties, assocs: assocs, actors: actors, audit: auditSvc}
}

type propertyRequest struct {
	Name      string   `json:"name"`
	Street    string   `json:"street"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Zip       string   `json:"zip"`
	Country   string   `json:"country"`
	Type      string   `json:"type"`
	YearBuilt int      `json:"yearBuilt"`
	Amenities string   `json:"amenities"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *PropertyHandler) Create(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	var req propertyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	decision := authz.Authorize(actor, authz.ActionCreate, authz.Target{Kind: models.ResourceProperty})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceProperty, nil, decision.Reason)
	}

	prop := &models.Property{
		Name:      req.Name,
		Street:    req.Street,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
		Type:      req.Type,
		YearBuilt: req.YearBuilt,
		Amenities: req.Amenities,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	created, err := h.properties.Create(prop, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, propertysvc.ErrDuplicateName):
			return response.Conflict(c, "Property name already in use")
		case errors.Is(err, propertysvc.ErrMissingFields):
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "city", Message: "city and country are required",
			}})
		default:
			return response.ServerError(c)
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceProperty,
		ResourceID:   &created.ID,
		After:        created,
		IP:           c.IP(),
	})
	return response.Created(c, "Property created", created)
}

func (h *PropertyHandler) Get(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionRead, authz.Target{Kind: models.ResourceProperty, PropertyID: id})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceProperty, &id, decision.Reason)
	}
	prop, err := h.properties.Get(id)
	if err != nil {
		return response.NotFound(c, "Property not found")
	}
	return response.Success(c, "", prop)
}

// List answers only the properties inside the actor's scope; admins see all.
func (h *PropertyHandler) List(c *fiber.Ctx) error {
	actor, _, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	opts := pagination.ParseFromRequest(c)
	props, total, err := h.properties.List(authz.ScopedPropertyIDs(actor), opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, props, len(props), total, opts.Page, opts.Limit)
}

func (h *PropertyHandler) Update(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionUpdate, authz.Target{Kind: models.ResourceProperty, PropertyID: id})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceProperty, &id, decision.Reason)
	}

	prop, err := h.properties.Get(id)
	if err != nil {
		return response.NotFound(c, "Property not found")
	}
	before := *prop

	var req propertyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name != "" {
		prop.Name = req.Name
	}
	if req.Street != "" {
		prop.Street = req.Street
	}
	if req.City != "" {
		prop.City = req.City
	}
	if req.State != "" {
		prop.State = req.State
	}
	if req.Zip != "" {
		prop.Zip = req.Zip
	}
	if req.Country != "" {
		prop.Country = req.Country
	}
	if req.Type != "" {
		prop.Type = req.Type
	}
	if req.YearBuilt != 0 {
		prop.YearBuilt = req.YearBuilt
	}
	if req.Amenities != "" {
		prop.Amenities = req.Amenities
	}
	if req.Latitude != nil {
		prop.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		prop.Longitude = req.Longitude
	}

	updated, err := h.properties.Update(prop)
	if err != nil {
		if errors.Is(err, propertysvc.ErrDuplicateName) {
			return response.Conflict(c, "Property name already in use")
		}
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceProperty,
		ResourceID:   &id,
		Before:       before,
		After:        updated,
		IP:           c.IP(),
	})
	return response.Success(c, "Property updated", updated)
}

// Archive soft-deletes the property and cascades to units, active leases and
// active templates.
func (h *PropertyHandler) Archive(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionDelete, authz.Target{Kind: models.ResourceProperty, PropertyID: id})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionDelete, models.ResourceProperty, &id, decision.Reason)
	}

	before, err := h.properties.Get(id)
	if err != nil {
		return response.NotFound(c, "Property not found")
	}
	if err := h.properties.Archive(id); err != nil {
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionDelete,
		ResourceKind: models.ResourceProperty,
		ResourceID:   &id,
		Description:  "property archived with cascading unit/lease/template shutdown",
		Before:       before,
		IP:           c.IP(),
	})
	return response.Success(c, "Property archived", nil)
}

type unitRequest struct {
	Name                  string  `json:"name"`
	Floor                 int     `json:"floor"`
	Bedrooms              int     `json:"bedrooms"`
	Bathrooms             int     `json:"bathrooms"`
	SquareFootage         float64 `json:"squareFootage"`
	RentAmount            float64 `json:"rentAmount"`
	Deposit               float64 `json:"deposit"`
	Status                string  `json:"status"`
	UtilityResponsibility string  `json:"utilityResponsibility"`
}

func (h *PropertyHandler) CreateUnit(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionCreate, authz.Target{Kind: models.ResourceUnit, PropertyID: propertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionCreate, models.ResourceUnit, nil, decision.Reason)
	}

	var req unitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "name", Message: "name is required",
		}})
	}

	unit := &models.Unit{
		PropertyID:            propertyID,
		Name:                  req.Name,
		Floor:                 req.Floor,
		Bedrooms:              req.Bedrooms,
		Bathrooms:             req.Bathrooms,
		SquareFootage:         req.SquareFootage,
		RentAmount:            req.RentAmount,
		Deposit:               req.Deposit,
		Status:                req.Status,
		UtilityResponsibility: req.UtilityResponsibility,
	}
	created, err := h.properties.CreateUnit(unit)
	if err != nil {
		switch {
		case errors.Is(err, propertysvc.ErrNotFound):
			return response.NotFound(c, "Property not found")
		case errors.Is(err, propertysvc.ErrDuplicateName):
			return response.Conflict(c, "Unit name already in use for this property")
		default:
			return response.ServerError(c)
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceUnit,
		ResourceID:   &created.ID,
		After:        created,
		IP:           c.IP(),
	})
	return response.Created(c, "Unit created", created)
}

func (h *PropertyHandler) GetUnit(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	unitID, err := parseID(c, "unitId")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionRead,
		authz.Target{Kind: models.ResourceUnit, PropertyID: propertyID, UnitID: &unitID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceUnit, &unitID, decision.Reason)
	}

	unit, err := h.properties.GetUnit(propertyID, unitID)
	if err != nil {
		return response.NotFound(c, "Unit not found")
	}
	return response.Success(c, "", unit)
}

func (h *PropertyHandler) ListUnits(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionRead, authz.Target{Kind: models.ResourceUnit, PropertyID: propertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceUnit, nil, decision.Reason)
	}

	opts := pagination.ParseFromRequest(c)
	units, total, err := h.properties.ListUnits(propertyID, opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, units, len(units), total, opts.Page, opts.Limit)
}

func (h *PropertyHandler) UpdateUnit(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	unitID, err := parseID(c, "unitId")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionUpdate,
		authz.Target{Kind: models.ResourceUnit, PropertyID: propertyID, UnitID: &unitID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionUpdate, models.ResourceUnit, &unitID, decision.Reason)
	}

	unit, err := h.properties.GetUnit(propertyID, unitID)
	if err != nil {
		return response.NotFound(c, "Unit not found")
	}
	before := *unit

	var req unitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name != "" {
		unit.Name = req.Name
	}
	if req.Floor != 0 {
		unit.Floor = req.Floor
	}
	if req.Bedrooms != 0 {
		unit.Bedrooms = req.Bedrooms
	}
	if req.Bathrooms != 0 {
		unit.Bathrooms = req.Bathrooms
	}
	if req.SquareFootage != 0 {
		unit.SquareFootage = req.SquareFootage
	}
	if req.RentAmount != 0 {
		unit.RentAmount = req.RentAmount
	}
	if req.Deposit != 0 {
		unit.Deposit = req.Deposit
	}
	if req.UtilityResponsibility != "" {
		unit.UtilityResponsibility = req.UtilityResponsibility
	}
	if req.Status != "" {
		unit.Status = req.Status
	}

	updated, err := h.properties.UpdateUnit(unit)
	if err != nil {
		if errors.Is(err, propertysvc.ErrDuplicateName) {
			return response.Conflict(c, "Unit name already in use for this property")
		}
		return response.BadRequest(c, err.Error())
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceUnit,
		ResourceID:   &unitID,
		Before:       before,
		After:        updated,
		IP:           c.IP(),
	})
	return response.Success(c, "Unit updated", updated)
}

type associateRequest struct {
	UserID uint     `json:"userId"`
	UnitID *uint    `json:"unitId"`
	Roles  []string `json:"roles"`
}

// Associate grants a user a role set on the property, optionally scoped to a
// unit.
func (h *PropertyHandler) Associate(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionAssign,
		authz.Target{Kind: models.ResourceAssociation, PropertyID: propertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionAssign, models.ResourceAssociation, nil, decision.Reason)
	}

	var req associateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.UserID == 0 {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "userId", Message: "userId is required",
		}})
	}
	if err := validation.CheckAssociationRoles(req.Roles); err != nil {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "roles", Message: err.Error(),
		}})
	}

	assoc := &models.PropertyUserAssociation{
		UserID:      req.UserID,
		PropertyID:  propertyID,
		UnitID:      req.UnitID,
		Roles:       models.RoleList(req.Roles),
		InvitedByID: &actor.ID,
	}
	if err := h.assocs.Associate(assoc); err != nil {
		if errors.Is(err, repositories.ErrDuplicateAssoc) {
			return response.Conflict(c, "Association already exists")
		}
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionAssign,
		ResourceKind: models.ResourceAssociation,
		ResourceID:   &assoc.ID,
		After:        assoc,
		IP:           c.IP(),
	})
	return response.Created(c, "Association created", assoc)
}

func (h *PropertyHandler) ListAssociations(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	propertyID, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	decision := authz.Authorize(actor, authz.ActionRead,
		authz.Target{Kind: models.ResourceAssociation, PropertyID: propertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionRead, models.ResourceAssociation, nil, decision.Reason)
	}

	assocs, err := h.assocs.ListUsersOfProperty(propertyID, c.Query("role"))
	if err != nil {
		return response.ServerError(c)
	}
	return response.Success(c, "", assocs)
}

// Deactivate soft-removes an association so old audit entries keep pointing
// at a real row.
func (h *PropertyHandler) Deactivate(c *fiber.Ctx) error {
	actor, claims, err := h.actors.Load(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}
	assocID, err := parseID(c, "assocId")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	assoc, err := h.assocs.GetByID(assocID)
	if err != nil {
		return response.NotFound(c, "Association not found")
	}
	decision := authz.Authorize(actor, authz.ActionAssign,
		authz.Target{Kind: models.ResourceAssociation, PropertyID: assoc.PropertyID})
	if !decision.Allowed {
		return denyAndAudit(c, h.audit, claims, models.ActionAssign, models.ResourceAssociation, &assocID, decision.Reason)
	}

	if err := h.assocs.Deactivate(assocID); err != nil {
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionAssign,
		ResourceKind: models.ResourceAssociation,
		ResourceID:   &assocID,
		Description:  "association deactivated",
		Before:       assoc,
		IP:           c.IP(),
	})
	return response.Success(c, "Association deactivated", nil)
}
