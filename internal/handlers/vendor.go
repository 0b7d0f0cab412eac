package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/repositories"
	"domus/internal/services/audit"
	"domus/internal/utils/pagination"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// VendorHandler manages the vendor directory. Routing restricts writes to
// managers and admins.
type VendorHandler struct {
	vendors repositories.VendorRepository
	audit   audit.Service
}

func NewVendorHandler(vendors repositories.VendorRepository, auditSvc audit.Service) *VendorHandler {
	return &VendorHandler{vendors: vendors, audit: auditSvc}
}

type vendorRequest struct {
	Name         string `json:"name"`
	Services     string `json:"services"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`
}

func (h *VendorHandler) Create(c *fiber.Ctx) error {
	var req vendorRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "name", Message: "name is required",
		}})
	}

	vendor := &models.Vendor{
		Name:         req.Name,
		Services:     req.Services,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Active:       true,
	}
	if err := h.vendors.Create(vendor); err != nil {
		return response.ServerError(c)
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceVendor,
		ResourceID:   &vendor.ID,
		After:        vendor,
		IP:           c.IP(),
	})
	return response.Created(c, "Vendor created", vendor)
}

func (h *VendorHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	vendor, err := h.vendors.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrVendorNotFound) {
			return response.NotFound(c, "Vendor not found")
		}
		return response.ServerError(c)
	}
	return response.Success(c, "", vendor)
}

func (h *VendorHandler) List(c *fiber.Ctx) error {
	opts := pagination.ParseFromRequest(c)
	vendors, total, err := h.vendors.List(opts)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Paginated(c, vendors, len(vendors), total, opts.Page, opts.Limit)
}

func (h *VendorHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	vendor, err := h.vendors.GetByID(id)
	if err != nil {
		return response.NotFound(c, "Vendor not found")
	}
	before := *vendor

	var req struct {
		vendorRequest
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name != "" {
		vendor.Name = req.Name
	}
	if req.Services != "" {
		vendor.Services = req.Services
	}
	if req.ContactEmail != "" {
		vendor.ContactEmail = req.ContactEmail
	}
	if req.ContactPhone != "" {
		vendor.ContactPhone = req.ContactPhone
	}
	if req.Active != nil {
		vendor.Active = *req.Active
	}
	if err := h.vendors.Update(vendor); err != nil {
		return response.ServerError(c)
	}

	claims := c.Locals("claims").(*models.UserClaims)
	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceVendor,
		ResourceID:   &id,
		Before:       before,
		After:        vendor,
		IP:           c.IP(),
	})
	return response.Success(c, "Vendor updated", vendor)
}
