package handlers

import (
	"errors"

	"domus/internal/models"
	"domus/internal/services/audit"
	authsvc "domus/internal/services/auth"
	usersvc "domus/internal/services/user"
	"domus/internal/utils/response"
	"domus/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	auth  authsvc.Service
	users usersvc.Service
	audit audit.Service
}

func NewAuthHandler(auth authsvc.Service, users usersvc.Service, auditSvc audit.Service) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, audit: auditSvc}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	// Name is the retired single-field form; writes carrying it are
	// rejected so clients migrate to the split fields.
	Name string `json:"name"`
}

// userDTO strips credentials and synthesizes the legacy display name.
func userDTO(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                 u.ID,
		"email":              u.Email,
		"firstName":          u.FirstName,
		"lastName":           u.LastName,
		"name":               u.DisplayName(),
		"phone":              u.Phone,
		"role":               u.Role,
		"registrationStatus": u.RegistrationStatus,
		"createdAt":          u.CreatedAt,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name != "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field:   "name",
			Message: "use firstName and lastName",
			Value:   req.Name,
		}})
	}
	if !validation.ValidEmail(req.Email) {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "email", Message: "invalid email", Value: req.Email,
		}})
	}
	if req.FirstName == "" {
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "firstName", Message: "firstName is required",
		}})
	}

	user, err := h.users.Create(usersvc.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, usersvc.ErrDuplicateEmail):
			return response.Conflict(c, "Email already in use")
		case errors.Is(err, usersvc.ErrWeakPassword):
			return response.ValidationFailed(c, []response.FieldError{{
				Field: "password", Message: err.Error(),
			}})
		default:
			return response.BadRequest(c, err.Error())
		}
	}

	h.audit.Record(audit.Entry{
		ActorID:      &user.ID,
		ActorEmail:   user.Email,
		Action:       models.ActionCreate,
		ResourceKind: models.ResourceUser,
		ResourceID:   &user.ID,
		Description:  "user registered",
		After:        userDTO(user),
		IP:           c.IP(),
	})
	return response.Created(c, "Registration received, awaiting approval", userDTO(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, access, refresh, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		h.audit.Record(audit.Entry{
			ActorEmail:   models.NormalizeEmail(req.Email),
			Action:       models.ActionLogin,
			ResourceKind: models.ResourceUser,
			Description:  err.Error(),
			Status:       models.AuditFailure,
			IP:           c.IP(),
		})
		// Inactive accounts and bad credentials answer identically.
		return response.Unauthorized(c, "Invalid credentials")
	}

	h.audit.Record(audit.Entry{
		ActorID:      &user.ID,
		ActorEmail:   user.Email,
		Action:       models.ActionLogin,
		ResourceKind: models.ResourceUser,
		ResourceID:   &user.ID,
		IP:           c.IP(),
	})
	return response.Success(c, "Login successful", fiber.Map{
		"user":         userDTO(user),
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return response.BadRequest(c, "refreshToken is required")
	}
	access, refresh, err := h.auth.RefreshTokens(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "invalid refresh token")
	}
	return response.Success(c, "Tokens refreshed", fiber.Map{
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// Logout bumps the token version so every outstanding token dies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return response.Unauthorized(c, "invalid claims")
	}
	if err := h.auth.Logout(claims.UserID); err != nil {
		return response.ServerError(c)
	}
	return response.Success(c, "Logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return response.Unauthorized(c, "invalid claims")
	}
	user, err := h.users.GetByID(claims.UserID)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	assocs, err := h.users.Associations(claims.UserID)
	if err != nil {
		return response.ServerError(c)
	}
	return response.Success(c, "", fiber.Map{
		"user":         userDTO(user),
		"associations": assocs,
	})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return response.Unauthorized(c, "invalid claims")
	}
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	err := h.users.ChangePassword(claims.UserID, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, usersvc.ErrBadCredentials):
		return response.Unauthorized(c, "Invalid credentials")
	case errors.Is(err, usersvc.ErrWeakPassword):
		return response.ValidationFailed(c, []response.FieldError{{
			Field: "newPassword", Message: err.Error(),
		}})
	default:
		return response.ServerError(c)
	}

	h.audit.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       models.ActionUpdate,
		ResourceKind: models.ResourceUser,
		ResourceID:   &claims.UserID,
		Description:  "password changed, sessions invalidated",
		IP:           c.IP(),
	})
	return response.Success(c, "Password changed", nil)
}
