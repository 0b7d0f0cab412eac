// Package handlers contains the HTTP surface. Every mutating handler
// follows the same shape: decode, validate, authorize, mutate, audit,
// respond with the canonical envelope.
package handlers

import (
	"errors"
	"strconv"

	"domus/internal/models"
	"domus/internal/services/audit"
	"domus/internal/services/authz"
	usersvc "domus/internal/services/user"
	"domus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

var errNoClaims = errors.New("no claims in request context")

// ActorLoader resolves the authenticated claims into an authorization actor
// with its association set loaded. Associations ride the per-user cache, so
// the load is cheap on the hot path.
type ActorLoader struct {
	users usersvc.Service
}

func NewActorLoader(users usersvc.Service) *ActorLoader {
	if users == nil {
		panic("user service is required")
	}
	return &ActorLoader{users: users}
}

func (l *ActorLoader) Load(c *fiber.Ctx) (authz.Actor, *models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok {
		return authz.Actor{}, nil, errNoClaims
	}
	assocs, err := l.users.Associations(claims.UserID)
	if err != nil {
		return authz.Actor{}, claims, err
	}
	return authz.Actor{
		ID:           claims.UserID,
		Role:         claims.Role,
		Associations: assocs,
	}, claims, nil
}

// denyAndAudit records the precise denial reason in the audit log and
// answers with a generic Forbidden.
func denyAndAudit(c *fiber.Ctx, auditSvc audit.Service, claims *models.UserClaims,
	action string, resourceKind string, resourceID *uint, reason string) error {
	auditSvc.Record(audit.Entry{
		ActorID:      &claims.UserID,
		ActorEmail:   claims.Email,
		Action:       action,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Description:  reason,
		Status:       models.AuditFailure,
		IP:           c.IP(),
	})
	return response.Forbidden(c)
}

// parseID reads a positive integer path parameter.
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

func ptr(id uint) *uint { return &id }
