// Package authz is the authorization kernel: a pure decision function over
// the actor's active association set. It touches no storage; callers load
// the actor once per request and every rule below is a plain predicate, so
// decisions are trivially testable.
package authz

import (
	"fmt"

	"domus/internal/models"
)

// Action is the verb being authorized.
type Action string

const (
	ActionRead     Action = "read"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionAssign   Action = "assign"
	ActionVerify   Action = "verify"
	ActionFeedback Action = "feedback"
	ActionPay      Action = "pay"
	ActionGenerate Action = "generate"
)

// Actor is the authenticated user plus its loaded association set.
type Actor struct {
	ID           uint
	Role         string
	Associations []models.PropertyUserAssociation
}

// Target describes the resource a command touches. PropertyID zero means the
// target is not property-scoped (user administration, global listings).
type Target struct {
	Kind         string
	PropertyID   uint
	UnitID       *uint
	OwnerID      uint // createdBy for requests, tenant for leases/rents
	AssigneeID   uint
	AssigneeKind string
}

// Decision carries the verdict and, on deny, the precise reason. The reason
// goes to the audit log only; callers answer with a generic Forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(format string, args ...interface{}) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// Authorize decides whether actor may perform action on target.
func Authorize(actor Actor, action Action, target Target) Decision {
	if actor.Role == models.RoleAdmin {
		return allow()
	}

	switch actor.Role {
	case models.RoleLandlord, models.RolePropertyManager:
		return authorizeManager(actor, action, target)
	case models.RoleTenant:
		return authorizeTenant(actor, action, target)
	case models.RoleVendor:
		return authorizeVendor(actor, action, target)
	}
	return deny("role %q grants no access", actor.Role)
}

// authorizeManager covers landlord and propertymanager actors: full control
// over properties they hold the matching association role on, and the right
// to create new properties (ownership grants the creator a landlord
// association).
func authorizeManager(actor Actor, action Action, target Target) Decision {
	if target.Kind == models.ResourceProperty && action == ActionCreate {
		return allow()
	}
	if target.PropertyID == 0 {
		return deny("%s actor may not touch unscoped %s", actor.Role, target.Kind)
	}
	role := models.AssocRoleLandlord
	if actor.Role == models.RolePropertyManager {
		role = models.AssocRolePropertyManager
	}
	if !hasPropertyRole(actor, target.PropertyID, role) {
		return deny("no active %s association with property %d", role, target.PropertyID)
	}
	if action == ActionDelete && target.Kind == models.ResourceUser {
		return deny("user deletion is admin-only")
	}
	return allow()
}

// authorizeTenant scopes tenants to units they hold an active tenant
// association with, plus limited self-service on their own resources.
func authorizeTenant(actor Actor, action Action, target Target) Decision {
	owns := target.OwnerID != 0 && target.OwnerID == actor.ID

	switch action {
	case ActionRead:
		if owns || tenantOfUnit(actor, target.PropertyID, target.UnitID) {
			return allow()
		}
		return deny("tenant has no association with the target unit")
	case ActionCreate:
		// Tenants may open requests against their own unit.
		if target.Kind == models.ResourceRequest && tenantOfUnit(actor, target.PropertyID, target.UnitID) {
			return allow()
		}
		return deny("tenants may only create requests for their own unit")
	case ActionUpdate:
		if target.Kind == models.ResourceRequest && owns {
			return allow() // limited-field self-update, enforced at the handler
		}
		return deny("tenants may only update their own requests")
	case ActionFeedback:
		if target.Kind == models.ResourceRequest && owns {
			return allow()
		}
		return deny("feedback is limited to the tenant's own request")
	case ActionPay:
		if target.Kind == models.ResourceRentRecord && owns {
			return allow()
		}
		return deny("payments are limited to the tenant's own lease")
	}
	return deny("tenants may not %s %s", action, target.Kind)
}

// authorizeVendor lets a vendor-roled user view and update the requests
// assigned to them.
func authorizeVendor(actor Actor, action Action, target Target) Decision {
	if target.Kind != models.ResourceRequest {
		return deny("vendor access is limited to maintenance requests")
	}
	assigned := target.AssigneeKind == models.AssigneeUser && target.AssigneeID == actor.ID
	if !assigned {
		return deny("request is not assigned to this vendor")
	}
	switch action {
	case ActionRead, ActionUpdate:
		return allow()
	}
	return deny("vendors may not %s requests", action)
}

func hasPropertyRole(actor Actor, propertyID uint, role string) bool {
	for i := range actor.Associations {
		a := &actor.Associations[i]
		if a.Active && a.PropertyID == propertyID && a.HasRole(role) {
			return true
		}
	}
	return false
}

func tenantOfUnit(actor Actor, propertyID uint, unitID *uint) bool {
	for i := range actor.Associations {
		a := &actor.Associations[i]
		if !a.Active || a.PropertyID != propertyID || !a.HasRole(models.AssocRoleTenant) {
			continue
		}
		if unitID == nil {
			return true // property-level read over the tenant's property
		}
		if a.UnitID != nil && *a.UnitID == *unitID {
			return true
		}
	}
	return false
}

// ScopedPropertyIDs returns the property IDs the actor may list. nil means
// unrestricted (admin); an empty slice means nothing, so repository filters
// return empty pages instead of leaking rows.
func ScopedPropertyIDs(actor Actor) []uint {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	ids := make([]uint, 0, len(actor.Associations))
	seen := make(map[uint]bool)
	for i := range actor.Associations {
		a := &actor.Associations[i]
		if a.Active && !seen[a.PropertyID] {
			seen[a.PropertyID] = true
			ids = append(ids, a.PropertyID)
		}
	}
	return ids
}
