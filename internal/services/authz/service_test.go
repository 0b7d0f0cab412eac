package authz

import (
	"testing"

	"domus/internal/models"

	"github.com/stretchr/testify/assert"
)

func assoc(propertyID uint, active bool, roles ...string) models.PropertyUserAssociation {
	return models.PropertyUserAssociation{
		PropertyID: propertyID,
		Roles:      models.RoleList(roles),
		Active:     active,
	}
}

func unitAssoc(propertyID, unitID uint, roles ...string) models.PropertyUserAssociation {
	a := assoc(propertyID, true, roles...)
	a.UnitID = &unitID
	return a
}

func TestAuthorize_RoleMatrix(t *testing.T) {
	unit := uint(5)
	tests := []struct {
		name    string
		actor   Actor
		action  Action
		target  Target
		allowed bool
	}{
		{
			name:    "admin may do anything",
			actor:   Actor{ID: 1, Role: models.RoleAdmin},
			action:  ActionDelete,
			target:  Target{Kind: models.ResourceUser},
			allowed: true,
		},
		{
			name:    "landlord manages an associated property",
			actor:   Actor{ID: 2, Role: models.RoleLandlord, Associations: []models.PropertyUserAssociation{assoc(7, true, models.AssocRoleLandlord)}},
			action:  ActionUpdate,
			target:  Target{Kind: models.ResourceProperty, PropertyID: 7},
			allowed: true,
		},
		{
			name:    "landlord denied on a foreign property",
			actor:   Actor{ID: 2, Role: models.RoleLandlord, Associations: []models.PropertyUserAssociation{assoc(7, true, models.AssocRoleLandlord)}},
			action:  ActionUpdate,
			target:  Target{Kind: models.ResourceProperty, PropertyID: 8},
			allowed: false,
		},
		{
			name:    "inactive association grants nothing",
			actor:   Actor{ID: 2, Role: models.RoleLandlord, Associations: []models.PropertyUserAssociation{assoc(7, false, models.AssocRoleLandlord)}},
			action:  ActionRead,
			target:  Target{Kind: models.ResourceProperty, PropertyID: 7},
			allowed: false,
		},
		{
			name:    "landlord role does not satisfy a propertymanager association check",
			actor:   Actor{ID: 2, Role: models.RolePropertyManager, Associations: []models.PropertyUserAssociation{assoc(7, true, models.AssocRoleLandlord)}},
			action:  ActionUpdate,
			target:  Target{Kind: models.ResourceProperty, PropertyID: 7},
			allowed: false,
		},
		{
			name:    "anyone with a manager role may create a property",
			actor:   Actor{ID: 2, Role: models.RoleLandlord},
			action:  ActionCreate,
			target:  Target{Kind: models.ResourceProperty},
			allowed: true,
		},
		{
			name:    "manager denied on unscoped targets",
			actor:   Actor{ID: 2, Role: models.RoleLandlord, Associations: []models.PropertyUserAssociation{assoc(7, true, models.AssocRoleLandlord)}},
			action:  ActionDelete,
			target:  Target{Kind: models.ResourceUser},
			allowed: false,
		},
		{
			name:    "tenant reads its own unit",
			actor:   Actor{ID: 3, Role: models.RoleTenant, Associations: []models.PropertyUserAssociation{unitAssoc(7, unit, models.AssocRoleTenant)}},
			action:  ActionRead,
			target:  Target{Kind: models.ResourceUnit, PropertyID: 7, UnitID: &unit},
			allowed: true,
		},
		{
			name:    "tenant opens a request against its own unit",
			actor:   Actor{ID: 3, Role: models.RoleTenant, Associations: []models.PropertyUserAssociation{unitAssoc(7, unit, models.AssocRoleTenant)}},
			action:  ActionCreate,
			target:  Target{Kind: models.ResourceRequest, PropertyID: 7, UnitID: &unit},
			allowed: true,
		},
		{
			name:    "tenant denied creating a request on a foreign property",
			actor:   Actor{ID: 3, Role: models.RoleTenant, Associations: []models.PropertyUserAssociation{unitAssoc(7, unit, models.AssocRoleTenant)}},
			action:  ActionCreate,
			target:  Target{Kind: models.ResourceRequest, PropertyID: 9, UnitID: &unit},
			allowed: false,
		},
		{
			name:    "tenant pays its own rent record",
			actor:   Actor{ID: 3, Role: models.RoleTenant},
			action:  ActionPay,
			target:  Target{Kind: models.ResourceRentRecord, PropertyID: 7, OwnerID: 3},
			allowed: true,
		},
		{
			name:    "tenant denied paying someone else's rent",
			actor:   Actor{ID: 3, Role: models.RoleTenant},
			action:  ActionPay,
			target:  Target{Kind: models.ResourceRentRecord, PropertyID: 7, OwnerID: 4},
			allowed: false,
		},
		{
			name:    "tenant leaves feedback on its own request",
			actor:   Actor{ID: 3, Role: models.RoleTenant},
			action:  ActionFeedback,
			target:  Target{Kind: models.ResourceRequest, PropertyID: 7, OwnerID: 3},
			allowed: true,
		},
		{
			name:    "tenant may not delete anything",
			actor:   Actor{ID: 3, Role: models.RoleTenant, Associations: []models.PropertyUserAssociation{unitAssoc(7, unit, models.AssocRoleTenant)}},
			action:  ActionDelete,
			target:  Target{Kind: models.ResourceProperty, PropertyID: 7},
			allowed: false,
		},
		{
			name:    "vendor updates a request assigned to it",
			actor:   Actor{ID: 4, Role: models.RoleVendor},
			action:  ActionUpdate,
			target:  Target{Kind: models.ResourceRequest, PropertyID: 7, AssigneeID: 4, AssigneeKind: models.AssigneeUser},
			allowed: true,
		},
		{
			name:    "vendor denied on an unassigned request",
			actor:   Actor{ID: 4, Role: models.RoleVendor},
			action:  ActionRead,
			target:  Target{Kind: models.ResourceRequest, PropertyID: 7, AssigneeID: 5, AssigneeKind: models.AssigneeUser},
			allowed: false,
		},
		{
			name:    "vendor denied outside maintenance requests",
			actor:   Actor{ID: 4, Role: models.RoleVendor},
			action:  ActionRead,
			target:  Target{Kind: models.ResourceLease, PropertyID: 7},
			allowed: false,
		},
		{
			name:    "vendor may not delete its assigned request",
			actor:   Actor{ID: 4, Role: models.RoleVendor},
			action:  ActionDelete,
			target:  Target{Kind: models.ResourceRequest, PropertyID: 7, AssigneeID: 4, AssigneeKind: models.AssigneeUser},
			allowed: false,
		},
		{
			name:    "unknown role grants nothing",
			actor:   Actor{ID: 5, Role: "auditor"},
			action:  ActionRead,
			target:  Target{Kind: models.ResourceProperty, PropertyID: 7},
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Authorize(tt.actor, tt.action, tt.target)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason, "denials must carry a precise reason for the audit log")
			}
		})
	}
}

func TestScopedPropertyIDs(t *testing.T) {
	t.Run("admin is unrestricted", func(t *testing.T) {
		ids := ScopedPropertyIDs(Actor{ID: 1, Role: models.RoleAdmin})
		assert.Nil(t, ids)
	})

	t.Run("no associations scopes to nothing, not everything", func(t *testing.T) {
		ids := ScopedPropertyIDs(Actor{ID: 2, Role: models.RoleTenant})
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})

	t.Run("active associations deduplicated", func(t *testing.T) {
		actor := Actor{ID: 2, Role: models.RoleLandlord, Associations: []models.PropertyUserAssociation{
			assoc(7, true, models.AssocRoleLandlord),
			assoc(7, true, models.AssocRolePropertyManager),
			assoc(9, true, models.AssocRoleLandlord),
			assoc(11, false, models.AssocRoleLandlord),
		}}
		assert.Equal(t, []uint{7, 9}, ScopedPropertyIDs(actor))
	})
}
