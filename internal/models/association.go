package models

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Roles grantable through a property association.
const (
	AssocRoleLandlord        = "landlord"
	AssocRolePropertyManager = "propertymanager"
	AssocRoleTenant          = "tenant"
	AssocRoleVendorAccess    = "vendor_access"
	AssocRoleAdminAccess     = "admin_access"
)

// RoleList is a set of association roles stored as a comma-joined text column.
type RoleList []string

func (r RoleList) Value() (driver.Value, error) {
	return strings.Join(r, ","), nil
}

func (r *RoleList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		*r = splitRoles(v)
		return nil
	case []byte:
		*r = splitRoles(string(v))
		return nil
	}
	return fmt.Errorf("cannot scan %T into RoleList", value)
}

func splitRoles(s string) RoleList {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(RoleList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether the list includes role.
func (r RoleList) Contains(role string) bool {
	for _, have := range r {
		if have == role {
			return true
		}
	}
	return false
}

// ValidAssociationRole reports whether role may appear in an association.
func ValidAssociationRole(role string) bool {
	switch role {
	case AssocRoleLandlord, AssocRolePropertyManager, AssocRoleTenant,
		AssocRoleVendorAccess, AssocRoleAdminAccess:
		return true
	}
	return false
}

// PropertyUserAssociation is the relational spine: it grants a user a role
// set on a property, optionally scoped to a single unit. Deactivation is
// soft so the audit trail stays resolvable.
type PropertyUserAssociation struct {
	gorm.Model
	UserID      uint     `gorm:"not null;index:idx_assoc_scope,unique,where:active"`
	PropertyID  uint     `gorm:"not null;index:idx_assoc_scope,unique,where:active"`
	UnitID      *uint    `gorm:"index:idx_assoc_scope,unique,where:active"`
	Roles       RoleList `gorm:"type:text;not null"`
	Active      bool     `gorm:"default:true"`
	InvitedByID *uint
}

// HasRole reports whether this association carries the given role.
func (a *PropertyUserAssociation) HasRole(role string) bool {
	return a.Roles.Contains(role)
}
