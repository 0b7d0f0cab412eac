package models

import (
	"strings"

	"gorm.io/gorm"
)

// Registration lifecycle of a user account.
const (
	RegistrationPendingInvite        = "pending_invite_acceptance"
	RegistrationPendingAdminApproval = "pending_admin_approval"
	RegistrationPendingEmail         = "pending_email_verification"
	RegistrationActive               = "active"
	RegistrationDeactivated          = "deactivated"
)

// Global user roles.
const (
	RoleTenant          = "tenant"
	RoleLandlord        = "landlord"
	RoleAdmin           = "admin"
	RolePropertyManager = "propertymanager"
	RoleVendor          = "vendor"
)

type User struct {
	gorm.Model
	Email              string `gorm:"uniqueIndex;not null"` // stored lower-case
	PasswordHash       string `gorm:"not null"`
	FirstName          string `gorm:"not null"`
	LastName           string
	Phone              string
	Role               string `gorm:"default:'tenant'"`
	RegistrationStatus string `gorm:"default:'pending_email_verification'"`
	TokenVersion       int    `gorm:"default:1"`
}

// DisplayName synthesizes the legacy single-field name for read DTOs.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsActive reports whether the account may authenticate and act.
func (u *User) IsActive() bool {
	return u.RegistrationStatus == RegistrationActive
}

// ValidUserRole reports whether role is a member of the global role enum.
// The underscored "property_manager" spelling is deliberately not accepted.
func ValidUserRole(role string) bool {
	switch role {
	case RoleTenant, RoleLandlord, RoleAdmin, RolePropertyManager, RoleVendor:
		return true
	}
	return false
}

// ValidRegistrationStatus reports whether s is a known registration status.
func ValidRegistrationStatus(s string) bool {
	switch s {
	case RegistrationPendingInvite, RegistrationPendingAdminApproval,
		RegistrationPendingEmail, RegistrationActive, RegistrationDeactivated:
		return true
	}
	return false
}

// NormalizeEmail case-folds an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
