package models

import (
	"time"

	"gorm.io/gorm"
)

// Lease statuses.
const (
	LeaseActive         = "active"
	LeaseExpired        = "expired"
	LeasePendingRenewal = "pending_renewal"
	LeaseTerminated     = "terminated"
	LeaseDraft          = "draft"
)

// Lease binds a tenant to a unit for a period. The partial unique index on
// UnitID where status = 'active' is the serialization point for the
// one-active-lease-per-unit invariant: concurrent creates race on the index,
// not on an application-level read.
type Lease struct {
	gorm.Model
	PropertyID      uint `gorm:"not null;index"`
	UnitID          uint `gorm:"not null;index:idx_one_active_lease,unique,where:status = 'active'"`
	TenantID        uint `gorm:"not null;index"`
	StartDate       time.Time
	EndDate         time.Time
	MonthlyRent     float64
	Currency        string `gorm:"default:'USD'"`
	PaymentDueDay   int    `gorm:"default:1"` // 1..31, clamped to month end
	SecurityDeposit float64
	Terms           string
	Status          string `gorm:"default:'draft'"`
	TerminatedAt    *time.Time
}

// ValidLeaseStatus reports whether s is a known lease status.
func ValidLeaseStatus(s string) bool {
	switch s {
	case LeaseActive, LeaseExpired, LeasePendingRenewal, LeaseTerminated, LeaseDraft:
		return true
	}
	return false
}
