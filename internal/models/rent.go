package models

import (
	"time"

	"gorm.io/gorm"
)

// Billing cadences for a rent schedule.
const (
	BillingWeekly     = "weekly"
	BillingBiWeekly   = "bi_weekly"
	BillingMonthly    = "monthly"
	BillingQuarterly  = "quarterly"
	BillingBiAnnually = "bi_annually"
	BillingAnnually   = "annually"
)

// RentSchedule derives recurring rent obligations from a lease. Active
// schedules of the same lease may not overlap in their effective window.
type RentSchedule struct {
	gorm.Model
	LeaseID            uint `gorm:"not null;index"`
	TenantID           uint `gorm:"not null"`
	PropertyID         uint `gorm:"not null"`
	UnitID             uint `gorm:"not null"`
	Amount             float64
	Currency           string `gorm:"default:'USD'"`
	DueDateDay         int    `gorm:"default:1"`
	BillingPeriod      string `gorm:"default:'monthly'"`
	EffectiveStartDate time.Time
	EffectiveEndDate   *time.Time
	AutoGenerate       bool `gorm:"default:true"`
	LastGeneratedDate  *time.Time
	Active             bool `gorm:"default:true"`
}

// Rent record statuses.
const (
	RentDue           = "due"
	RentPaid          = "paid"
	RentOverdue       = "overdue"
	RentPartiallyPaid = "partially_paid"
	RentWaived        = "waived"
)

// RentRecord is one materialized rent obligation. (LeaseID, BillingPeriod)
// is unique so generation is idempotent no matter how often it runs.
type RentRecord struct {
	gorm.Model
	LeaseID          uint   `gorm:"not null;index:idx_lease_period,unique"`
	BillingPeriod    string `gorm:"not null;index:idx_lease_period,unique"` // "YYYY-MM"
	AmountDue        float64
	DueDate          time.Time
	Status           string `gorm:"default:'due'"`
	AmountPaid       float64
	PaymentDate      *time.Time
	PaymentMethod    string
	TransactionID    string
	ProofMediaRef    string
	ReminderSent     bool
	LastReminderDate *time.Time
}

// ValidBillingCadence reports whether s is a known schedule cadence.
func ValidBillingCadence(s string) bool {
	switch s {
	case BillingWeekly, BillingBiWeekly, BillingMonthly, BillingQuarterly,
		BillingBiAnnually, BillingAnnually:
		return true
	}
	return false
}

// ValidRentStatus reports whether s is a known rent record status.
func ValidRentStatus(s string) bool {
	switch s {
	case RentDue, RentPaid, RentOverdue, RentPartiallyPaid, RentWaived:
		return true
	}
	return false
}

// BillingPeriodOf tags the month of t as "YYYY-MM".
func BillingPeriodOf(t time.Time) string {
	return t.Format("2006-01")
}
