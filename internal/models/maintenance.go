package models

import (
	"time"

	"gorm.io/gorm"
)

// Maintenance request statuses (see services/maintenance for the transition
// table and its guards).
const (
	RequestNew        = "new"
	RequestTriaged    = "triaged"
	RequestAssigned   = "assigned"
	RequestInProgress = "in_progress"
	RequestCompleted  = "completed"
	RequestVerified   = "verified"
	RequestOnHold     = "on_hold"
	RequestReopened   = "reopened"
	RequestCanceled   = "canceled"
	RequestArchived   = "archived"
)

// Request priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Assignee kinds.
const (
	AssigneeUser   = "User"
	AssigneeVendor = "Vendor"
)

// Assignee identifies who a request is assigned to. The kind tag derives
// from the constructor, never from caller input.
type Assignee struct {
	ID   uint
	Kind string
}

// UserAssignee builds an assignee referencing a user.
func UserAssignee(id uint) Assignee { return Assignee{ID: id, Kind: AssigneeUser} }

// VendorAssignee builds an assignee referencing a vendor.
func VendorAssignee(id uint) Assignee { return Assignee{ID: id, Kind: AssigneeVendor} }

type MaintenanceRequest struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Category    string
	Priority    string `gorm:"default:'medium'"`
	PropertyID  uint   `gorm:"not null;index"`
	UnitID      *uint
	CreatedByID uint `gorm:"not null"`

	AssignedToID   *uint
	AssignedToKind string // AssigneeUser | AssigneeVendor

	Status     string `gorm:"default:'new'"`
	ResolvedAt *time.Time

	FeedbackRating  *int // 1..5
	FeedbackComment string

	PublicTokenHash     string `gorm:"index"`
	PublicLinkExpiresAt *time.Time

	// Set when the request was materialized from a template. The pair
	// (template, scheduled_for) is unique so concurrent generation runs
	// cannot double-emit.
	GeneratedFromTemplateID *uint      `gorm:"index:idx_template_fire,unique,where:generated_from_template_id IS NOT NULL"`
	ScheduledFor            *time.Time `gorm:"index:idx_template_fire,unique,where:generated_from_template_id IS NOT NULL"`

	MediaRefs string
}

// Assignee returns the sum-typed assignee, or ok=false when unassigned.
func (m *MaintenanceRequest) Assignee() (Assignee, bool) {
	if m.AssignedToID == nil || m.AssignedToKind == "" {
		return Assignee{}, false
	}
	return Assignee{ID: *m.AssignedToID, Kind: m.AssignedToKind}, true
}

// SetAssignee stores the assignee pair on the row.
func (m *MaintenanceRequest) SetAssignee(a Assignee) {
	id := a.ID
	m.AssignedToID = &id
	m.AssignedToKind = a.Kind
}

// ClearAssignee removes any assignment.
func (m *MaintenanceRequest) ClearAssignee() {
	m.AssignedToID = nil
	m.AssignedToKind = ""
}

// ValidRequestStatus reports whether s is a known request status.
func ValidRequestStatus(s string) bool {
	switch s {
	case RequestNew, RequestTriaged, RequestAssigned, RequestInProgress,
		RequestCompleted, RequestVerified, RequestOnHold, RequestReopened,
		RequestCanceled, RequestArchived:
		return true
	}
	return false
}

// ValidPriority reports whether s is a known priority.
func ValidPriority(s string) bool {
	switch s {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
