package models

import (
	"time"
)

// Audit actions.
const (
	ActionRead         = "READ" // recorded only for denied reads
	ActionCreate       = "CREATE"
	ActionUpdate       = "UPDATE"
	ActionDelete       = "DELETE"
	ActionLogin        = "LOGIN"
	ActionStatusChange = "STATUS_CHANGE"
	ActionAssign       = "ASSIGN"
	ActionGenerate     = "GENERATE"
	ActionInviteSend   = "INVITE_SEND"
	ActionInviteAccept = "INVITE_ACCEPT"
	ActionPayment      = "PAYMENT"
	ActionPublicAccess = "PUBLIC_ACCESS"
)

// Resource kinds referenced by audit entries, comments and authorization
// targets.
const (
	ResourceUser         = "User"
	ResourceAssociation  = "PropertyUserAssociation"
	ResourceProperty     = "Property"
	ResourceUnit         = "Unit"
	ResourceLease        = "Lease"
	ResourceRentSchedule = "RentSchedule"
	ResourceRentRecord   = "RentRecord"
	ResourceRequest      = "MaintenanceRequest"
	ResourceTemplate     = "ScheduledMaintenance"
	ResourceVendor       = "Vendor"
	ResourceInvite       = "Invite"
	ResourceComment      = "Comment"
)

// Audit entry outcomes.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEntry is append-only: no update or delete path exists anywhere in the
// codebase, and the log outlives hard-deleted entities.
type AuditEntry struct {
	ID           uint   `gorm:"primarykey"`
	ActorID      *uint  `gorm:"index"`
	ActorEmail   string // captured name+phone pair for public-token actors
	Action       string `gorm:"not null;index"`
	ResourceKind string `gorm:"not null;index:idx_audit_resource"`
	ResourceID   *uint  `gorm:"index:idx_audit_resource"`
	Description  string
	Before       string // JSON snapshot, empty for creates
	After        string // JSON snapshot, empty for deletes
	Status       string `gorm:"not null;default:'success';index"`
	IP           string
	CreatedAt    time.Time `gorm:"index"`
}
