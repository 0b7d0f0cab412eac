package models

import (
	"time"

	"gorm.io/gorm"
)

// Invite statuses.
const (
	InvitePending   = "pending"
	InviteAccepted  = "accepted"
	InviteExpired   = "expired"
	InviteCancelled = "cancelled"
	InviteDeclined  = "declined"
)

// MaxInviteResends caps how often a pending invite may be re-sent.
const MaxInviteResends = 5

// Invite is a hashed-token invitation into a property. Only the SHA-256 of
// the token is persisted; the raw token is shown once at creation.
type Invite struct {
	gorm.Model
	Email         string   `gorm:"not null;index"`
	Roles         RoleList `gorm:"type:text;not null"`
	PropertyID    *uint
	UnitID        *uint
	TokenHash     string `gorm:"uniqueIndex;not null"`
	GeneratedByID uint   `gorm:"not null"`
	Status        string `gorm:"default:'pending'"`
	ExpiresAt     time.Time `gorm:"index"`
	AcceptedByID  *uint
	AcceptedAt    *time.Time
	RevokedByID   *uint
	RevokedAt     *time.Time
	DeclineReason string
	ResendCount   int `gorm:"default:0"`
	LastResendAt  *time.Time
	AttemptCount  int `gorm:"default:0"`
}

// Pending reports whether the invite can still be verified.
func (i *Invite) Pending(now time.Time) bool {
	return i.Status == InvitePending && now.Before(i.ExpiresAt)
}

// ValidInviteStatus reports whether s is a known invite status.
func ValidInviteStatus(s string) bool {
	switch s {
	case InvitePending, InviteAccepted, InviteExpired, InviteCancelled, InviteDeclined:
		return true
	}
	return false
}
