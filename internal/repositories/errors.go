package repositories

import "errors"

// Sentinel errors returned by the repository layer. Services translate these
// into caller-facing error kinds; handlers map those onto HTTP statuses.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDuplicateEmail   = errors.New("email already in use")
	ErrAssocNotFound    = errors.New("association not found")
	ErrDuplicateAssoc   = errors.New("active association already exists")
	ErrPropertyNotFound = errors.New("property not found")
	ErrDuplicateName    = errors.New("name already in use")
	ErrUnitNotFound     = errors.New("unit not found")
	ErrLeaseNotFound    = errors.New("lease not found")
	ErrActiveLeaseExists = errors.New("unit already has an active lease")
	ErrScheduleNotFound = errors.New("rent schedule not found")
	ErrRentNotFound     = errors.New("rent record not found")
	ErrRequestNotFound  = errors.New("maintenance request not found")
	ErrTemplateNotFound = errors.New("scheduled maintenance not found")
	ErrVendorNotFound   = errors.New("vendor not found")
	ErrInviteNotFound   = errors.New("invite not found")
	ErrDatabaseOperation = errors.New("database operation failed")
)
