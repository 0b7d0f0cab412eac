package repositories

import "gorm.io/gorm"

// MaxPageSize caps the limit query parameter.
const MaxPageSize = 100

// ListOptions carries pagination and ordering through to list queries.
type ListOptions struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// sortableColumns whitelists sortBy values; anything else falls back to
// created_at so user input never reaches the ORDER BY clause verbatim.
var sortableColumns = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"name":          true,
	"email":         true,
	"status":        true,
	"due_date":      true,
	"next_due_date": true,
	"start_date":    true,
	"end_date":      true,
	"expires_at":    true,
	"priority":      true,
}

// Normalize clamps page/limit and defaults ordering to newest-first.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 10
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if !sortableColumns[o.SortBy] {
		o.SortBy = "created_at"
	}
	if o.SortOrder != "asc" {
		o.SortOrder = "desc"
	}
	return o
}

// Offset returns the row offset for the normalized page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// Apply attaches ordering, offset and limit to a query.
func (o ListOptions) Apply(db *gorm.DB) *gorm.DB {
	o = o.Normalize()
	return db.Order(o.SortBy + " " + o.SortOrder).Offset(o.Offset()).Limit(o.Limit)
}
