package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Template statuses.
const (
	TemplateActive    = "active"
	TemplatePaused    = "paused"
	TemplateCompleted = "completed"
	TemplateCanceled  = "canceled"
)

// Recurrence frequency types.
const (
	FreqDaily      = "daily"
	FreqWeekly     = "weekly"
	FreqBiWeekly   = "bi_weekly"
	FreqMonthly    = "monthly"
	FreqQuarterly  = "quarterly"
	FreqYearly     = "yearly"
	FreqCustomDays = "custom_days"
)

// IntList is a list of small integers stored as a comma-joined text column
// (weekday sets, day-of-month sets, custom day cadences).
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	parts := make([]string, len(l))
	for i, n := range l {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ","), nil
}

func (l *IntList) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into IntList", value)
	}
	if s == "" {
		*l = nil
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(IntList, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("bad IntList element %q: %w", p, err)
		}
		out = append(out, n)
	}
	*l = out
	return nil
}

// Contains reports whether the list includes n.
func (l IntList) Contains(n int) bool {
	for _, have := range l {
		if have == n {
			return true
		}
	}
	return false
}

// Frequency describes how a recurring template advances. EndDate and
// Occurrences are mutually exclusive bounds.
type Frequency struct {
	Type        string     `json:"type"`
	Interval    int        `json:"interval"` // >= 1
	DaysOfWeek  IntList    `gorm:"type:text" json:"daysOfWeek,omitempty"`  // 0..6, Sunday = 0
	DaysOfMonth IntList    `gorm:"type:text" json:"daysOfMonth,omitempty"` // 1..31
	MonthOfYear int        `json:"monthOfYear,omitempty"`                  // 1..12
	CustomDays  IntList    `gorm:"type:text" json:"customDays,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Occurrences *int       `json:"occurrences,omitempty"`
}

// Validate checks internal consistency of a frequency definition.
func (f *Frequency) Validate() error {
	switch f.Type {
	case FreqDaily, FreqWeekly, FreqBiWeekly, FreqMonthly, FreqQuarterly, FreqYearly:
	case FreqCustomDays:
		if len(f.CustomDays) == 0 {
			return fmt.Errorf("custom_days frequency requires customDays")
		}
		for _, d := range f.CustomDays {
			if d < 1 {
				return fmt.Errorf("customDays entries must be positive, got %d", d)
			}
		}
	default:
		return fmt.Errorf("unknown frequency type %q", f.Type)
	}
	if f.Interval < 1 {
		return fmt.Errorf("interval must be >= 1, got %d", f.Interval)
	}
	for _, d := range f.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("dayOfWeek out of range: %d", d)
		}
	}
	for _, d := range f.DaysOfMonth {
		if d < 1 || d > 31 {
			return fmt.Errorf("dayOfMonth out of range: %d", d)
		}
	}
	if f.MonthOfYear < 0 || f.MonthOfYear > 12 {
		return fmt.Errorf("monthOfYear out of range: %d", f.MonthOfYear)
	}
	if f.EndDate != nil && f.Occurrences != nil {
		return fmt.Errorf("endDate and occurrences are mutually exclusive")
	}
	if f.Occurrences != nil && *f.Occurrences < 1 {
		return fmt.Errorf("occurrences must be >= 1")
	}
	return nil
}

// ScheduledMaintenance is a template that emits maintenance requests over
// time. Paused, canceled and completed templates never generate.
type ScheduledMaintenance struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Category    string
	PropertyID  uint `gorm:"not null;index"`
	UnitID      *uint
	CreatedByID uint `gorm:"not null"`

	ScheduledDate time.Time
	Recurring     bool
	Frequency     Frequency `gorm:"embedded;embeddedPrefix:frequency_"`

	Status string `gorm:"default:'active'"`

	AssignedToID   *uint
	AssignedToKind string

	OccurrenceCount        int `gorm:"default:0"`
	LastGeneratedRequestID *uint
	NextDueDate            time.Time `gorm:"index"`
	LastExecutedAt         *time.Time

	PublicTokenHash     string `gorm:"index"`
	PublicLinkExpiresAt *time.Time
}

// ValidTemplateStatus reports whether s is a known template status.
func ValidTemplateStatus(s string) bool {
	switch s {
	case TemplateActive, TemplatePaused, TemplateCompleted, TemplateCanceled:
		return true
	}
	return false
}

// Assignee returns the sum-typed assignee, or ok=false when unassigned.
func (t *ScheduledMaintenance) Assignee() (Assignee, bool) {
	if t.AssignedToID == nil || t.AssignedToKind == "" {
		return Assignee{}, false
	}
	return Assignee{ID: *t.AssignedToID, Kind: t.AssignedToKind}, true
}

// SetAssignee stores the assignee pair on the row.
func (t *ScheduledMaintenance) SetAssignee(a Assignee) {
	id := a.ID
	t.AssignedToID = &id
	t.AssignedToKind = a.Kind
}
