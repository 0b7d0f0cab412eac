package validation

import (
	"fmt"
	"regexp"
	"time"

	"domus/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail performs a shape check; uniqueness is the store's problem.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ParseDate accepts ISO-8601 date or date-time input.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want ISO-8601", s)
	}
	return t, nil
}

// CheckDueDay validates a payment due day (1..31; clamped to month end at
// generation time).
func CheckDueDay(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("due day must be between 1 and 31, got %d", day)
	}
	return nil
}

// CheckAssociationRoles validates a role set for associations and invites.
// The underscored "property_manager" spelling is rejected outright rather
// than normalized, so clients migrate.
func CheckAssociationRoles(roles []string) error {
	if len(roles) == 0 {
		return fmt.Errorf("at least one role is required")
	}
	for _, role := range roles {
		if role == "property_manager" {
			return fmt.Errorf("unknown role %q, use %q", role, models.AssocRolePropertyManager)
		}
		if !models.ValidAssociationRole(role) {
			return fmt.Errorf("unknown role %q", role)
		}
	}
	return nil
}

// CheckRating validates tenant feedback ratings.
func CheckRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	return nil
}
