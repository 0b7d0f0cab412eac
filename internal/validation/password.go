package validation

import (
	"errors"
	"regexp"
	"unicode"
)

var specialChars = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)

// HasSpecialChar checks if a string contains at least one special character.
func HasSpecialChar(s string) bool {
	return specialChars.MatchString(s)
}

// CheckPassword enforces the complexity policy applied at registration,
// invite acceptance and password change.
func CheckPassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasDigit {
		return errors.New("password must contain an upper-case letter and a digit")
	}
	return nil
}
