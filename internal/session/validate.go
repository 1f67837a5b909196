// ABOUTME: Credential validation rules for sign-up and sign-in
// ABOUTME: Each failure names the specific rule that was violated

package session

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// emailPattern accepts local-part@gmail.com with a case-insensitive domain.
var emailPattern = regexp.MustCompile(`(?i)^[^\s@]+@gmail\.com$`)

// ValidationError reports an input that failed a format or length rule before
// reaching storage. Reason names the exact rule.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "must be a valid Gmail address"}
	}
	return nil
}

// validatePassword checks all four password rules and reports the first one
// that fails.
func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 6 {
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return &ValidationError{Field: "password", Reason: "must contain an uppercase letter"}
	}
	if !hasLower {
		return &ValidationError{Field: "password", Reason: "must contain a lowercase letter"}
	}
	if !hasDigit {
		return &ValidationError{Field: "password", Reason: "must contain a digit"}
	}
	return nil
}

func validateUsername(username string) error {
	if utf8.RuneCountInString(username) < 3 {
		return &ValidationError{Field: "username", Reason: "must be at least 3 characters"}
	}
	return nil
}
