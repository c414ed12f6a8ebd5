package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128

	passwordSpecials = `!@#$%^&*(),.?":{}|<>`
)

const (
	MsgPasswordLength  = "Password must be longer than 8 and shorter than 128 characters"
	MsgPasswordUpper   = "Password must contain at least one uppercase letter"
	MsgPasswordLower   = "Password must contain at least one lowercase letter"
	MsgPasswordSpecial = `Password must contain at least one special character (!@#$%^&*(),.?":{}|<>)`
)

// ValidatePassword evaluates every password rule and returns the messages of
// all rules that failed. An empty result means the password is acceptable.
func ValidatePassword(password string) []string {
	var violations []string

	if n := utf8.RuneCountInString(password); n <= minPasswordLength || n >= maxPasswordLength {
		violations = append(violations, MsgPasswordLength)
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		violations = append(violations, MsgPasswordUpper)
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		violations = append(violations, MsgPasswordLower)
	}
	if !strings.ContainsAny(password, passwordSpecials) {
		violations = append(violations, MsgPasswordSpecial)
	}

	return violations
}
