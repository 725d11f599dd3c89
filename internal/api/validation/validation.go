package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// EmailRegex validates email format
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// IdentifierRegex validates the public 8-character organization key
	identifierRegex = regexp.MustCompile(`^[A-Z0-9]{8}$`)

	// UUIDRegex validates UUID format
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// IsValidEmail checks if the string is a valid email format
func IsValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// IsValidOrganizationID checks the shape of a public organization
// identifier (case-insensitive; identifiers are normalized to uppercase).
func IsValidOrganizationID(id string) bool {
	return identifierRegex.MatchString(strings.ToUpper(strings.TrimSpace(id)))
}

// IsValidUUID checks if the string is a valid UUID format
func IsValidUUID(id string) bool {
	return uuidRegex.MatchString(id)
}

// ValidatePassword checks the password policy. Returns an empty string when
// the password is acceptable.
func ValidatePassword(password string) string {
	if len(password) < 6 {
		return "Password must be at least 6 characters"
	}
	if len(password) > 128 {
		return "Password must be at most 128 characters"
	}
	return ""
}

// SanitizeString removes null bytes and control characters except newlines
// and tabs.
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	var result strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
