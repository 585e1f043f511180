// internal/core/validation.go
package core

import (
	"regexp"
	"strings"
)

// Regular expression for valid table/column identifiers (alphanumeric + underscore)
var nameValidationRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsValidIdentifier checks if a string is a valid identifier (e.g., table_name, column_name).
// Applies basic format and length checks.
func IsValidIdentifier(name string) bool {
	return nameValidationRegex.MatchString(name) && len(name) > 0 && len(name) <= 64
}

// SanitizeSubdomain strips path and dot characters from a connector
// subdomain before it is interpolated into a hostname.
func SanitizeSubdomain(subdomain string) string {
	return strings.NewReplacer("/", "", ".", "", "\\", "").Replace(subdomain)
}
