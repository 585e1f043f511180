// internal/core/validation_test.go
package core

import (
	"strings"
	"testing"
)

func TestIsValidIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    bool
		comment string
	}{
		{"valid simple", "my_table", true, ""},
		{"valid with numbers", "table_123", true, ""},
		{"valid uppercase", "MY_TABLE", true, ""},
		{"valid underscore start", "_table", true, ""},
		{"valid underscore end", "table_", true, ""},
		{"valid number start", "123table", true, ""},
		{"valid short", "a", true, ""},
		{"valid long (64 chars)", strings.Repeat("a", 64), true, ""},
		{"invalid empty", "", false, "empty string"},
		{"invalid space", "my table", false, "contains space"},
		{"invalid hyphen", "my-table", false, "contains hyphen"},
		{"invalid special char", "table$", false, "contains dollar sign"},
		{"invalid path separator", "table/name", false, "contains path separator"},
		{"invalid too long", strings.Repeat("a", 65), false, "exceeds 64 chars"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsValidIdentifier(tc.input)
			if got != tc.want {
				t.Errorf("IsValidIdentifier(%q) = %v; want %v. %s", tc.input, got, tc.want, tc.comment)
			}
		})
	}
}

func TestSanitizeSubdomain(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"clean passthrough", "acme-support", "acme-support"},
		{"strips dots", "evil.example.com", "evilexamplecom"},
		{"strips slashes", "acme/path", "acmepath"},
		{"strips backslashes", `acme\path`, "acmepath"},
		{"strips all at once", "a./\\b", "ab"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSubdomain(tc.input); got != tc.want {
				t.Errorf("SanitizeSubdomain(%q) = %q; want %q", tc.input, got, tc.want)
			}
		})
	}
}
