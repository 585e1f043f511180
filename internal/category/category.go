// internal/category/category.go
package category

import (
	"errors"
	"fmt"

	"github.com/loomworks/loom-backend/internal/domain"
)

// Specific errors for category validation
var (
	ErrNoIdentityTable = errors.New("category does not contain any table with a user ID column")
	ErrUnknownTable    = errors.New("category references a table that is not registered")
)

// Validate checks the category invariant against the account's catalog:
// every category must contain at least one table that has a column flagged
// as a user identifier, and may only reference registered tables.
// Violating sets are rejected before anything is persisted.
func Validate(categories []domain.Category, tables []domain.Table) error {
	hasIdentity := make(map[string]bool, len(tables))
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
		for _, col := range t.Columns {
			if col.IsUserID {
				hasIdentity[t.Name] = true
				break
			}
		}
	}

	for _, cat := range categories {
		identified := false
		for _, name := range cat.Tables {
			if !known[name] {
				return fmt.Errorf("%w: category %q references %q", ErrUnknownTable, cat.Name, name)
			}
			if hasIdentity[name] {
				identified = true
			}
		}
		if !identified {
			return fmt.Errorf("%w: category %q", ErrNoIdentityTable, cat.Name)
		}
	}
	return nil
}
