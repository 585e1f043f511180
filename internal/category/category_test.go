// internal/category/category_test.go
package category

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom-backend/internal/domain"
)

func catalogFixture() []domain.Table {
	return []domain.Table{
		{Name: "users", Columns: []domain.Column{{Name: "id", IsUserID: true}}},
		{Name: "orders", Columns: []domain.Column{{Name: "id"}, {Name: "user_id"}}},
		{Name: "products", Columns: []domain.Column{{Name: "id"}}},
	}
}

func TestValidateAcceptsIdentifiedCategory(t *testing.T) {
	categories := []domain.Category{
		{Name: "Commerce", Tables: []string{"users", "orders"}},
	}
	assert.NoError(t, Validate(categories, catalogFixture()))
}

func TestValidateRejectsCategoryWithoutIdentityTable(t *testing.T) {
	categories := []domain.Category{
		{Name: "Commerce", Tables: []string{"users", "orders"}},
		{Name: "Catalog", Tables: []string{"orders", "products"}},
	}
	err := Validate(categories, catalogFixture())
	assert.ErrorIs(t, err, ErrNoIdentityTable)
	assert.Contains(t, err.Error(), "Catalog")
}

func TestValidateRejectsUnknownTable(t *testing.T) {
	categories := []domain.Category{
		{Name: "Commerce", Tables: []string{"users", "payments"}},
	}
	err := Validate(categories, catalogFixture())
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.Contains(t, err.Error(), "payments")
}

func TestValidateEmptySetPasses(t *testing.T) {
	assert.NoError(t, Validate(nil, catalogFixture()))
}
