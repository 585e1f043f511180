// internal/inquiry/formatter_test.go
package inquiry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loomworks/loom-backend/internal/domain"
)

func TestFormatSchema(t *testing.T) {
	assert := assert.New(t)

	tables := []domain.Table{
		{
			Name:        "users",
			Description: "registered end users",
			Columns: []domain.Column{
				{Name: "id", Description: "primary key", IsUserID: true},
				{Name: "status", ValueMappings: []domain.ValueMapping{
					{Value: "1", Meaning: "active"},
					{Value: "2", Meaning: "suspended"},
				}},
			},
		},
		{
			Name:    "orders",
			Columns: []domain.Column{{Name: "id"}, {Name: "user_id"}},
		},
	}
	relations := []domain.Relation{
		{FromTable: "users", FromColumn: "id", ToTable: "orders", ToColumn: "user_id"},
	}

	schema := FormatSchema(tables, relations)

	assert.Len(schema.Tables, 2)
	assert.Equal("registered end users", schema.Tables["users"].Description)
	assert.True(schema.Tables["users"].Columns["id"].IsUserID)
	assert.Equal("active", schema.Tables["users"].Columns["status"].ValueMappings["1"])
	assert.Len(schema.Relations, 1)
	assert.Equal("user_id", schema.Relations[0].ToColumn)
}

func TestFormatSchemaOmitsEmptyFields(t *testing.T) {
	tables := []domain.Table{
		{Name: "orders", Columns: []domain.Column{{Name: "id", Description: "pk"}}},
	}

	out, err := json.Marshal(FormatSchema(tables, nil))
	assert.NoError(t, err)

	// Non-identity columns carry neither an isUserId nor a valueMappings key.
	assert.NotContains(t, string(out), "isUserId")
	assert.NotContains(t, string(out), "valueMappings")
	assert.Contains(t, string(out), `"relations":[]`)
}

func TestFormatSchemaEmptyCatalog(t *testing.T) {
	schema := FormatSchema(nil, nil)
	assert.Empty(t, schema.Tables)
	assert.Empty(t, schema.Relations)
}
