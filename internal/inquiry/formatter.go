// internal/inquiry/formatter.go
package inquiry

import (
	"github.com/loomworks/loom-backend/internal/domain"
)

// Schema is the compact catalog projection handed to the language model.
type Schema struct {
	Tables    map[string]TableSchema `json:"tables"`
	Relations []RelationSchema       `json:"relations"`
}

// TableSchema describes one table for the model.
type TableSchema struct {
	Description string                  `json:"description"`
	Columns     map[string]ColumnSchema `json:"columns"`
}

// ColumnSchema describes one column. IsUserID is omitted entirely when
// false, ValueMappings when empty.
type ColumnSchema struct {
	Description   string            `json:"description"`
	IsUserID      bool              `json:"isUserId,omitempty"`
	ValueMappings map[string]string `json:"valueMappings,omitempty"`
}

// RelationSchema is one declared join edge.
type RelationSchema struct {
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

// FormatSchema projects catalog metadata into the compact descriptive
// structure sent to the model. Pure function of its inputs.
func FormatSchema(tables []domain.Table, relations []domain.Relation) Schema {
	schema := Schema{
		Tables:    make(map[string]TableSchema, len(tables)),
		Relations: make([]RelationSchema, 0, len(relations)),
	}

	for _, rel := range relations {
		schema.Relations = append(schema.Relations, RelationSchema{
			FromTable:  rel.FromTable,
			FromColumn: rel.FromColumn,
			ToTable:    rel.ToTable,
			ToColumn:   rel.ToColumn,
		})
	}

	for _, table := range tables {
		ts := TableSchema{
			Description: table.Description,
			Columns:     make(map[string]ColumnSchema, len(table.Columns)),
		}
		for _, col := range table.Columns {
			cs := ColumnSchema{
				Description: col.Description,
				IsUserID:    col.IsUserID,
			}
			if len(col.ValueMappings) > 0 {
				cs.ValueMappings = make(map[string]string, len(col.ValueMappings))
				for _, vm := range col.ValueMappings {
					cs.ValueMappings[vm.Value] = vm.Meaning
				}
			}
			ts.Columns[col.Name] = cs
		}
		schema.Tables[table.Name] = ts
	}

	return schema
}
