// api/models/catalog_models.go
package models

// --- Connection Registration ---

// ConnectRequest registers an external API connection for introspection.
// IdentifierColumns overrides which column names are auto-flagged as user
// identifiers at discovery time; the default is ["id"].
type ConnectRequest struct {
	APIURL            string   `json:"apiUrl" binding:"required,url"`
	AuthToken         string   `json:"authToken" binding:"required"`
	IdentifierColumns []string `json:"identifierColumns,omitempty"`
}

// --- Mapping Surface ---

// MappingUpdateRequest edits a table's or column's annotations.
// Type is "table" or "column"; IsUserID only applies to columns.
type MappingUpdateRequest struct {
	Type        string `json:"type" binding:"required,oneof=table column"`
	ID          int64  `json:"id" binding:"required"`
	Description string `json:"description"`
	IsUserID    bool   `json:"isUserId"`
}

// RelationRequest declares a directed join edge between two tables.
type RelationRequest struct {
	FromTable  string `json:"fromTable" binding:"required"`
	FromColumn string `json:"fromColumn" binding:"required"`
	ToTable    string `json:"toTable" binding:"required"`
	ToColumn   string `json:"toColumn" binding:"required"`
}

// ValueMappingRequest attaches a value → meaning pair to a column.
type ValueMappingRequest struct {
	ColumnID int64  `json:"columnId" binding:"required"`
	Value    string `json:"value" binding:"required"`
	Meaning  string `json:"meaning" binding:"required"`
}
