// api/handlers/mapping_handler.go
package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/storage"
)

// MappingHandler serves the schema mapping surface: table and column
// annotations, join relations and value mappings.
type MappingHandler struct {
	DB  *sql.DB
	Cfg *config.Config
}

// NewMappingHandler creates a new MappingHandler with dependencies.
func NewMappingHandler(db *sql.DB, cfg *config.Config) *MappingHandler {
	return &MappingHandler{DB: db, Cfg: cfg}
}

// ListTables returns the account's catalog with columns and value mappings.
func (h *MappingHandler) ListTables(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	tables, err := storage.ListTables(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// UpdateMapping edits one table's or one column's annotations. Ownership is
// checked in storage; unowned ids surface as not-found.
func (h *MappingHandler) UpdateMapping(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.MappingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("UpdateMapping binding error: %v", err)
		_ = c.Error(err)
		return
	}

	var err error
	switch req.Type {
	case "table":
		err = storage.UpdateTableDescription(c.Request.Context(), h.DB, userID, req.ID, req.Description)
	case "column":
		err = storage.UpdateColumn(c.Request.Context(), h.DB, userID, req.ID, req.Description, req.IsUserID)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("UpdateMapping: user %s updated %s %d", userID, req.Type, req.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Mapping updated successfully"})
}

// CreateRelation records a join edge between two of the account's tables.
// The engine later walks edges in both directions, so one declaration per
// pair is enough.
func (h *MappingHandler) CreateRelation(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.RelationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("CreateRelation binding error: %v", err)
		_ = c.Error(err)
		return
	}

	tables, err := storage.ListTablesByName(c.Request.Context(), h.DB, userID, []string{req.FromTable, req.ToTable})
	if err != nil {
		_ = c.Error(err)
		return
	}
	found := make(map[string]bool, len(tables))
	for _, t := range tables {
		found[t.Name] = true
	}
	if !found[req.FromTable] || !found[req.ToTable] {
		_ = c.Error(storage.ErrTableNotFound)
		return
	}

	rel := domain.Relation{
		FromTable:  req.FromTable,
		FromColumn: req.FromColumn,
		ToTable:    req.ToTable,
		ToColumn:   req.ToColumn,
	}
	id, err := storage.CreateRelation(c.Request.Context(), h.DB, userID, rel)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Relation saved successfully"})
}

// ListRelations returns the account's join edges, newest first.
func (h *MappingHandler) ListRelations(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	relations, err := storage.ListRelations(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relations": relations})
}

// CreateValueMapping attaches a value meaning to one of the account's columns.
func (h *MappingHandler) CreateValueMapping(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.ValueMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("CreateValueMapping binding error: %v", err)
		_ = c.Error(err)
		return
	}

	id, err := storage.CreateValueMapping(c.Request.Context(), h.DB, userID, req.ColumnID, req.Value, req.Meaning)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Value mapping saved successfully"})
}
