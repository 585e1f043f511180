// api/handlers/category_handler.go
package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/category"
	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/inquiry"
	"github.com/loomworks/loom-backend/internal/llm"
	"github.com/loomworks/loom-backend/internal/storage"
)

// CategoryModel is the slice of the model client the category surface needs.
type CategoryModel interface {
	GenerateCategories(ctx context.Context, catalogJSON []byte) ([]llm.CategoryProposal, error)
}

// CategoryHandler serves category listing, model-assisted generation and
// whole-set replacement.
type CategoryHandler struct {
	DB    *sql.DB
	Cfg   *config.Config
	Model CategoryModel
}

// NewCategoryHandler creates a new CategoryHandler with dependencies.
func NewCategoryHandler(db *sql.DB, cfg *config.Config, model CategoryModel) *CategoryHandler {
	return &CategoryHandler{DB: db, Cfg: cfg, Model: model}
}

// ListCategories returns the account's saved categories, newest first.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	categories, err := storage.ListCategories(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GenerateCategories asks the model to group the account's tables into
// categories. Proposals violating the identity invariant are rejected here;
// nothing is persisted either way.
func (h *CategoryHandler) GenerateCategories(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	tables, err := storage.ListTables(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	relations, err := storage.ListRelations(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	catalogJSON, err := json.Marshal(inquiry.FormatSchema(tables, relations))
	if err != nil {
		_ = c.Error(err)
		return
	}

	proposals, err := h.Model.GenerateCategories(c.Request.Context(), catalogJSON)
	if err != nil {
		customLog.Warnf("GenerateCategories: model call failed for user %s: %v", userID, err)
		_ = c.Error(err)
		return
	}

	candidates := make([]domain.Category, 0, len(proposals))
	for _, p := range proposals {
		candidates = append(candidates, domain.Category{Name: p.Name, Tables: p.Tables})
	}
	if err := category.Validate(candidates, tables); err != nil {
		customLog.Warnf("GenerateCategories: model proposal rejected for user %s: %v", userID, err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": proposals})
}

// SaveCategories replaces the account's whole category set. The identity
// invariant is enforced again here so hand-edited sets cannot bypass it; a
// failing set leaves the stored one untouched.
func (h *CategoryHandler) SaveCategories(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.SaveCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("SaveCategories binding error: %v", err)
		_ = c.Error(err)
		return
	}

	candidates := make([]domain.Category, 0, len(req.Categories))
	for _, p := range req.Categories {
		candidates = append(candidates, domain.Category{Name: p.Name, Tables: p.Tables})
	}

	tables, err := storage.ListTables(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := category.Validate(candidates, tables); err != nil {
		customLog.Warnf("SaveCategories: rejected set for user %s: %v", userID, err)
		_ = c.Error(err)
		return
	}

	if err := storage.ReplaceCategories(c.Request.Context(), h.DB, userID, candidates); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("SaveCategories: replaced %d categories for user %s", len(candidates), userID)
	c.JSON(http.StatusOK, gin.H{"message": "Categories saved successfully"})
}
