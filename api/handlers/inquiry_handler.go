// api/handlers/inquiry_handler.go
package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/inquiry"
	"github.com/loomworks/loom-backend/internal/storage"
)

// InquiryHandler serves inquiry preparation and run history.
type InquiryHandler struct {
	DB      *sql.DB
	Cfg     *config.Config
	Service *inquiry.Service
}

// NewInquiryHandler creates a new InquiryHandler with dependencies.
func NewInquiryHandler(db *sql.DB, cfg *config.Config, service *inquiry.Service) *InquiryHandler {
	return &InquiryHandler{DB: db, Cfg: cfg, Service: service}
}

// Prepare runs one inquiry preparation: collect the target user's records
// across the selected categories, summarize them, and decompose the inquiry.
func (h *InquiryHandler) Prepare(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.PrepareInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Prepare binding error: %v", err)
		_ = c.Error(err)
		return
	}

	result, err := h.Service.Prepare(c.Request.Context(), userID, req.UserID, req.InquiryContent, req.CategoryIDs)
	if err != nil {
		customLog.Warnf("Prepare: run failed for user %s: %v", userID, err)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// History returns the account's past inquiry runs, newest first.
func (h *InquiryHandler) History(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	runs, err := storage.ListInquiryRuns(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inquiries": runs})
}
