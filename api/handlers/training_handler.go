// api/handlers/training_handler.go
package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/storage"
)

// FineTuneModel is the slice of the model client the training surface needs.
type FineTuneModel interface {
	SubmitFineTune(ctx context.Context, filePath, modelName string) (string, error)
}

// TrainingHandler serves training file uploads and fine-tuning jobs.
type TrainingHandler struct {
	DB    *sql.DB
	Cfg   *config.Config
	Model FineTuneModel
}

// NewTrainingHandler creates a new TrainingHandler with dependencies.
func NewTrainingHandler(db *sql.DB, cfg *config.Config, model FineTuneModel) *TrainingHandler {
	return &TrainingHandler{DB: db, Cfg: cfg, Model: model}
}

// Upload stores one CSV training file. A registered service account is a
// precondition; accounts without one get a 400 before anything is written.
func (h *TrainingHandler) Upload(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.TrainingUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Training upload binding error: %v", err)
		_ = c.Error(err)
		return
	}

	if _, _, err := storage.FindServiceAccount(c.Request.Context(), h.DB, userID); err != nil {
		_ = c.Error(err)
		return
	}

	dir := filepath.Join(h.Cfg.BlobDir, userID, "training")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		_ = c.Error(err)
		return
	}
	path := filepath.Join(dir, uuid.New().String()+".csv")
	if err := os.WriteFile(path, []byte(req.Content), 0o640); err != nil {
		_ = c.Error(err)
		return
	}

	id, err := storage.CreateTrainingData(c.Request.Context(), h.DB, domain.TrainingData{
		UserID:   userID,
		FileName: req.FileName,
		FilePath: path,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Training: saved file %d (%s) for user %s", id, req.FileName, userID)
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Training data uploaded successfully"})
}

// List returns the account's training files, newest first.
func (h *TrainingHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	items, err := storage.ListTrainingData(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trainingData": items})
}

// Delete removes one training file. The blob may already be gone; a missing
// file on disk does not block removing the row.
func (h *TrainingHandler) Delete(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(storage.ErrTrainingDataNotFound)
		return
	}

	td, err := storage.FindTrainingData(c.Request.Context(), h.DB, userID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if td.FilePath != "" {
		if err := os.Remove(td.FilePath); err != nil && !os.IsNotExist(err) {
			customLog.Warnf("Training: failed removing blob %s: %v", td.FilePath, err)
		}
	}
	if err := storage.DeleteTrainingData(c.Request.Context(), h.DB, userID, id); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Training data deleted successfully"})
}

// CreateModel submits a fine-tuning job over the named training files. All
// referenced files must belong to the account; their contents are combined
// into one submission file.
func (h *TrainingHandler) CreateModel(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.TrainingModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Training model binding error: %v", err)
		_ = c.Error(err)
		return
	}

	if _, _, err := storage.FindServiceAccount(c.Request.Context(), h.DB, userID); err != nil {
		_ = c.Error(err)
		return
	}

	combined := make([]byte, 0)
	for _, id := range req.TrainingDataIDs {
		td, err := storage.FindTrainingData(c.Request.Context(), h.DB, userID, id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		data, err := os.ReadFile(td.FilePath)
		if err != nil {
			customLog.Warnf("Training: failed reading blob %s: %v", td.FilePath, err)
			_ = c.Error(storage.ErrTrainingDataNotFound)
			return
		}
		if len(combined) > 0 && combined[len(combined)-1] != '\n' {
			combined = append(combined, '\n')
		}
		combined = append(combined, data...)
	}

	dir := filepath.Join(h.Cfg.BlobDir, userID, "training")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		_ = c.Error(err)
		return
	}
	submission := filepath.Join(dir, uuid.New().String()+".csv")
	if err := os.WriteFile(submission, combined, 0o640); err != nil {
		_ = c.Error(err)
		return
	}

	jobID, err := h.Model.SubmitFineTune(c.Request.Context(), submission, req.ModelName)
	if err != nil {
		customLog.Warnf("Training: fine-tune submission failed for user %s: %v", userID, err)
		_ = c.Error(err)
		return
	}

	id, err := storage.CreateTrainingModel(c.Request.Context(), h.DB, domain.TrainingModel{
		UserID:    userID,
		ModelName: req.ModelName,
		JobID:     jobID,
		Status:    "TRAINING",
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Training: submitted job %s as model %d for user %s", jobID, id, userID)
	c.JSON(http.StatusCreated, gin.H{"id": id, "jobId": jobID, "status": "TRAINING"})
}

// ListModels returns the account's fine-tuning jobs, newest first.
func (h *TrainingHandler) ListModels(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	items, err := storage.ListTrainingModels(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": items})
}
