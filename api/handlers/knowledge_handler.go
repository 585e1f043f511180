// api/handlers/knowledge_handler.go
package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/domain"
	"github.com/loomworks/loom-backend/internal/knowledge"
	"github.com/loomworks/loom-backend/internal/storage"
)

// EmbeddingModel is the slice of the model client the knowledge surface needs.
type EmbeddingModel interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeHandler serves knowledge document uploads and listing.
type KnowledgeHandler struct {
	DB        *sql.DB
	Cfg       *config.Config
	Extractor *knowledge.Extractor
	Model     EmbeddingModel
}

// NewKnowledgeHandler creates a new KnowledgeHandler with dependencies.
func NewKnowledgeHandler(db *sql.DB, cfg *config.Config, extractor *knowledge.Extractor, model EmbeddingModel) *KnowledgeHandler {
	return &KnowledgeHandler{DB: db, Cfg: cfg, Extractor: extractor, Model: model}
}

// Upload ingests one knowledge document. PDF content arrives base64-encoded
// and is extracted to text; URLs are fetched and stripped; raw text is taken
// as-is. Extracted text is embedded for retrieval; an embedding failure is
// tolerated and leaves the embedding empty.
func (h *KnowledgeHandler) Upload(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.KnowledgeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Knowledge upload binding error: %v", err)
		_ = c.Error(err)
		return
	}

	var text, stored string
	switch req.Type {
	case domain.KnowledgePDF:
		raw, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			customLog.Warnf("Knowledge: invalid base64 PDF from user %s: %v", userID, err)
			_ = c.Error(knowledge.ErrUnreadablePDF)
			return
		}
		text, err = knowledge.ExtractPDF(raw)
		if err != nil {
			_ = c.Error(err)
			return
		}
		stored, err = h.saveBlob(userID, ".pdf", raw)
		if err != nil {
			_ = c.Error(err)
			return
		}

	case domain.KnowledgeURL:
		extracted, err := h.Extractor.ExtractURL(c.Request.Context(), req.Content)
		if err != nil {
			_ = c.Error(err)
			return
		}
		text = extracted
		stored = req.Content

	case domain.KnowledgeText:
		text = req.Content
		var err error
		stored, err = h.saveBlob(userID, ".txt", []byte(req.Content))
		if err != nil {
			_ = c.Error(err)
			return
		}
	}

	embedding := ""
	if vector, err := h.Model.EmbedText(c.Request.Context(), text); err != nil {
		customLog.Warnf("Knowledge: embedding failed for user %s: %v", userID, err)
	} else if encoded, err := json.Marshal(vector); err == nil {
		embedding = string(encoded)
	}

	id, err := storage.CreateKnowledge(c.Request.Context(), h.DB, domain.Knowledge{
		UserID:  userID,
		Name:    req.KnowledgeName,
		Type:    req.Type,
		Content: stored,
	}, embedding)
	if err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Knowledge: saved %s document %d for user %s", req.Type, id, userID)
	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Knowledge uploaded successfully"})
}

// List returns the account's knowledge documents without content.
func (h *KnowledgeHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	items, err := storage.ListKnowledge(c.Request.Context(), h.DB, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"knowledge": items})
}

func (h *KnowledgeHandler) saveBlob(userID, ext string, data []byte) (string, error) {
	dir := filepath.Join(h.Cfg.BlobDir, userID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, uuid.New().String()+ext)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", err
	}
	return path, nil
}
