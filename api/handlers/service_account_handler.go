// api/handlers/service_account_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/core"
	"github.com/loomworks/loom-backend/internal/storage"
)

// ServiceAccountHandler registers cloud service-account keys and probes
// external help-center connectors.
type ServiceAccountHandler struct {
	DB   *sql.DB
	Cfg  *config.Config
	http *retryablehttp.Client
}

// NewServiceAccountHandler creates a new ServiceAccountHandler with dependencies.
func NewServiceAccountHandler(db *sql.DB, cfg *config.Config) *ServiceAccountHandler {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.Logger = nil
	rc.HTTPClient.Timeout = cfg.FetchTimeout
	return &ServiceAccountHandler{DB: db, Cfg: cfg, http: rc}
}

// Register stores the account's service-account key, replacing any previous
// one. The key must be a JSON document carrying project_id and private_key.
func (h *ServiceAccountHandler) Register(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.ServiceAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Service account binding error: %v", err)
		_ = c.Error(err)
		return
	}

	var key struct {
		ProjectID  string `json:"project_id"`
		PrivateKey string `json:"private_key"`
	}
	if err := json.Unmarshal([]byte(req.ServiceAccountKey), &key); err != nil || key.ProjectID == "" || key.PrivateKey == "" {
		customLog.Warnf("Service account key rejected for user %s", userID)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid service account key: project_id and private_key are required."})
		return
	}

	if _, err := storage.UpsertServiceAccount(c.Request.Context(), h.DB, userID, req.ServiceAccountKey); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Service account registered for user %s (project %s)", userID, key.ProjectID)
	c.JSON(http.StatusOK, gin.H{"message": "Service account registered successfully"})
}

// TestConnector probes a Zendesk help-center with the supplied credentials
// by listing its categories. Any upstream failure maps to a 400 so the
// caller can fix the credentials.
func (h *ServiceAccountHandler) TestConnector(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.ConnectorTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Connector test binding error: %v", err)
		_ = c.Error(err)
		return
	}

	locale := req.Locale
	if locale == "" {
		locale = "ja"
	}
	subdomain := core.SanitizeSubdomain(req.Subdomain)
	endpoint := fmt.Sprintf("https://%s.zendesk.com/api/v2/help_center/%s/categories.json", subdomain, locale)

	probe, err := retryablehttp.NewRequestWithContext(c.Request.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid connector parameters."})
		return
	}
	probe.SetBasicAuth(req.Email+"/token", req.APIToken)
	probe.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := h.http.Do(probe)
	if err != nil {
		customLog.Warnf("Connector test failed for user %s: %v", userID, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Failed to reach the help center."})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		customLog.Warnf("Connector test for user %s returned status %d", userID, resp.StatusCode)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Help center returned status %d.", resp.StatusCode)})
		return
	}

	var parsed struct {
		Categories []json.RawMessage `json:"categories"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil || json.Unmarshal(body, &parsed) != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unexpected help center response."})
		return
	}

	customLog.Printf("Connector test succeeded for user %s in %v", userID, time.Since(started))
	c.JSON(http.StatusOK, gin.H{
		"message":    "Connector test succeeded",
		"categories": parsed.Categories,
	})
}
