// api/handlers/connection_handler.go
package handlers

import (
	"database/sql"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/loom-backend/api/models"
	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/core"
	"github.com/loomworks/loom-backend/internal/fetch"
	"github.com/loomworks/loom-backend/internal/storage"
)

// ConnectionHandler registers external API connections and introspects
// their response shapes into the schema catalog.
type ConnectionHandler struct {
	DB      *sql.DB
	Cfg     *config.Config
	Fetcher *fetch.Client
}

// NewConnectionHandler creates a new ConnectionHandler with dependencies.
func NewConnectionHandler(db *sql.DB, cfg *config.Config, fetcher *fetch.Client) *ConnectionHandler {
	return &ConnectionHandler{DB: db, Cfg: cfg, Fetcher: fetcher}
}

// Connect stores the connection, fetches its payload once, and creates one
// catalog table per array-valued response key, with columns taken from the
// first record. Identity auto-flagging is an overridable default: columns
// named in identifierColumns (default "id") are flagged is_user_id.
func (h *ConnectionHandler) Connect(c *gin.Context) {
	userID := c.MustGet("userId").(string)

	var req models.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("Connect binding error: %v", err)
		_ = c.Error(err)
		return
	}

	identifiers := map[string]bool{"id": true}
	if req.IdentifierColumns != nil {
		identifiers = make(map[string]bool, len(req.IdentifierColumns))
		for _, name := range req.IdentifierColumns {
			identifiers[strings.ToLower(name)] = true
		}
	}

	connectionID, err := storage.CreateConnection(c.Request.Context(), h.DB, userID, req.APIURL, req.AuthToken)
	if err != nil {
		_ = c.Error(err)
		return
	}

	discovered, names, err := h.Fetcher.IntrospectConnection(c.Request.Context(), req.APIURL, req.AuthToken)
	if err != nil {
		customLog.Warnf("Connect: introspection failed for user %s: %v", userID, err)
		_ = c.Error(err)
		return
	}

	created := make([]string, 0, len(names))
	for _, tableName := range names {
		// Discovered names come from an untrusted payload; anything that is
		// not a plain identifier never reaches the catalog.
		if !core.IsValidIdentifier(tableName) {
			customLog.Warnf("Connect: skipping table with invalid name %q for user %s", tableName, userID)
			continue
		}
		records := discovered[tableName]
		tableID, err := storage.CreateTable(c.Request.Context(), h.DB, userID, connectionID, tableName)
		if err != nil {
			_ = c.Error(err)
			return
		}

		columnNames := make([]string, 0, len(records[0]))
		for columnName := range records[0] {
			columnNames = append(columnNames, columnName)
		}
		sort.Strings(columnNames)
		for _, columnName := range columnNames {
			if !core.IsValidIdentifier(columnName) {
				customLog.Warnf("Connect: skipping column with invalid name %q on table %q", columnName, tableName)
				continue
			}
			isUserID := identifiers[strings.ToLower(columnName)]
			if _, err := storage.CreateColumn(c.Request.Context(), h.DB, tableID, columnName, isUserID); err != nil {
				_ = c.Error(err)
				return
			}
		}
		created = append(created, tableName)
	}

	customLog.Printf("Connect: registered connection %d with %d tables for user %s", connectionID, len(created), userID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Connection and table data saved successfully!",
		"tables":  created,
	})
}
