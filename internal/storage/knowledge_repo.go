// internal/storage/knowledge_repo.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loomworks/loom-backend/internal/domain"
)

// CreateKnowledge persists an uploaded knowledge document. The embedding is
// the JSON-encoded vector produced at upload time; empty when the model
// boundary returned none.
func CreateKnowledge(ctx context.Context, db *sql.DB, k domain.Knowledge, embedding string) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO knowledge (user_id, knowledge_name, type, content, embedding)
		VALUES (?, ?, ?, ?, ?)`,
		k.UserID, k.Name, k.Type, k.Content, embedding)
	if err != nil {
		customLog.Warnf("Storage: Failed inserting knowledge '%s' for user %s: %v", k.Name, k.UserID, err)
		return 0, fmt.Errorf("database error saving knowledge: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve knowledge ID: %w", err)
	}
	return id, nil
}

// ListKnowledge returns the account's knowledge documents, newest first.
// Content is not included in listings.
func ListKnowledge(ctx context.Context, db *sql.DB, userID string) ([]domain.Knowledge, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, knowledge_name, type, created_at FROM knowledge
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed listing knowledge for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing knowledge: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Knowledge, 0)
	for rows.Next() {
		var k domain.Knowledge
		k.UserID = userID
		if err := rows.Scan(&k.ID, &k.Name, &k.Type, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading knowledge row: %w", err)
		}
		items = append(items, k)
	}
	return items, rows.Err()
}
