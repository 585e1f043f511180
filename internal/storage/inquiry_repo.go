// internal/storage/inquiry_repo.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loomworks/loom-backend/internal/domain"
)

// CreateInquiryRun persists one prepare-request result. Runs are write-once;
// there is deliberately no update counterpart.
func CreateInquiryRun(ctx context.Context, db *sql.DB, run domain.InquiryRun) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO inquiry_runs (user_id, target_user_id, inquiry_content, data_summary, inquiry_elements)
		VALUES (?, ?, ?, ?, ?)`,
		run.UserID, run.TargetUserID, run.InquiryContent, run.DataSummary, run.InquiryElements)
	if err != nil {
		customLog.Warnf("Storage: Failed inserting inquiry run for user %s: %v", run.UserID, err)
		return 0, fmt.Errorf("database error saving inquiry run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve inquiry run ID: %w", err)
	}
	return id, nil
}

// ListInquiryRuns returns the account's inquiry history, newest first.
func ListInquiryRuns(ctx context.Context, db *sql.DB, userID string) ([]domain.InquiryRun, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, target_user_id, inquiry_content, data_summary, inquiry_elements, created_at
		FROM inquiry_runs WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed listing inquiry runs for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing inquiry runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.InquiryRun, 0)
	for rows.Next() {
		var r domain.InquiryRun
		r.UserID = userID
		if err := rows.Scan(&r.ID, &r.TargetUserID, &r.InquiryContent, &r.DataSummary, &r.InquiryElements, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading inquiry run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
