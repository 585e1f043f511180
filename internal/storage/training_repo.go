// internal/storage/training_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/loomworks/loom-backend/internal/domain"
)

// Specific errors for training and service-account operations
var (
	ErrTrainingDataNotFound   = errors.New("training data not found")
	ErrServiceAccountNotFound = errors.New("service account not registered")
)

// CreateTrainingData persists one uploaded CSV file row.
func CreateTrainingData(ctx context.Context, db *sql.DB, td domain.TrainingData) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO training_data (user_id, file_name, file_path) VALUES (?, ?, ?)`,
		td.UserID, td.FileName, td.FilePath)
	if err != nil {
		customLog.Warnf("Storage: Failed inserting training data '%s' for user %s: %v", td.FileName, td.UserID, err)
		return 0, fmt.Errorf("database error saving training data: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve training data ID: %w", err)
	}
	return id, nil
}

// ListTrainingData returns the account's training files, newest first.
func ListTrainingData(ctx context.Context, db *sql.DB, userID string) ([]domain.TrainingData, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, file_name, file_path, created_at FROM training_data
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed listing training data for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing training data: %w", err)
	}
	defer rows.Close()

	items := make([]domain.TrainingData, 0)
	for rows.Next() {
		var td domain.TrainingData
		td.UserID = userID
		if err := rows.Scan(&td.ID, &td.FileName, &td.FilePath, &td.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading training data row: %w", err)
		}
		items = append(items, td)
	}
	return items, rows.Err()
}

// FindTrainingData retrieves one owned training file.
func FindTrainingData(ctx context.Context, db *sql.DB, userID string, id int64) (*domain.TrainingData, error) {
	var td domain.TrainingData
	td.UserID = userID
	err := db.QueryRowContext(ctx, `
		SELECT id, file_name, file_path, created_at FROM training_data
		WHERE id = ? AND user_id = ? LIMIT 1`, id, userID).
		Scan(&td.ID, &td.FileName, &td.FilePath, &td.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrainingDataNotFound
		}
		return nil, fmt.Errorf("database error finding training data: %w", err)
	}
	return &td, nil
}

// DeleteTrainingData removes one owned training file row.
func DeleteTrainingData(ctx context.Context, db *sql.DB, userID string, id int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM training_data WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed deleting training data %d: %v", id, err)
		return fmt.Errorf("database error deleting training data: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTrainingDataNotFound
	}
	return nil
}

// CreateTrainingModel records a submitted fine-tuning job.
func CreateTrainingModel(ctx context.Context, db *sql.DB, tm domain.TrainingModel) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO training_models (user_id, model_name, job_id, endpoint_url, status)
		VALUES (?, ?, ?, ?, ?)`,
		tm.UserID, tm.ModelName, tm.JobID, tm.EndpointURL, tm.Status)
	if err != nil {
		customLog.Warnf("Storage: Failed inserting training model '%s' for user %s: %v", tm.ModelName, tm.UserID, err)
		return 0, fmt.Errorf("database error saving training model: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve training model ID: %w", err)
	}
	return id, nil
}

// ListTrainingModels returns the account's fine-tuning jobs, newest first.
func ListTrainingModels(ctx context.Context, db *sql.DB, userID string) ([]domain.TrainingModel, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, model_name, job_id, endpoint_url, status, created_at FROM training_models
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("database error listing training models: %w", err)
	}
	defer rows.Close()

	items := make([]domain.TrainingModel, 0)
	for rows.Next() {
		var tm domain.TrainingModel
		tm.UserID = userID
		if err := rows.Scan(&tm.ID, &tm.ModelName, &tm.JobID, &tm.EndpointURL, &tm.Status, &tm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading training model row: %w", err)
		}
		items = append(items, tm)
	}
	return items, rows.Err()
}

// --- Service accounts ---

// UpsertServiceAccount registers or replaces the account's service-account key.
func UpsertServiceAccount(ctx context.Context, db *sql.DB, userID, keyJSON string) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO service_accounts (user_id, key_json) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET key_json = excluded.key_json`,
		userID, keyJSON)
	if err != nil {
		customLog.Warnf("Storage: Failed upserting service account for user %s: %v", userID, err)
		return 0, fmt.Errorf("database error saving service account: %w", err)
	}
	id, _ := result.LastInsertId()
	return id, nil
}

// FindServiceAccount retrieves the account's registered service-account key.
func FindServiceAccount(ctx context.Context, db *sql.DB, userID string) (*domain.ServiceAccount, string, error) {
	var sa domain.ServiceAccount
	var keyJSON string
	sa.UserID = userID
	err := db.QueryRowContext(ctx,
		`SELECT id, key_json, created_at FROM service_accounts WHERE user_id = ? LIMIT 1`, userID).
		Scan(&sa.ID, &keyJSON, &sa.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrServiceAccountNotFound
		}
		return nil, "", fmt.Errorf("database error finding service account: %w", err)
	}
	return &sa, keyJSON, nil
}
