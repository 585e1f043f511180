// internal/storage/category_repo.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/loomworks/loom-backend/internal/domain"
)

// ListCategories returns the account's categories with member table names,
// newest first.
func ListCategories(ctx context.Context, db *sql.DB, userID string) ([]domain.Category, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, category_name, created_at FROM data_categories
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed listing categories for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating categories: %w", err)
	}

	for i := range categories {
		names, err := categoryTableNames(ctx, db, categories[i].ID)
		if err != nil {
			return nil, err
		}
		categories[i].Tables = names
	}
	return categories, nil
}

// ListCategoriesByID restricts ListCategories to the given ids.
func ListCategoriesByID(ctx context.Context, db *sql.DB, userID string, ids []int64) ([]domain.Category, error) {
	all, err := ListCategories(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	selected := make([]domain.Category, 0, len(ids))
	for _, c := range all {
		if wanted[c.ID] {
			selected = append(selected, c)
		}
	}
	return selected, nil
}

func categoryTableNames(ctx context.Context, db *sql.DB, categoryID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM category_tables WHERE category_id = ? ORDER BY id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("database error listing category tables: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed reading category table: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// ReplaceCategories swaps the account's entire category set in one
// transaction: delete all, then insert the new set. Not an incremental diff.
func ReplaceCategories(ctx context.Context, db *sql.DB, userID string, categories []domain.Category) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin category transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		DELETE FROM category_tables WHERE category_id IN
		(SELECT id FROM data_categories WHERE user_id = ?)`, userID); err != nil {
		return fmt.Errorf("database error clearing category tables: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM data_categories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("database error clearing categories: %w", err)
	}

	for _, cat := range categories {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO data_categories (user_id, category_name) VALUES (?, ?)`,
			userID, cat.Name)
		if err != nil {
			return fmt.Errorf("database error inserting category: %w", err)
		}
		catID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to retrieve category ID: %w", err)
		}
		for _, tableName := range cat.Tables {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO category_tables (category_id, table_name) VALUES (?, ?)`,
				catID, tableName); err != nil {
				return fmt.Errorf("database error inserting category table: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category replacement: %w", err)
	}
	return nil
}
