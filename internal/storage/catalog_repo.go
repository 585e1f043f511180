// internal/storage/catalog_repo.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/loomworks/loom-backend/internal/domain"
)

// Specific errors for catalog operations
var (
	ErrTableExists    = errors.New("table name already exists for this user")
	ErrTableNotFound  = errors.New("table not found or not registered for this user")
	ErrColumnNotFound = errors.New("column not found or not registered for this user")
)

// --- Connections ---

// CreateConnection registers an external API connection for an account.
func CreateConnection(ctx context.Context, db *sql.DB, userID, apiURL, authToken string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO api_connections (user_id, api_url, auth_token) VALUES (?, ?, ?)`,
		userID, apiURL, authToken)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert connection for user %s: %v", userID, err)
		return 0, fmt.Errorf("database error registering connection: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve connection ID: %w", err)
	}
	return id, nil
}

// --- Tables and Columns ---

// CreateTable inserts one introspected table row.
func CreateTable(ctx context.Context, db *sql.DB, userID string, connectionID int64, tableName string) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO tables (user_id, connection_id, table_name) VALUES (?, ?, ?)`,
		userID, connectionID, tableName)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, ErrTableExists
		}
		customLog.Warnf("Storage: Failed to insert table '%s' for user %s: %v", tableName, userID, err)
		return 0, fmt.Errorf("database error creating table: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve table ID: %w", err)
	}
	return id, nil
}

// CreateColumn inserts one column row for a table.
func CreateColumn(ctx context.Context, db *sql.DB, tableID int64, columnName string, isUserID bool) (int64, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO columns (table_id, column_name, is_user_id) VALUES (?, ?, ?)`,
		tableID, columnName, isUserID)
	if err != nil {
		customLog.Warnf("Storage: Failed to insert column '%s' for table %d: %v", columnName, tableID, err)
		return 0, fmt.Errorf("database error creating column: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve column ID: %w", err)
	}
	return id, nil
}

// ListTables returns the account's full catalog: tables with their columns,
// value mappings and endpoint coordinates, in creation order.
func ListTables(ctx context.Context, db *sql.DB, userID string) ([]domain.Table, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.id, t.table_name, t.table_description, c.api_url, c.auth_token
		FROM tables t JOIN api_connections c ON c.id = t.connection_id
		WHERE t.user_id = ? ORDER BY t.id`, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed listing tables for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing tables: %w", err)
	}
	defer rows.Close()

	tables := make([]domain.Table, 0)
	for rows.Next() {
		var t domain.Table
		t.UserID = userID
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Endpoint.APIURL, &t.Endpoint.AuthToken); err != nil {
			return nil, fmt.Errorf("failed reading table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating tables: %w", err)
	}

	for i := range tables {
		cols, err := listColumns(ctx, db, tables[i].ID)
		if err != nil {
			return nil, err
		}
		tables[i].Columns = cols
	}
	return tables, nil
}

// ListTablesByName restricts ListTables to the given table names.
func ListTablesByName(ctx context.Context, db *sql.DB, userID string, names []string) ([]domain.Table, error) {
	all, err := ListTables(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	selected := make([]domain.Table, 0, len(names))
	for _, t := range all {
		if wanted[t.Name] {
			selected = append(selected, t)
		}
	}
	return selected, nil
}

func listColumns(ctx context.Context, db *sql.DB, tableID int64) ([]domain.Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, table_id, column_name, column_description, is_user_id
		FROM columns WHERE table_id = ? ORDER BY id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("database error listing columns: %w", err)
	}
	defer rows.Close()

	cols := make([]domain.Column, 0)
	for rows.Next() {
		var c domain.Column
		if err := rows.Scan(&c.ID, &c.TableID, &c.Name, &c.Description, &c.IsUserID); err != nil {
			return nil, fmt.Errorf("failed reading column row: %w", err)
		}
		cols = append(cols, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating columns: %w", err)
	}

	for i := range cols {
		vms, err := listValueMappings(ctx, db, cols[i].ID)
		if err != nil {
			return nil, err
		}
		cols[i].ValueMappings = vms
	}
	return cols, nil
}

func listValueMappings(ctx context.Context, db *sql.DB, columnID int64) ([]domain.ValueMapping, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, value, meaning FROM value_mappings WHERE column_id = ? ORDER BY id`, columnID)
	if err != nil {
		return nil, fmt.Errorf("database error listing value mappings: %w", err)
	}
	defer rows.Close()

	var vms []domain.ValueMapping
	for rows.Next() {
		var vm domain.ValueMapping
		if err := rows.Scan(&vm.ID, &vm.Value, &vm.Meaning); err != nil {
			return nil, fmt.Errorf("failed reading value mapping: %w", err)
		}
		vms = append(vms, vm)
	}
	return vms, rows.Err()
}

// UpdateTableDescription edits a table's description, checking ownership.
func UpdateTableDescription(ctx context.Context, db *sql.DB, userID string, tableID int64, description string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE tables SET table_description = ? WHERE id = ? AND user_id = ?`,
		description, tableID, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed updating table %d: %v", tableID, err)
		return fmt.Errorf("database error updating table: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrTableNotFound
	}
	return nil
}

// UpdateColumn edits a column's description and identity flag, checking
// ownership through the parent table.
func UpdateColumn(ctx context.Context, db *sql.DB, userID string, columnID int64, description string, isUserID bool) error {
	result, err := db.ExecContext(ctx, `
		UPDATE columns SET column_description = ?, is_user_id = ?
		WHERE id = ? AND table_id IN (SELECT id FROM tables WHERE user_id = ?)`,
		description, isUserID, columnID, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed updating column %d: %v", columnID, err)
		return fmt.Errorf("database error updating column: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrColumnNotFound
	}
	return nil
}

// CreateValueMapping attaches a value → meaning pair to an owned column.
func CreateValueMapping(ctx context.Context, db *sql.DB, userID string, columnID int64, value, meaning string) (int64, error) {
	var owned int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM columns c JOIN tables t ON t.id = c.table_id
		WHERE c.id = ? AND t.user_id = ?`, columnID, userID).Scan(&owned)
	if err != nil {
		return 0, fmt.Errorf("database error checking column ownership: %w", err)
	}
	if owned == 0 {
		return 0, ErrColumnNotFound
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO value_mappings (column_id, value, meaning) VALUES (?, ?, ?)`,
		columnID, value, meaning)
	if err != nil {
		customLog.Warnf("Storage: Failed inserting value mapping for column %d: %v", columnID, err)
		return 0, fmt.Errorf("database error creating value mapping: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve value mapping ID: %w", err)
	}
	return id, nil
}

// --- Relations ---

// CreateRelation records a directed join edge between two of the account's tables.
func CreateRelation(ctx context.Context, db *sql.DB, userID string, rel domain.Relation) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO table_relations (user_id, from_table, from_column, to_table, to_column)
		VALUES (?, ?, ?, ?, ?)`,
		userID, rel.FromTable, rel.FromColumn, rel.ToTable, rel.ToColumn)
	if err != nil {
		customLog.Warnf("Storage: Failed inserting relation for user %s: %v", userID, err)
		return 0, fmt.Errorf("database error creating relation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve relation ID: %w", err)
	}
	return id, nil
}

// ListRelations returns the account's relations, newest first.
func ListRelations(ctx context.Context, db *sql.DB, userID string) ([]domain.Relation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, from_table, from_column, to_table, to_column, created_at
		FROM table_relations WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		customLog.Warnf("Storage: Failed listing relations for user %s: %v", userID, err)
		return nil, fmt.Errorf("database error listing relations: %w", err)
	}
	defer rows.Close()

	relations := make([]domain.Relation, 0)
	for rows.Next() {
		var r domain.Relation
		r.UserID = userID
		if err := rows.Scan(&r.ID, &r.FromTable, &r.FromColumn, &r.ToTable, &r.ToColumn, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed reading relation row: %w", err)
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}
