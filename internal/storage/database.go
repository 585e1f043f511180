// internal/storage/database.go
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // Driver registration

	"github.com/loomworks/loom-backend/config"
	"github.com/loomworks/loom-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// schemaStatements are executed in order on startup. Everything hangs off
// users; catalog entities cascade with their parents.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS api_connections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		api_url TEXT NOT NULL,
		auth_token TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS tables (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		connection_id INTEGER NOT NULL,
		table_name TEXT NOT NULL,
		table_description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, table_name),
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
		FOREIGN KEY (connection_id) REFERENCES api_connections(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS columns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		table_id INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		column_description TEXT NOT NULL DEFAULT '',
		is_user_id INTEGER NOT NULL DEFAULT 0,
		UNIQUE (table_id, column_name),
		FOREIGN KEY (table_id) REFERENCES tables(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS value_mappings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		column_id INTEGER NOT NULL,
		value TEXT NOT NULL,
		meaning TEXT NOT NULL,
		FOREIGN KEY (column_id) REFERENCES columns(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS table_relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		from_table TEXT NOT NULL,
		from_column TEXT NOT NULL,
		to_table TEXT NOT NULL,
		to_column TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS data_categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		category_name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS category_tables (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		category_id INTEGER NOT NULL,
		table_name TEXT NOT NULL,
		FOREIGN KEY (category_id) REFERENCES data_categories(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS inquiry_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		target_user_id TEXT NOT NULL,
		inquiry_content TEXT NOT NULL,
		data_summary TEXT NOT NULL,
		inquiry_elements TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS knowledge (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		knowledge_name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS training_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS training_models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		model_name TEXT NOT NULL,
		job_id TEXT NOT NULL DEFAULT '',
		endpoint_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS service_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL UNIQUE,
		key_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	);`,
}

// ConnectMetadataDB initializes the connection pool for the metadata SQLite
// database and ensures the catalog tables exist.
func ConnectMetadataDB(cfg *config.Config) (*sql.DB, error) {
	dbPath := filepath.Join(cfg.MetadataDbDir, cfg.MetadataDbFile)
	customLog.Printf("Storage: Initializing metadata database: %s", dbPath)

	if err := os.MkdirAll(cfg.MetadataDbDir, 0750); err != nil {
		customLog.Warnf("Storage: Error creating data directory '%s': %v", cfg.MetadataDbDir, err)
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		customLog.Warnf("Storage: Failed to open metadata db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to open metadata db: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		customLog.Warnf("Storage: Failed to ping metadata db '%s': %v", dbPath, err)
		return nil, fmt.Errorf("failed to connect to metadata db: %w", err)
	}
	customLog.Println("Storage: Metadata database connection successful.")

	for _, stmt := range schemaStatements {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			customLog.Warnf("Storage: Failed to ensure schema: %v", err)
			return nil, fmt.Errorf("failed to ensure metadata schema: %w", err)
		}
	}
	customLog.Println("Storage: Metadata schema ensured.")

	return db, nil
}
