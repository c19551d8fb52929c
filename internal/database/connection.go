package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// DriverType returns the configured database type, defaulting to sqlite.
func DriverType() string {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}
	return dbType
}

// Connect establishes a connection to the database
func Connect() error {
	var db *sqlx.DB
	var err error

	switch DriverType() {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err = sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
	default:
		dbPath := os.Getenv("SQLITE_PATH")
		if dbPath == "" {
			// Create data directory if it doesn't exist
			dataDir := "data"
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %v", err)
			}
			dbPath = filepath.Join(dataDir, "coach.db")
		}

		db, err = sqlx.Connect("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}

		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}

		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	DB = db

	// Initialize schema
	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if DriverType() == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	// Create srs_entries table: one scheduling row per (user, item) pair
	_, err := DB.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS srs_entries (
			id %s,
			user_id INTEGER NOT NULL,
			item_type TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			box_number INTEGER NOT NULL DEFAULT 1,
			last_reviewed_at TIMESTAMP,
			next_review_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, item_type, item_id)
		)
	`, idColumn))
	if err != nil {
		return fmt.Errorf("failed to create srs_entries table: %v", err)
	}

	// Create coach_configs table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS coach_configs (
			user_id INTEGER PRIMARY KEY,
			batch_size INTEGER DEFAULT 10,
			reminder_hour INTEGER DEFAULT 9,
			reminder_enabled BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create coach_configs table: %v", err)
	}

	return nil
}
