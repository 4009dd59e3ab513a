// Package db opens and bootstraps the SQLite database backing the
// connection registry and the sync record store.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaVersion = 1

// Open opens the SQLite database at path. Use ":memory:" in tests.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway; a single pooled connection also
	// keeps ":memory:" databases from silently splitting per connection.
	db.SetMaxOpenConns(1)

	return db, nil
}

// Init creates the schema if it does not exist yet
func Init(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM db_version WHERE name = 'calendar-sync'").Scan(&version)
	if err != nil {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER NOT NULL
		)`); err != nil {
			return fmt.Errorf("failed to create db_version table: %w", err)
		}
		if _, err := db.Exec("INSERT INTO db_version (name, version) VALUES ('calendar-sync', 0)"); err != nil {
			return fmt.Errorf("failed to initialize db_version table: %w", err)
		}
		version = 0
	}

	if version == 0 {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS user_calendar_connections (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			provider_id TEXT NOT NULL DEFAULT '',
			calendar_id TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expires_at DATETIME,
			sync_enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`); err != nil {
			return fmt.Errorf("failed to create user_calendar_connections table: %w", err)
		}

		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS calendar_sync_events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			connection_id TEXT NOT NULL,
			trade_event_id TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_title TEXT NOT NULL,
			event_start TEXT NOT NULL,
			event_end TEXT NOT NULL,
			sync_status TEXT NOT NULL DEFAULT 'pending',
			last_synced_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (connection_id, trade_event_id)
		)`); err != nil {
			return fmt.Errorf("failed to create calendar_sync_events table: %w", err)
		}

		if _, err := db.Exec("UPDATE db_version SET version = ? WHERE name = 'calendar-sync'", schemaVersion); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	return nil
}
