package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// GetConnection returns the underlying database connection
func (db *DB) GetConnection() *sql.DB {
	return db.conn
}

// createTables creates the necessary tables. One row per (user, guild);
// sessions live inside the row as an ordered JSONB array, there is no
// separate session table.
func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS user_activity (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			username TEXT NOT NULL,
			guild_name TEXT NOT NULL,
			sessions JSONB NOT NULL DEFAULT '[]',
			total_time_minutes BIGINT NOT NULL DEFAULT 0,
			is_premium BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, guild_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activity_leaderboard
			ON user_activity (guild_id, total_time_minutes DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activity_user
			ON user_activity (user_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
