package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/mroshb/chunkclaim/pkg/logger"
)

// OpenSQLite opens (creating if needed) a single-file claim store. Pass
// ":memory:" for a private in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite serializes writers anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("SQLite claim store opened", "path", path)
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunk_claimed (
			chunk_world INTEGER NOT NULL,
			chunk_x INTEGER NOT NULL,
			chunk_z INTEGER NOT NULL,
			chunk_owner TEXT NOT NULL,
			chunk_town TEXT,
			claimed_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chunk_world, chunk_x, chunk_z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunk_claimed_owner ON chunk_claimed(chunk_owner);`,
		`CREATE TABLE IF NOT EXISTS claimants (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			town_id TEXT,
			owner_id TEXT,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS claimant_ranks (
			claimant_id TEXT NOT NULL,
			permission TEXT NOT NULL,
			required_rank TEXT NOT NULL,
			PRIMARY KEY (claimant_id, permission)
		);`,
		`CREATE TABLE IF NOT EXISTS claimant_friends (
			claimant_id TEXT NOT NULL,
			friend_id TEXT NOT NULL,
			friend_rank TEXT NOT NULL,
			PRIMARY KEY (claimant_id, friend_id)
		);`,
		`CREATE TABLE IF NOT EXISTS claimant_settings (
			claimant_id TEXT NOT NULL,
			setting TEXT NOT NULL,
			enabled INTEGER NOT NULL,
			PRIMARY KEY (claimant_id, setting)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
