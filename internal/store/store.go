package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS workblocks (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		date             TEXT NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT,
		duration_minutes INTEGER NOT NULL,
		status           TEXT NOT NULL DEFAULT 'active',
		archived         INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS intervals (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		workblock_id   INTEGER NOT NULL REFERENCES workblocks(id) ON DELETE CASCADE,
		number         INTEGER NOT NULL,
		start_time     TEXT NOT NULL,
		end_time       TEXT,
		length_minutes INTEGER NOT NULL DEFAULT 15,
		label          TEXT,
		status         TEXT NOT NULL DEFAULT 'pending',
		recorded_at    TEXT,
		UNIQUE(workblock_id, number)
	);

	CREATE INDEX IF NOT EXISTS idx_workblocks_date   ON workblocks(date);
	CREATE INDEX IF NOT EXISTS idx_workblocks_status ON workblocks(status);
	CREATE INDEX IF NOT EXISTS idx_intervals_block   ON intervals(workblock_id);

	CREATE TABLE IF NOT EXISTS daily_archives (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		date             TEXT NOT NULL UNIQUE,
		total_workblocks INTEGER NOT NULL DEFAULT 0,
		total_minutes    INTEGER NOT NULL DEFAULT 0,
		snapshot         TEXT NOT NULL DEFAULT '',
		archived_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('interval_minutes',     '15'),
		('away_timeout_minutes', '10'),
		('label_max_chars',      '50');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/log15/log15.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "log15", "log15.db"), nil
}
