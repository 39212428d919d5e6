package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the gateway to the record store backing the bot: the chat user
// registry, the employee directory mirror, and the metric tables. It performs
// no retries; retry policy belongs to callers.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite pragmas: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) AutoMigrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			chat_id INTEGER NOT NULL,
			handle TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (chat_id, handle)
		);`,
		`CREATE TABLE IF NOT EXISTS employees (
			handle TEXT NOT NULL,
			full_name TEXT NOT NULL,
			city TEXT NOT NULL DEFAULT '',
			team TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			planned_leads INTEGER NOT NULL DEFAULT 0,
			escalation_contact TEXT NOT NULL DEFAULT '',
			team_lead TEXT NOT NULL DEFAULT '',
			crm_url TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_employees_handle ON employees(handle);`,
		`CREATE TABLE IF NOT EXISTS daily_metrics (
			handle TEXT NOT NULL,
			report_date TEXT NOT NULL,
			leads INTEGER NOT NULL DEFAULT 0,
			traffic_seconds INTEGER NOT NULL DEFAULT 0,
			quality_calls INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (handle, report_date)
		);`,
		`CREATE TABLE IF NOT EXISTS monthly_metrics (
			handle TEXT NOT NULL,
			month TEXT NOT NULL,
			leads INTEGER NOT NULL DEFAULT 0,
			traffic_seconds INTEGER NOT NULL DEFAULT 0,
			quality_calls INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (handle, month)
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
