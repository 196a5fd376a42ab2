package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteLedger implements a Ledger backed by a SQLite table.
type sqliteLedger struct {
	db       *sql.DB
	entryTTL time.Duration
}

func openSQLite(path string, opts Options) (Ledger, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS fixtures (
			id         TEXT    PRIMARY KEY,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create fixtures table: %w", err)
	}

	return &sqliteLedger{db: db, entryTTL: opts.EntryTTL}, nil
}

func (s *sqliteLedger) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteLedger) Track(id string) error {
	expires := time.Now().Add(s.entryTTL).Unix()
	_, err := s.db.Exec(
		"INSERT INTO fixtures (id, expires_at) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET expires_at = excluded.expires_at",
		id, expires,
	)
	if err != nil {
		return fmt.Errorf("track fixture: %w", err)
	}
	return nil
}

func (s *sqliteLedger) Release(id string) error {
	if _, err := s.db.Exec("DELETE FROM fixtures WHERE id = ?", id); err != nil {
		return fmt.Errorf("release fixture: %w", err)
	}
	return nil
}

func (s *sqliteLedger) Pending() ([]string, error) {
	now := time.Now().Unix()
	if _, err := s.db.Exec("DELETE FROM fixtures WHERE expires_at <= ?", now); err != nil {
		return nil, fmt.Errorf("prune fixtures: %w", err)
	}

	rows, err := s.db.Query("SELECT id FROM fixtures ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query fixtures: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fixture: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixtures: %w", err)
	}
	return ids, nil
}
