// Package store persists fetched price histories in a local sqlite database
// so repeated lookups and offline runs do not hit the upstream APIs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"symbolsearch/internal/price"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/symbolsearch.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS histories (
			source TEXT NOT NULL,
			query TEXT NOT NULL,
			currency TEXT NOT NULL,
			fetched_at TEXT,
			PRIMARY KEY (source, query, currency)
		);`,
		`CREATE TABLE IF NOT EXISTS bars (
			source TEXT NOT NULL,
			query TEXT NOT NULL,
			currency TEXT NOT NULL,
			ts INTEGER NOT NULL,
			close REAL NOT NULL,
			PRIMARY KEY (source, query, currency, ts)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bars_lookup ON bars(source, query, currency);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SaveHistory replaces the stored history for (source, query, currency).
func (s *Store) SaveHistory(source, query string, h price.History) error {
	if s == nil || s.db == nil {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO histories (source, query, currency, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(source, query, currency) DO UPDATE SET fetched_at=excluded.fetched_at`,
		source, query, h.Currency, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	if _, err := tx.Exec(
		`DELETE FROM bars WHERE source = ? AND query = ? AND currency = ?`,
		source, query, h.Currency,
	); err != nil {
		return fmt.Errorf("clear bars: %w", err)
	}
	for _, p := range h.Points {
		if _, err := tx.Exec(
			`INSERT INTO bars (source, query, currency, ts, close) VALUES (?, ?, ?, ?, ?)`,
			source, query, h.Currency, p.When.Unix(), p.Close,
		); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadHistory returns the stored history for (source, query, currency), or
// price.ErrNotFound when nothing was saved for that key.
func (s *Store) LoadHistory(source, query, currency string) (price.History, error) {
	if s == nil || s.db == nil {
		return price.History{}, fmt.Errorf("store not initialized")
	}
	row := s.db.QueryRow(
		`SELECT currency FROM histories WHERE source = ? AND query = ? AND currency = ?`,
		source, query, currency,
	)
	var h price.History
	if err := row.Scan(&h.Currency); err != nil {
		if err == sql.ErrNoRows {
			return price.History{}, price.ErrNotFound
		}
		return price.History{}, fmt.Errorf("get history: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT ts, close FROM bars WHERE source = ? AND query = ? AND currency = ? ORDER BY ts ASC`,
		source, query, currency,
	)
	if err != nil {
		return price.History{}, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ts int64
		var close float64
		if err := rows.Scan(&ts, &close); err != nil {
			return price.History{}, fmt.Errorf("scan bar: %w", err)
		}
		h.Points = append(h.Points, price.Point{When: time.Unix(ts, 0).UTC(), Close: close})
	}
	if err := rows.Err(); err != nil {
		return price.History{}, fmt.Errorf("rows bars: %w", err)
	}
	return h, nil
}

// Currencies lists the currencies a history was stored under for one
// (source, query) pair.
func (s *Store) Currencies(source, query string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.Query(
		`SELECT currency FROM histories WHERE source = ? AND query = ? ORDER BY currency`,
		source, query,
	)
	if err != nil {
		return nil, fmt.Errorf("query currencies: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows currencies: %w", err)
	}
	return out, nil
}
