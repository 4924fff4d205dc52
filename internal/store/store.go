// Package store provides the SQLite persistence layer for Lorehound:
// a key-value surface backing the suggestion session store, and a local
// snapshot of record summaries so the matcher can run without the upstream
// record store being reachable.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/lorehound/lorehound/internal/entity"
	"github.com/lorehound/lorehound/internal/match"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.lorehound/lorehound.db"

// SQLiteStore holds the database handle.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Open creates (or opens) the SQLite store at dbPath. Pass ":memory:" for
// in-memory databases (testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = expandPath(DefaultDBPath)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// migrate creates all tables if they don't exist. Idempotent.
func (s *SQLiteStore) migrate() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS kv_v1 (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS records_v1 (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			title TEXT NOT NULL,
			kind TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_team ON records_v1(team_id)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- session.KV implementation ---

// Get returns the value for key and whether it exists.
func (s *SQLiteStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv_v1 WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading kv %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes the full value in one statement — atomic per key.
func (s *SQLiteStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO kv_v1 (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing kv %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; deleting a missing key is not an error.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_v1 WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting kv %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key with the given prefix.
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT key FROM kv_v1 WHERE key >= ? AND key < ? ORDER BY key`,
		prefix, prefix+"\xff",
	)
	if err != nil {
		return nil, fmt.Errorf("listing kv keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning kv key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- record summary snapshot ---

// ReplaceRecords swaps in a fresh record-summary snapshot for a team inside
// one transaction. Refreshing the snapshot from the upstream record store is
// the caller's concern.
func (s *SQLiteStore) ReplaceRecords(ctx context.Context, teamID string, records []match.RecordSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records_v1 WHERE team_id = ?`, teamID); err != nil {
		return fmt.Errorf("clearing record snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records_v1 (id, team_id, title, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID, teamID, r.Title, string(r.Kind)); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// RecordsForTeam returns the snapshot of record summaries for a team.
func (s *SQLiteStore) RecordsForTeam(ctx context.Context, teamID string) ([]match.RecordSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, kind FROM records_v1 WHERE team_id = ? ORDER BY title`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing records for team %s: %w", teamID, err)
	}
	defer rows.Close()

	var out []match.RecordSummary
	for rows.Next() {
		var r match.RecordSummary
		var kind string
		if err := rows.Scan(&r.ID, &r.Title, &kind); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Kind = entity.Kind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
