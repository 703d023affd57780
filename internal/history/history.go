// Package history keeps a sqlite ledger of converted documents: which
// batch converted them, their content hash, how many rows they produced and
// whether they failed. The ledger lets a rerun skip invoices already seen.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Document statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Entry is one converted document.
type Entry struct {
	ID        int64
	BatchID   string
	Name      string
	Hash      string
	Schema    string
	Rows      int
	Note      string
	Status    string
	Error     string
	CreatedAt time.Time
}

// Store is the ledger. It is safe for concurrent use.
type Store struct {
	conn *sql.DB
}

// Hash returns the hex sha256 of a document's bytes.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to configure history: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	_, err := s.conn.Exec(`
CREATE TABLE IF NOT EXISTS conversions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batchId TEXT NOT NULL,
  name TEXT NOT NULL,
  hash TEXT NOT NULL,
  schemaName TEXT NOT NULL DEFAULT '',
  rowCount INTEGER NOT NULL DEFAULT 0,
  note TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversions_hash ON conversions(hash);
CREATE INDEX IF NOT EXISTS idx_conversions_batch ON conversions(batchId);
`)
	return err
}

// Record appends e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.conn.ExecContext(ctx, `
INSERT INTO conversions (batchId, name, hash, schemaName, rowCount, note, status, error, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BatchID, e.Name, e.Hash, e.Schema, e.Rows, e.Note, e.Status, e.Error,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", e.Name, err)
	}
	return nil
}

// SeenHash reports whether a document with this hash was converted
// successfully before.
func (s *Store) SeenHash(ctx context.Context, hash string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversions WHERE hash = ? AND status = ?`, hash, StatusOK,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up hash: %w", err)
	}
	return n > 0, nil
}

// Recent returns up to limit entries, newest first. A limit of 0 or less
// returns everything.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, `
SELECT id, batchId, name, hash, schemaName, rowCount, note, status, error, createdAt
FROM conversions ORDER BY id DESC LIMIT ?`, limit)
}

// Batch returns the entries of one batch in insertion order.
func (s *Store) Batch(ctx context.Context, batchID string) ([]Entry, error) {
	return s.query(ctx, `
SELECT id, batchId, name, hash, schemaName, rowCount, note, status, error, createdAt
FROM conversions WHERE batchId = ? ORDER BY id`, batchID)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.BatchID, &e.Name, &e.Hash, &e.Schema, &e.Rows,
			&e.Note, &e.Status, &e.Error, &created); err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
