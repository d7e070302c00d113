// Package store implements the durable persistence collaborator as a small
// key-value layer over SQLite. Buckets hold JSON-serialized entities; the
// Receipt Store uses bulk-replace semantics, the trip registry and ledger use
// value-per-key writes.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Entry is one persisted record: a JSON value with a stable display position.
type Entry struct {
	Key      string
	Value    []byte
	Position int
}

// KV is the persistence interface the domain stores depend on.
type KV interface {
	// ReplaceAll clears the bucket and writes all entries in one transaction.
	ReplaceAll(ctx context.Context, bucket string, entries []Entry) error
	// Put upserts a single entry.
	Put(ctx context.Context, bucket string, entry Entry) error
	// Delete removes a key; deleting a missing key is a no-op.
	Delete(ctx context.Context, bucket, key string) error
	// List returns all entries in a bucket ordered by position.
	List(ctx context.Context, bucket string) ([]Entry, error)
}

// SQLiteKV is the KV implementation backed by modernc.org/sqlite.
type SQLiteKV struct {
	db     *sql.DB
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	bucket   TEXT NOT NULL,
	key      TEXT NOT NULL,
	value    BLOB NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (bucket, key)
);
CREATE INDEX IF NOT EXISTS idx_kv_bucket_position ON kv (bucket, position);
`

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*SQLiteKV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", dbPath)
	return &SQLiteKV{db: db, logger: logger}, nil
}

func (s *SQLiteKV) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteKV) ReplaceAll(ctx context.Context, bucket string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("clear bucket %s: %w", bucket, err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (bucket, key, value, position) VALUES (?, ?, ?, ?)`,
			bucket, e.Key, e.Value, e.Position); err != nil {
			return fmt.Errorf("write %s/%s: %w", bucket, e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	s.logger.Debug("bucket replaced", "bucket", bucket, "entries", len(entries))
	return nil
}

func (s *SQLiteKV) Put(ctx context.Context, bucket string, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (bucket, key, value, position) VALUES (?, ?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value, position = excluded.position`,
		bucket, entry.Key, entry.Value, entry.Position)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, entry.Key, err)
	}
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE bucket = ? AND key = ?`, bucket, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *SQLiteKV) List(ctx context.Context, bucket string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, position FROM kv WHERE bucket = ? ORDER BY position, key`, bucket)
	if err != nil {
		return nil, fmt.Errorf("list bucket %s: %w", bucket, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Position); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
