// Package ledger records dataset materializations in a SQLite database at
// the cache root. The ledger is advisory: cache validity is always decided
// from the filesystem and published checksums, never from ledger rows.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger is the append-only retrieval history.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at the given path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) initialize() error {
	schema := `
	-- Retrieval history (append-only)
	CREATE TABLE IF NOT EXISTS retrievals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		dataset TEXT NOT NULL,
		version TEXT NOT NULL,
		file TEXT NOT NULL,
		url TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_retrievals_dataset
		ON retrievals(collection, dataset, version);
	`
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize ledger schema: %w", err)
	}
	return nil
}

// Record is one materialized file.
type Record struct {
	ID         int64
	Collection string
	Dataset    string
	Version    string
	File       string
	URL        string
	SHA256     string
	Bytes      int64
	Duration   time.Duration
	CreatedAt  time.Time
}

// Append stores a retrieval record.
func (l *Ledger) Append(ctx context.Context, r *Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO retrievals (collection, dataset, version, file, url, sha256, bytes, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Collection, r.Dataset, r.Version, r.File, r.URL, r.SHA256, r.Bytes, r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("append retrieval record: %w", err)
	}
	return nil
}

// Entries returns retrieval records, most recent first. Empty collection or
// dataset arguments match everything.
func (l *Ledger) Entries(ctx context.Context, collection, dataset string) ([]*Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, collection, dataset, version, file, url, sha256, bytes, duration_ms, created_at
		FROM retrievals
		WHERE (? = '' OR collection = ?) AND (? = '' OR dataset = ?)
		ORDER BY id DESC`,
		collection, collection, dataset, dataset,
	)
	if err != nil {
		return nil, fmt.Errorf("query retrievals: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.Collection, &r.Dataset, &r.Version, &r.File,
			&r.URL, &r.SHA256, &r.Bytes, &durationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan retrieval record: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, &r)
	}
	return out, rows.Err()
}

// LatestChecksum returns the most recently recorded digest for a file, or ""
// when the file was never recorded.
func (l *Ledger) LatestChecksum(ctx context.Context, collection, dataset, version, file string) (string, error) {
	var sum string
	err := l.db.QueryRowContext(ctx, `
		SELECT sha256 FROM retrievals
		WHERE collection = ? AND dataset = ? AND version = ? AND file = ?
		ORDER BY id DESC LIMIT 1`,
		collection, dataset, version, file,
	).Scan(&sum)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query latest checksum: %w", err)
	}
	return sum, nil
}
