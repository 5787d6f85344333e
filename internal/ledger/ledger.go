// Package ledger is the durable record of crawl progress. Every known
// page URL has exactly one row; a reopened ledger resumes a crawl where
// the previous process left off.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

// ErrUnknownURL signals a status transition on a URL with no ledger row.
// It indicates a coordination bug, not an environmental failure, and
// callers must treat it as fatal.
var ErrUnknownURL = errors.New("ledger: unknown URL")

// Ledger tracks per-URL crawl status in SQLite
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database. Rows left in_progress by
// a crashed run are returned to queued so they get re-attempted.
func Open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		status TEXT NOT NULL CHECK(status IN ('queued','in_progress','downloaded','error')),
		file_path TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_attempt TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);

	CREATE TABLE IF NOT EXISTS resources (
		url TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		local_path TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec(`UPDATE pages SET status='queued' WHERE status='in_progress'`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reset in-progress rows: %w", err)
	}

	return &Ledger{db: db}, nil
}

// MarkQueued inserts a queued row for the URL. Re-queuing a URL that
// already has a row, in any status, is a no-op.
func (l *Ledger) MarkQueued(url string) error {
	_, err := l.db.Exec(`INSERT OR IGNORE INTO pages(url, status) VALUES (?, 'queued')`, url)
	if err != nil {
		return fmt.Errorf("failed to queue %s: %w", url, err)
	}
	return nil
}

// Claim atomically moves a queued URL to in_progress, counting the
// attempt. Returns false when the URL is not claimable: unknown,
// already claimed, downloaded, or in the terminal error state.
func (l *Ledger) Claim(url string) (bool, error) {
	res, err := l.db.Exec(
		`UPDATE pages SET status='in_progress', attempts=attempts+1, last_attempt=? WHERE url=? AND status='queued'`,
		time.Now().UTC(), url,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", url, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkDownloaded transitions a URL to its terminal downloaded state,
// recording the local file path. Returns ErrUnknownURL when the URL has
// no ledger row.
func (l *Ledger) MarkDownloaded(url, filePath string) error {
	res, err := l.db.Exec(
		`UPDATE pages SET status='downloaded', file_path=?, last_attempt=? WHERE url=?`,
		filePath, time.Now().UTC(), url,
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s downloaded: %w", url, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownURL, url)
	}
	return nil
}

// MarkFailed records a failed attempt. The URL returns to queued and
// stays retryable until it has burned maxAttempts attempts, after which
// it lands in the terminal error state. Reports whether the failure was
// terminal.
func (l *Ledger) MarkFailed(url string, maxAttempts int) (bool, error) {
	var attempts int
	err := l.db.QueryRow(`SELECT attempts FROM pages WHERE url=?`, url).Scan(&attempts)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("%w: %s", ErrUnknownURL, url)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read attempts for %s: %w", url, err)
	}

	status := types.StatusQueued
	if maxAttempts > 0 && attempts >= maxAttempts {
		status = types.StatusErrored
	}

	_, err = l.db.Exec(`UPDATE pages SET status=?, last_attempt=? WHERE url=?`,
		string(status), time.Now().UTC(), url)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s failed: %w", url, err)
	}

	return status == types.StatusErrored, nil
}

// ListQueued returns all queued URLs in insertion order
func (l *Ledger) ListQueued() ([]string, error) {
	rows, err := l.db.Query(`SELECT url FROM pages WHERE status='queued' ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// IsDownloaded reports whether a URL has already been mirrored
func (l *Ledger) IsDownloaded(url string) (bool, error) {
	var one int
	err := l.db.QueryRow(`SELECT 1 FROM pages WHERE url=? AND status='downloaded'`, url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StatusOf returns the current status of a URL, or ErrUnknownURL
func (l *Ledger) StatusOf(url string) (types.PageStatus, error) {
	var status string
	err := l.db.QueryRow(`SELECT status FROM pages WHERE url=?`, url).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrUnknownURL, url)
	}
	if err != nil {
		return "", err
	}
	return types.PageStatus(status), nil
}

// Counts returns the number of pages per status
func (l *Ledger) Counts() (map[types.PageStatus]int, error) {
	rows, err := l.db.Query(`SELECT status, COUNT(*) FROM pages GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}
	defer rows.Close()

	counts := make(map[types.PageStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[types.PageStatus(status)] = n
	}
	return counts, rows.Err()
}

// RequeueErrored returns terminally errored pages to the queue, giving
// them a fresh attempt budget. Used by resume --retry-errored.
func (l *Ledger) RequeueErrored() (int, error) {
	res, err := l.db.Exec(`UPDATE pages SET status='queued', attempts=0 WHERE status='error'`)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue errored pages: %w", err)
	}

	n, err := res.RowsAffected()
	return int(n), err
}

// SaveResource records a fetched resource so a resumed run can skip it
func (l *Ledger) SaveResource(url string, kind types.ResourceKind, localPath string) error {
	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO resources(url, kind, local_path) VALUES (?, ?, ?)`,
		url, kind.String(), localPath,
	)
	if err != nil {
		return fmt.Errorf("failed to save resource %s: %w", url, err)
	}
	return nil
}

// LoadResources returns every persisted resource entry
func (l *Ledger) LoadResources() ([]types.ResourceEntry, error) {
	rows, err := l.db.Query(`SELECT url, kind, local_path FROM resources ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}
	defer rows.Close()

	entries := make([]types.ResourceEntry, 0)
	for rows.Next() {
		var entry types.ResourceEntry
		var kind string
		if err := rows.Scan(&entry.URL, &kind, &entry.LocalPath); err != nil {
			return nil, err
		}
		k, ok := types.KindFromString(kind)
		if !ok {
			continue
		}
		entry.Kind = k
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}
