// Package memory provides the hive's collective memory: a namespaced
// key-value store with optional expiry, backed by SQLite. Agents and
// the hive registry use it to share findings and archive task results
// across runs.
package memory

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one remembered value.
type Entry struct {
	Namespace   string
	Key         string
	Value       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ExpiresAt   *time.Time
	AccessCount int
}

// Store manages collective memory entries.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the project-local memory database path.
func DefaultPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".hiveflow", "memory.db")
}

// NewStore creates a new Store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_entries (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			expires_at DATETIME,
			access_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (namespace, key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Store{db: db}, nil
}

// Put stores a value under namespace/key, replacing any earlier value.
// A zero ttl means the entry never expires.
func (s *Store) Put(namespace, key, value string, ttl time.Duration) error {
	now := time.Now().UTC()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	_, err := s.db.Exec(`
		INSERT INTO memory_entries (namespace, key, value, created_at, updated_at, expires_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`, namespace, key, value, now, now, expiresAt)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// Get retrieves an entry and bumps its access counter.
// Returns nil if the entry does not exist or has expired.
func (s *Store) Get(namespace, key string) (*Entry, error) {
	row := s.db.QueryRow(`
		SELECT namespace, key, value, created_at, updated_at, expires_at, access_count
		FROM memory_entries
		WHERE namespace = ? AND key = ?
	`, namespace, key)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if entry.expired(time.Now()) {
		return nil, nil
	}

	if _, err := s.db.Exec(`
		UPDATE memory_entries SET access_count = access_count + 1
		WHERE namespace = ? AND key = ?
	`, namespace, key); err != nil {
		return nil, fmt.Errorf("bump access count: %w", err)
	}
	entry.AccessCount++

	return entry, nil
}

// List returns a namespace's live entries, most recently updated first.
func (s *Store) List(namespace string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT namespace, key, value, created_at, updated_at, expires_at, access_count
		FROM memory_entries
		WHERE namespace = ?
		ORDER BY updated_at DESC
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if entry.expired(now) {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Namespaces returns every namespace that holds at least one entry.
func (s *Store) Namespaces() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT namespace FROM memory_entries ORDER BY namespace
	`)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var namespaces []string
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

// Delete removes an entry.
func (s *Store) Delete(namespace, key string) error {
	_, err := s.db.Exec(`
		DELETE FROM memory_entries WHERE namespace = ? AND key = ?
	`, namespace, key)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries. Returns the number removed.
func (s *Store) Cleanup() (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM memory_entries
		WHERE expires_at IS NOT NULL AND expires_at < ?
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup entries: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (e *Entry) expired(now time.Time) bool {
	return e.ExpiresAt != nil && e.ExpiresAt.Before(now)
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var expiresAt sql.NullTime
	err := row.Scan(&e.Namespace, &e.Key, &e.Value, &e.CreatedAt, &e.UpdatedAt, &expiresAt, &e.AccessCount)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	return &e, nil
}
