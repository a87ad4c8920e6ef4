// Package store provides SQLite persistence for list snapshots.
//
// A snapshot is the last good record set fetched for a resource and query.
// The console reads one back when the backend is unreachable and nothing
// has been fetched yet in the session.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/fmconsole/internal/model"
	"github.com/abelbrown/fmconsole/internal/paging"
)

// ErrNotFound is returned when no snapshot matches.
var ErrNotFound = errors.New("snapshot not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Snapshot is a stored record set.
type Snapshot struct {
	Resource string
	// QueryKey identifies the request the records answer; see QueryKey.
	QueryKey  string
	Records   []model.Record
	Meta      *paging.Meta
	FetchedAt time.Time
}

// SnapshotInfo describes a snapshot without loading its records.
type SnapshotInfo struct {
	Resource    string
	QueryKey    string
	RecordCount int
	Bytes       int
	FetchedAt   time.Time
}

// QueryKey canonicalizes request parameters so equal queries share a key.
// Credentials are never part of the key.
func QueryKey(params url.Values) string {
	if len(params) == 0 {
		return ""
	}
	q := make(url.Values, len(params))
	for k, v := range params {
		if k == "access_token" {
			continue
		}
		q[k] = v
	}
	return q.Encode()
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		resource TEXT NOT NULL,
		query_key TEXT NOT NULL DEFAULT '',
		records TEXT NOT NULL,
		meta TEXT,
		record_count INTEGER NOT NULL,
		fetched_at DATETIME NOT NULL,
		PRIMARY KEY (resource, query_key)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_fetched ON snapshots(resource, fetched_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveSnapshot stores snap, replacing any snapshot with the same resource
// and query key. A zero FetchedAt is set to now.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	if snap.Resource == "" {
		return errors.New("save snapshot: resource is required")
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}

	records, err := model.EncodeRecords(snap.Records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	var meta sql.NullString
	if snap.Meta != nil {
		data, err := encodeMeta(*snap.Meta)
		if err != nil {
			return fmt.Errorf("encode meta: %w", err)
		}
		meta = sql.NullString{String: data, Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO snapshots (resource, query_key, records, meta, record_count, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.Resource, snap.QueryKey, string(records), meta, len(snap.Records), snap.FetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.Resource, err)
	}
	return nil
}

// LoadSnapshot returns the snapshot for resource and queryKey.
func (s *Store) LoadSnapshot(resource, queryKey string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT resource, query_key, records, meta, fetched_at
		FROM snapshots
		WHERE resource = ? AND query_key = ?
	`, resource, queryKey)
	return scanSnapshot(row)
}

// LatestSnapshot returns the most recently fetched snapshot for resource,
// whatever its query.
func (s *Store) LatestSnapshot(resource string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT resource, query_key, records, meta, fetched_at
		FROM snapshots
		WHERE resource = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`, resource)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*Snapshot, error) {
	var (
		snap    Snapshot
		records string
		meta    sql.NullString
	)
	err := row.Scan(&snap.Resource, &snap.QueryKey, &records, &meta, &snap.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap.Records, err = model.DecodeRecords([]byte(records))
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if meta.Valid {
		m, err := decodeMeta(meta.String)
		if err != nil {
			return nil, fmt.Errorf("decode meta: %w", err)
		}
		snap.Meta = &m
	}
	return &snap, nil
}

// ListSnapshots describes every stored snapshot, newest first.
func (s *Store) ListSnapshots() ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT resource, query_key, record_count, length(records), fetched_at
		FROM snapshots
		ORDER BY fetched_at DESC, resource
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Resource, &info.QueryKey, &info.RecordCount, &info.Bytes, &info.FetchedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// DeleteSnapshots removes every snapshot of resource and returns how many
// were removed.
func (s *Store) DeleteSnapshots(resource string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM snapshots WHERE resource = ?", resource)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Prune removes snapshots fetched before cutoff.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM snapshots WHERE fetched_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func encodeMeta(m paging.Meta) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMeta(s string) (paging.Meta, error) {
	var m paging.Meta
	err := json.Unmarshal([]byte(s), &m)
	return m, err
}
