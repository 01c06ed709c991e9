// Package store persists dejavu's key-value JSON records in SQLite.
//
// The on-device model is a flat string-key -> JSON-value map. Every record
// the product owns lives under a well-known key shape:
//
//	goals_{categoryTitle}_{categoryType}   -> ordered []IndividualGoal
//	progress_path_{categoryId}             -> ProgressPath
//	shared_context_data                    -> SharedContextData (all tabs)
//	category_created_{title}_{type}        -> RFC3339 timestamp string
//	daily_summary_{date}                   -> DailySummary
//	vision_file                            -> VisionFile
//	categories                             -> []Category
//	dark_mode                              -> bool
//
// There is no server-side source of truth; the local store owns everything.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dejavu/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// LocalStore is the single persisted record store. All access goes through
// its methods; the mutex makes individual operations atomic but provides no
// atomicity across a caller's read-modify-write sequence.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
// Use ":memory:" in tests.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	store := &LocalStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("LocalStore initialization complete")
	return store, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create kv_records table: %w", err)
	}
	return nil
}

// Put stores a raw JSON value under key, replacing any previous value.
func (s *LocalStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("Put key=%s value_len=%d", key, len(value))

	_, err := s.db.Exec(
		`INSERT INTO kv_records (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(value),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to put key %s: %v", key, err)
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

// Get retrieves the raw JSON value under key. Missing keys return
// (nil, false, nil) rather than an error.
func (s *LocalStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM kv_records WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to get key %s: %v", key, err)
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (s *LocalStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM kv_records WHERE key = ?", key); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to delete key %s: %v", key, err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys returns all keys with the given prefix, sorted.
func (s *LocalStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT key FROM kv_records WHERE key LIKE ? ORDER BY key", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ResetAll wipes every persisted record. This backs the user-facing
// "Reset All" action; there is no finer-grained recovery path.
func (s *LocalStore) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.Store("ResetAll: wiping all records")
	if _, err := s.db.Exec("DELETE FROM kv_records"); err != nil {
		logging.Get(logging.CategoryStore).Error("ResetAll failed: %v", err)
		return fmt.Errorf("failed to reset store: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
