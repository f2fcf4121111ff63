package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
    key TEXT PRIMARY KEY,
    sections TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore persists cache entries in a SQLite database so repeated runs
// reuse earlier segmentation results.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens the cache database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL lets a fresh process read while this run is still writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (creating if needed) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// OpenStore opens the persistent store at dbPath, degrading to an empty
// in-memory store with a warning when the database is unreadable or
// malformed. Cache storage problems must never be fatal at startup.
func OpenStore(dbPath string, logger *slog.Logger) Store {
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn("cache store unavailable, starting with empty in-memory cache",
			slog.String("path", dbPath), slog.String("error", err.Error()))
		return NewMemoryStore()
	}
	return store
}

// Get implements Store. A row whose payload no longer decodes is treated
// as absent.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT sections, created_at FROM responses WHERE key = ?", key)

	var payload string
	var createdAt time.Time
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("cache: read key %s: %w", key, err)
	}

	entry := Entry{Key: key, CreatedAt: createdAt}
	if err := json.Unmarshal([]byte(payload), &entry.Sections); err != nil {
		return Entry{}, false, fmt.Errorf("cache: decode key %s: %w", key, err)
	}
	return entry, true, nil
}

// Put implements Store. Existing keys are left untouched; the Cache layer
// has already enforced value purity.
func (s *SQLiteStore) Put(ctx context.Context, entry Entry) error {
	payload, err := json.Marshal(entry.Sections)
	if err != nil {
		return fmt.Errorf("cache: encode key %s: %w", entry.Key, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO responses (key, sections, created_at) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING",
		entry.Key, string(payload), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("cache: write key %s: %w", entry.Key, err)
	}
	return nil
}

// Len implements Store.
func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
