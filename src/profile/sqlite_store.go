package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the record in a key/value table.
type SQLiteStore struct {
	db  *sql.DB
	key string
	mu  sync.Mutex
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
func NewSQLiteStore(dbPath, key string) (*SQLiteStore, error) {
	if key == "" {
		key = DefaultKey
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create database directory: %v", ErrPersistenceUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrPersistenceUnavailable, err)
	}
	// One connection so :memory: databases are shared across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrPersistenceUnavailable, err)
	}

	s := &SQLiteStore{db: db, key: key}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate database: %v", ErrPersistenceUnavailable, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`)
	return err
}

// Load reads the record.
func (s *SQLiteStore) Load() (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, s.key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Default(), ErrNotFound
	}
	if err != nil {
		return Default(), fmt.Errorf("%w: query: %v", ErrPersistenceUnavailable, err)
	}
	return Decode([]byte(raw))
}

// Save upserts the record.
func (s *SQLiteStore) Save(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := Encode(p)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistenceUnavailable, err)
	}

	_, err = s.db.Exec(`
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, s.key, string(raw))
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrPersistenceUnavailable, err)
	}
	return nil
}

// Clear deletes the record.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrPersistenceUnavailable, err)
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
