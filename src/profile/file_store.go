package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps records in a JSON object file, keyed like browser
// local storage. Other keys in the file are preserved.
type FileStore struct {
	path string
	key  string
	mu   sync.Mutex
}

// NewFileStore creates a store for key inside the file at path.
func NewFileStore(path, key string) *FileStore {
	if key == "" {
		key = DefaultKey
	}
	return &FileStore{path: path, key: key}
}

// Load reads the record.
func (s *FileStore) Load() (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return Default(), err
	}
	raw, ok := entries[s.key]
	if !ok {
		return Default(), ErrNotFound
	}
	return Decode(raw)
}

// Save writes the record, replacing the file atomically.
func (s *FileStore) Save(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil && !errors.Is(err, ErrMalformedProfile) {
		return err
	}
	if entries == nil {
		entries = map[string]json.RawMessage{}
	}

	raw, err := Encode(p)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistenceUnavailable, err)
	}
	entries[s.key] = raw
	return s.writeAll(entries)
}

// Clear removes the record.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		if errors.Is(err, ErrMalformedProfile) {
			// Nothing salvageable, start over
			return s.writeAll(map[string]json.RawMessage{})
		}
		return err
	}
	if _, ok := entries[s.key]; !ok {
		return nil
	}
	delete(entries, s.key)
	return s.writeAll(entries)
}

func (s *FileStore) readAll() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistenceUnavailable, s.path, err)
	}
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedProfile, s.path, err)
	}
	return entries, nil
}

func (s *FileStore) writeAll(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistenceUnavailable, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPersistenceUnavailable, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".profile-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistenceUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistenceUnavailable, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistenceUnavailable, err)
	}
	return nil
}
