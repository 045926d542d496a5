package profile

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// MemoryStore keeps the record in process. Fail* errors are returned
// from the matching call when set.
type MemoryStore struct {
	mu        sync.Mutex
	raw       []byte
	FailLoad  error
	FailSave  error
	FailClear error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetRaw installs an arbitrary encoded record.
func (s *MemoryStore) SetRaw(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = append([]byte(nil), raw...)
}

func (s *MemoryStore) Load() (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLoad != nil {
		return Default(), s.FailLoad
	}
	if s.raw == nil {
		return Default(), ErrNotFound
	}
	return Decode(s.raw)
}

func (s *MemoryStore) Save(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	raw, err := Encode(p)
	if err != nil {
		return err
	}
	s.raw = raw
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailClear != nil {
		return s.FailClear
	}
	s.raw = nil
	return nil
}

// Manager wraps a Store so that no persistence failure escapes.
type Manager struct {
	store Store
	log   zerolog.Logger
}

// NewManager wraps store. A nil store behaves as permanently unavailable.
func NewManager(store Store, log zerolog.Logger) *Manager {
	return &Manager{store: store, log: log.With().Str("component", "profile").Logger()}
}

// Load returns the stored profile and whether an existing record was found.
// Any failure yields the default profile.
func (m *Manager) Load() (Profile, bool) {
	if m.store == nil {
		m.log.Warn().Err(ErrPersistenceUnavailable).Msg("no profile store, using default")
		return Default(), false
	}

	p, err := m.store.Load()
	switch {
	case err == nil:
		return p, true
	case errors.Is(err, ErrNotFound):
		return Default(), false
	case errors.Is(err, ErrMalformedProfile):
		m.log.Warn().Err(err).Msg("discarding stored profile")
		return Default(), false
	default:
		m.log.Warn().Err(err).Msg("profile load failed, using default")
		return Default(), false
	}
}

// Save persists p. Failures are logged and reported to the caller only
// as a bool.
func (m *Manager) Save(p Profile) bool {
	if m.store == nil {
		return false
	}
	if err := m.store.Save(p); err != nil {
		m.log.Warn().Err(err).Int("visits", p.Visits).Msg("profile save failed")
		return false
	}
	m.log.Debug().Int("visits", p.Visits).Float64("warmth", p.Warmth).Msg("profile saved")
	return true
}

// Clear removes the stored record.
func (m *Manager) Clear() bool {
	if m.store == nil {
		return false
	}
	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("profile clear failed")
		return false
	}
	m.log.Info().Msg("profile cleared")
	return true
}
