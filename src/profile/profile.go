// Package profile persists the orb's slow memory of past visits.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultKey is the storage key the record lives under.
const DefaultKey = "visimos_v6_profile"

var (
	// ErrNotFound means no record has been saved yet.
	ErrNotFound = errors.New("profile not found")
	// ErrPersistenceUnavailable means the store could not be read or written.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrMalformedProfile means a stored record could not be decoded or is out of range.
	ErrMalformedProfile = errors.New("malformed persisted profile")
)

// Profile is the persisted session-level trait.
type Profile struct {
	Visits   int        `json:"visits"`
	Warmth   float64    `json:"warmth"`
	LastSeen *time.Time `json:"lastSeen"`
}

// Default is the record used when nothing usable is stored.
func Default() Profile {
	return Profile{Visits: 0, Warmth: 0.5, LastSeen: nil}
}

// Touch records a qualifying visit.
func (p *Profile) Touch(now time.Time) {
	p.Visits++
	seen := now.UTC()
	p.LastSeen = &seen
}

// AdjustWarmth shifts the trait, clamped to [0,1].
func (p *Profile) AdjustWarmth(delta float64) {
	p.Warmth = max(0, min(1, p.Warmth+delta))
}

// Validate checks the record's ranges.
func (p Profile) Validate() error {
	if p.Visits < 0 {
		return fmt.Errorf("%w: visits %d", ErrMalformedProfile, p.Visits)
	}
	if math.IsNaN(p.Warmth) || p.Warmth < 0 || p.Warmth > 1 {
		return fmt.Errorf("%w: warmth %v", ErrMalformedProfile, p.Warmth)
	}
	return nil
}

// Decode parses a stored record. Missing fields keep their defaults.
func Decode(raw []byte) (Profile, error) {
	p := Default()
	if err := json.Unmarshal(raw, &p); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	if err := p.Validate(); err != nil {
		return Default(), err
	}
	return p, nil
}

// Encode serializes a record for storage.
func Encode(p Profile) ([]byte, error) {
	return json.Marshal(p)
}

// Store is a key-value backend for one profile record.
type Store interface {
	// Load returns ErrNotFound when nothing is stored.
	Load() (Profile, error)
	Save(p Profile) error
	Clear() error
}
