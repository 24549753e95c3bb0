package rules

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/admitguard/admitguard/internal/models"
)

// Store owns the single authoritative schema. Readers take a snapshot with
// Current; Commit replaces it wholesale or not at all.
type Store struct {
	strict  *StrictSet
	persist Persister
	current atomic.Pointer[Schema]
	mu      sync.Mutex // serializes commits
}

// NewStore starts from initial, which must pass Validate. persist may be nil.
func NewStore(strict *StrictSet, initial models.Tunables, persist Persister) (*Store, error) {
	if err := Validate(initial); err != nil {
		return nil, err
	}
	schema, err := NewSchema(strict, initial)
	if err != nil {
		return nil, err
	}
	s := &Store{strict: strict, persist: persist}
	s.current.Store(schema)
	return s, nil
}

// Open loads persisted tunables over the defaults and returns a store backed by p
func Open(p Persister) (*Store, error) {
	strict, err := DefaultStrict()
	if err != nil {
		return nil, err
	}
	t, err := p.Load()
	if err != nil {
		return nil, err
	}
	if err := Validate(t); err != nil {
		return nil, fmt.Errorf("persisted rules rejected: %w", err)
	}
	return NewStore(strict, t, p)
}

// Current schema snapshot
func (s *Store) Current() *Schema {
	return s.current.Load()
}

// Check validates a proposal and reports what it would change, without committing
func (s *Store) Check(proposed models.Tunables) ([]Change, error) {
	if err := Validate(proposed); err != nil {
		return nil, err
	}
	return Diff(s.Current().Tunables(), proposed)
}

// Commit validates, persists and swaps in proposed. On any error the current
// schema is left untouched.
func (s *Store) Commit(proposed models.Tunables) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes, err := s.Check(proposed)
	if err != nil {
		return nil, err
	}
	next, err := NewSchema(s.strict, proposed)
	if err != nil {
		return nil, err
	}

	if s.persist != nil {
		if err := s.persist.Save(proposed); err != nil {
			return nil, err
		}
	}
	s.current.Store(next)
	return changes, nil
}

// Reset commits the built-in defaults
func (s *Store) Reset() ([]Change, error) {
	return s.Commit(DefaultTunables())
}
