// Package audit keeps the append-only log of submitted determinations and
// derives read-only projections from it.
package audit

import (
	"context"
	"errors"
	"sync"

	"github.com/admitguard/admitguard/internal/models"
)

var (
	ErrDuplicateID = errors.New("audit record id already exists")
	ErrEmptyLog    = errors.New("audit log is empty")
)

// Store is the audit log. Records are never modified after Append; the only
// deletion is Clear, which empties the whole log.
type Store interface {
	// Append adds a record as the most recent entry.
	Append(ctx context.Context, rec models.AuditRecord) error
	// List returns all records, most recent first.
	List(ctx context.Context) ([]models.AuditRecord, error)
	// Clear removes every record.
	Clear(ctx context.Context) error
}

// MemoryStore keeps records for the life of the process
type MemoryStore struct {
	mu      sync.Mutex
	records []models.AuditRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == rec.ID {
			return ErrDuplicateID
		}
	}
	s.records = append([]models.AuditRecord{rec}, s.records...)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.AuditRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
