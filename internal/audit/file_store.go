package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/admitguard/admitguard/internal/models"
)

// FileStore persists the log as one JSON array, most recent first.
// Every write replaces the file through a temp file and rename, so a crash
// leaves either the old or the new log.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the parent directory if needed
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path of the backing file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Append(ctx context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == rec.ID {
			return ErrDuplicateID
		}
	}
	return s.write(append([]models.AuditRecord{rec}, records...))
}

func (s *FileStore) List(ctx context.Context) ([]models.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear audit log: %w", err)
	}
	return nil
}

func (s *FileStore) read() ([]models.AuditRecord, error) {
	// #nosec G304 -- path is operator-provided audit path.
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.AuditRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	if len(data) == 0 {
		return []models.AuditRecord{}, nil
	}

	var records []models.AuditRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse audit log: %w", err)
	}
	return records, nil
}

func (s *FileStore) write(records []models.AuditRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".audit-*.json")
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace audit log: %w", err)
	}
	return nil
}
