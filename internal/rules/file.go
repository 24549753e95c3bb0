package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/admitguard/admitguard/internal/models"
	"gopkg.in/yaml.v3"
)

// Persister stores the editable segment between runs
type Persister interface {
	Load() (models.Tunables, error)
	Save(t models.Tunables) error
}

// FilePersister keeps tunables in a YAML file
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path of the backing file
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads the file and overlays it on the defaults. Keys absent from the
// file keep their default value. A missing file yields the defaults.
func (p *FilePersister) Load() (models.Tunables, error) {
	t := DefaultTunables()

	// #nosec G304 -- path is operator-provided rules path.
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return models.Tunables{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	return MergeOverDefaults(data)
}

// MergeOverDefaults parses a YAML (or JSON) tunables document on top of the defaults
func MergeOverDefaults(data []byte) (models.Tunables, error) {
	return MergeOver(DefaultTunables(), data)
}

// MergeOver parses a YAML (or JSON) tunables document on top of base.
// A keyword list in data replaces the base list.
func MergeOver(base models.Tunables, data []byte) (models.Tunables, error) {
	t := base.Clone()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return models.Tunables{}, fmt.Errorf("failed to parse rules: %w", err)
	}
	return t, nil
}

// Save writes the tunables through a temp file and rename
func (p *FilePersister) Save(t models.Tunables) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rules-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}
