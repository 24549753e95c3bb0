package rules

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JournalSchemaVersion of each journal line
const JournalSchemaVersion = "1.0"

// JournalEntry records one committed rule edit
type JournalEntry struct {
	SchemaVersion string    `json:"schema_version"`
	OpID          string    `json:"op_id,omitempty"`
	Timestamp     time.Time `json:"ts"`
	Action        string    `json:"action"` // set or reset
	From          string    `json:"from"`
	To            string    `json:"to"`
	Changes       []Change  `json:"changes"`
}

// Journal is an append-only JSONL history of rule edits
type Journal struct {
	path string
	mu   sync.Mutex
}

func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Append writes one entry as a line
func (j *Journal) Append(e JournalEntry) error {
	if e.SchemaVersion == "" {
		e.SchemaVersion = JournalSchemaVersion
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open rules journal: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write rules journal: %w", err)
	}
	return f.Close()
}

// Entries returns the history, most recent first. Lines that do not parse
// are skipped.
func (j *Journal) Entries() ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// #nosec G304 -- path is operator-provided journal path.
	f, err := os.Open(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open rules journal: %w", err)
	}
	defer f.Close()

	var entries []JournalEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var e JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules journal: %w", err)
	}

	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}
