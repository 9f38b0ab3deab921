// Package results provides translation result management functionality.
// It keeps a JSON-persisted library of completed translation sessions.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	// LibraryFileName is the name of the persisted library index
	LibraryFileName = "library.json"
)

// Record 翻译记录
type Record struct {
	SessionID          string    `json:"session_id"`
	Filename           string    `json:"filename"`
	SourceLang         string    `json:"source_lang"`
	TargetLang         string    `json:"target_lang"`
	TranslatedLocation string    `json:"translated_location"`
	TranslatedPath     string    `json:"translated_path,omitempty"` // local copy, if downloaded
	SegmentEdits       int       `json:"segment_edits"`
	TranslatedAt       time.Time `json:"translated_at"`
}

// Manager manages the translation library stored in the user directory.
type Manager struct {
	baseDir string
	mu      sync.RWMutex
	records map[string]*Record // key: session id
}

// NewManager creates a new library manager rooted at baseDir.
// An empty baseDir defaults to ~/.pdf-translator/library.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".pdf-translator", "library")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}

	m := &Manager{
		baseDir: baseDir,
		records: make(map[string]*Record),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetBaseDir returns the library base directory.
func (m *Manager) GetBaseDir() string {
	return m.baseDir
}

// indexPath returns the path of the persisted index file.
func (m *Manager) indexPath() string {
	return filepath.Join(m.baseDir, LibraryFileName)
}

// load reads the persisted index. A missing file yields an empty library.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read library index: %w", err)
	}

	var records []*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse library index: %w", err)
	}

	for _, rec := range records {
		m.records[rec.SessionID] = rec
	}
	return nil
}

// save persists the index. Caller must hold the write lock.
func (m *Manager) save() error {
	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].TranslatedAt.After(records[j].TranslatedAt)
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize library index: %w", err)
	}
	if err := os.WriteFile(m.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write library index: %w", err)
	}
	return nil
}

// Add records a completed translation session and persists the index.
// Recording the same session id again overwrites the previous record.
func (m *Manager) Add(rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.TranslatedAt.IsZero() {
		rec.TranslatedAt = time.Now()
	}
	m.records[rec.SessionID] = rec
	return m.save()
}

// SetTranslatedPath updates the local download path of a record.
func (m *Manager) SetTranslatedPath(sessionID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return fmt.Errorf("no library record for session %s", sessionID)
	}
	rec.TranslatedPath = path
	return m.save()
}

// Get returns the record for a session id.
func (m *Manager) Get(sessionID string) (*Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return nil, false
	}
	copied := *rec
	return &copied, true
}

// List returns all records, most recent first.
func (m *Manager) List() []*Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		copied := *rec
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].TranslatedAt.After(records[j].TranslatedAt)
	})
	return records
}

// Delete removes a record and persists the index.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[sessionID]; !ok {
		return fmt.Errorf("no library record for session %s", sessionID)
	}
	delete(m.records, sessionID)
	return m.save()
}

// Count returns the number of records in the library.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
