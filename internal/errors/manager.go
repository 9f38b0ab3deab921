// Package errors provides failure tracking for the translation workflow.
// Failed operations are journaled per session so the user can see what
// went wrong and retry.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FailureStage 失败阶段枚举
type FailureStage string

const (
	StageUpload    FailureStage = "upload"
	StageExtract   FailureStage = "extract"
	StageUpdate    FailureStage = "update"
	StageTranslate FailureStage = "translate"
	StageDownload  FailureStage = "download"
	StageCleanup   FailureStage = "cleanup"
)

// FailureRecord 失败记录
type FailureRecord struct {
	SessionID  string       `json:"session_id"`
	Filename   string       `json:"filename"`
	Input      string       `json:"input,omitempty"` // 原始输入（路径或 URL）
	Stage      FailureStage `json:"stage"`
	ErrorMsg   string       `json:"error_msg"`
	Timestamp  time.Time    `json:"timestamp"`
	RetryCount int          `json:"retry_count"`
	LastRetry  time.Time    `json:"last_retry,omitempty"`
}

// Manager 失败记录管理器
type Manager struct {
	baseDir string
	mu      sync.RWMutex
	records map[string]*FailureRecord // key: sessionID + "/" + stage
}

// NewManager creates a new failure journal rooted at baseDir.
// An empty baseDir defaults to ~/.pdf-translator/failures.
func NewManager(baseDir string) (*Manager, error) {
	if baseDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".pdf-translator", "failures")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create failures directory: %w", err)
	}

	m := &Manager{
		baseDir: baseDir,
		records: make(map[string]*FailureRecord),
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// journalPath returns the path of the persisted journal file.
func (m *Manager) journalPath() string {
	return filepath.Join(m.baseDir, "failures.json")
}

func key(sessionID string, stage FailureStage) string {
	return sessionID + "/" + string(stage)
}

// load reads the persisted journal. A missing file yields an empty journal.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.journalPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read failure journal: %w", err)
	}

	var records []*FailureRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse failure journal: %w", err)
	}
	for _, rec := range records {
		m.records[key(rec.SessionID, rec.Stage)] = rec
	}
	return nil
}

// save persists the journal. Caller must hold the write lock.
func (m *Manager) save() error {
	records := make([]*FailureRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize failure journal: %w", err)
	}
	if err := os.WriteFile(m.journalPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write failure journal: %w", err)
	}
	return nil
}

// Record journals a failure. Recording the same session/stage again counts
// as a retry of that stage.
func (m *Manager) Record(sessionID, filename, input string, stage FailureStage, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(sessionID, stage)
	if existing, ok := m.records[k]; ok {
		existing.ErrorMsg = errorMsg
		existing.RetryCount++
		existing.LastRetry = time.Now()
	} else {
		m.records[k] = &FailureRecord{
			SessionID: sessionID,
			Filename:  filename,
			Input:     input,
			Stage:     stage,
			ErrorMsg:  errorMsg,
			Timestamp: time.Now(),
		}
	}
	return m.save()
}

// List returns all failure records, most recent first.
func (m *Manager) List() []*FailureRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*FailureRecord, 0, len(m.records))
	for _, rec := range m.records {
		copied := *rec
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}

// ClearSession removes all records for one session.
func (m *Manager) ClearSession(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for k, rec := range m.records {
		if rec.SessionID == sessionID {
			delete(m.records, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return m.save()
}

// Count returns the number of journaled failures.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
