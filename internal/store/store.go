// Package store persists the installation state of every provisioned
// target. State lives in a single JSON document written atomically, so an
// interrupted run never leaves a corrupt record behind.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Record is the persisted installation state of one target (or one
// component, keyed "base/component").
type Record struct {
	TargetID       string    `json:"target_id"`
	Version        string    `json:"version"`
	InstallRoot    string    `json:"install_root"`
	ExecutablePath string    `json:"executable_path,omitempty"`
	InstalledAt    time.Time `json:"installed_at"`
	// SetupComplete is true once every first-run setup action for the
	// target has finished.
	SetupComplete bool `json:"setup_complete"`
}

// Store persists installation records.
type Store interface {
	Get(targetID string) (*Record, bool, error)
	Put(rec *Record) error
	Delete(targetID string) error
	List() ([]*Record, error)
}

// document is the on-disk shape. Version gates future schema changes.
type document struct {
	Version int                `json:"version"`
	Targets map[string]*Record `json:"targets"`
}

// FileStore is a Store backed by a JSON file. Writes are atomic
// (write-then-rename) and serialized by an in-process mutex; cross-process
// exclusion is the install lock's job.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store persisting to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &document{Version: 1, Targets: map[string]*Record{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal state file: %w", err)
	}
	if doc.Targets == nil {
		doc.Targets = map[string]*Record{}
	}
	return &doc, nil
}

func (s *FileStore) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename state file: %w", err)
	}

	// Sync directory for durability
	if df, err := os.Open(filepath.Dir(s.path)); err == nil {
		df.Sync()
		df.Close()
	}
	return nil
}

// Get returns the record for targetID.
func (s *FileStore) Get(targetID string) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, false, err
	}
	rec, ok := doc.Targets[targetID]
	return rec, ok, nil
}

// Put inserts or replaces a record.
func (s *FileStore) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Targets[rec.TargetID] = rec
	return s.save(doc)
}

// Delete removes a record. Deleting an absent record is not an error.
func (s *FileStore) Delete(targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Targets[targetID]; !ok {
		return nil
	}
	delete(doc.Targets, targetID)
	return s.save(doc)
}

// List returns all records sorted by target id.
func (s *FileStore) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(doc.Targets))
	for _, rec := range doc.Targets {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: map[string]*Record{}}
}

func (s *MemStore) Get(targetID string) (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[targetID]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	return &cp, true, nil
}

func (s *MemStore) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.TargetID] = &cp
	return nil
}

func (s *MemStore) Delete(targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, targetID)
	return nil
}

func (s *MemStore) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}
