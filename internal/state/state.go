// Package state persists last-known launch hints (pid, port, command) to a
// JSON file. It does not guarantee the processes are alive; the supervisor
// verifies reality against ports before trusting a hint.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is the persisted hint for one worker.
type Record struct {
	PID       int       `json:"pid"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Cmd       []string  `json:"cmd"`
	WorkDir   string    `json:"workdir"`
	StartedAt time.Time `json:"started_at"`
}

type document struct {
	Apps map[string]Record `json:"apps"`
}

// Store reads and writes the hint file. All operations take the whole file
// under a mutex; the file is small and rewritten atomically.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates the parent directory and seeds an empty document if the file
// does not exist yet.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty state path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(document{Apps: map[string]Record{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) read() document {
	doc := document{Apps: map[string]Record{}}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}
	// A corrupt file is treated as empty rather than fatal.
	if err := json.Unmarshal(b, &doc); err != nil || doc.Apps == nil {
		return document{Apps: map[string]Record{}}
	}
	return doc
}

func (s *Store) write(doc document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Get returns the record for name and whether it exists.
func (s *Store) Get(name string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.read().Apps[name]
	return rec, ok
}

// All returns every stored record keyed by worker name.
func (s *Store) All() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().Apps
}

// Upsert stores the record for name.
func (s *Store) Upsert(name string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	doc.Apps[name] = rec
	return s.write(doc)
}

// Delete removes the record for name if present.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read()
	if _, ok := doc.Apps[name]; !ok {
		return nil
	}
	delete(doc.Apps, name)
	return s.write(doc)
}
