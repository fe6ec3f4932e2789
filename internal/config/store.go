package config

import (
	"sync"
)

// Store holds the current configuration table and swaps it atomically
// on reload. A failed reload keeps the previous table, so the system
// is never left without configuration.
type Store struct {
	mu    sync.RWMutex
	path  string
	table Table
}

// NewStore loads the initial configuration. A failure here is fatal to
// startup, unlike reload failures later.
func NewStore(path string) (*Store, error) {
	table, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, table: table}, nil
}

// Path returns the backing config file path.
func (s *Store) Path() string {
	return s.path
}

// Current returns the latest published table.
func (s *Store) Current() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Reload re-parses the backing file and publishes the new table. On a
// parse error the previous table stays active and the error is
// returned for the caller to log. Returns the table that was current
// before the reload so callers can diff.
func (s *Store) Reload() (previous Table, err error) {
	table, err := Load(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.table
	if err != nil {
		return previous, err
	}
	s.table = table
	return previous, nil
}
