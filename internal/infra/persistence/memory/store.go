// Package memory holds the merged database in process memory. Used by
// tests and ephemeral runs where no compiled database file is wanted.
package memory

import (
	"context"
	"sync"

	"swatch/internal/merge"
)

// Store keeps the last saved merge result.
type Store struct {
	mu  sync.Mutex
	res merge.Result
	ok  bool
}

// NewStore returns an empty in-memory store.
func NewStore() *Store { return &Store{} }

// Save retains the merge result.
func (s *Store) Save(_ context.Context, res merge.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = res
	s.ok = true
	return nil
}

// Result returns the last saved result and whether one exists.
func (s *Store) Result() (merge.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res, s.ok
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
