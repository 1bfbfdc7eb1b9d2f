// Package history implements the run history store: published packages
// retained for later listing and retrieval.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/campflow/campflow/pkg/api"
)

// DefaultListLimit caps List results when the caller does not set a limit.
const DefaultListLimit = 20

// MemoryStore is a goroutine-safe HistoryStore backed by a slice. Reads
// tolerate a concurrent append from a finishing run.
type MemoryStore struct {
	mu   sync.RWMutex
	pkgs []api.PublishedPackage
}

var _ api.HistoryStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, pkg api.PublishedPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.pkgs {
		if existing.ID == pkg.ID {
			return fmt.Errorf("duplicate package id: %s", pkg.ID)
		}
	}
	s.pkgs = append(s.pkgs, pkg)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]api.PublishedPackage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Appends arrive in completion order; list most recent first.
	out := make([]api.PublishedPackage, 0, min(limit, len(s.pkgs)))
	for i := len(s.pkgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.pkgs[i])
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (api.PublishedPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pkg := range s.pkgs {
		if pkg.ID == id {
			return pkg, nil
		}
	}
	return api.PublishedPackage{}, api.ErrPackageNotFound
}
