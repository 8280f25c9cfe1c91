// Package policy keeps the admin and blacklist sets behind a
// storage.Backend. It translates membership queries and additions into
// loads and whole-document saves of two fixed keys, and owns the
// first-admin bootstrap rule.
package policy

import (
	"fmt"
	"slices"
	"sync"

	"github.com/onnwee/bili-relay/storage"
)

const (
	adminsKey    = "admins"
	blacklistKey = "blacklist"
)

// Store gates access by user id. All methods are safe for concurrent use;
// the mutex serializes read-modify-write cycles so racing callers cannot
// both win the first-admin bootstrap.
type Store struct {
	mu      sync.Mutex
	backend storage.Backend
}

// NewStore wraps the backend selected at startup.
func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) load(key string) []int64 {
	ids := []int64{}
	_ = s.backend.LoadJSON(key, &ids)
	return ids
}

// IsAdmin reports whether id is in the admin set.
func (s *Store) IsAdmin(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.load(adminsKey), id)
}

// ListAdmins returns the current admin set.
func (s *Store) ListAdmins() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(adminsKey)
}

// AddAdmin adds id to the admin set. Adding an existing admin is a no-op.
func (s *Store) AddAdmin(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(adminsKey, id)
}

// IsBlacklisted reports whether id is in the blacklist.
func (s *Store) IsBlacklisted(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.load(blacklistKey), id)
}

// AddToBlacklist adds id to the blacklist.
func (s *Store) AddToBlacklist(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(blacklistKey, id)
}

func (s *Store) add(key string, id int64) error {
	ids := s.load(key)
	if slices.Contains(ids, id) {
		return nil
	}
	ids = append(ids, id)
	if err := s.backend.SaveJSON(key, ids); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}

// BootstrapAdmin promotes id to the sole admin if and only if no admins
// exist yet. The check and the promotion happen under one lock, so exactly
// one of several racing callers wins. Returns true when id became the
// first admin.
func (s *Store) BootstrapAdmin(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.load(adminsKey)) > 0 {
		return false
	}
	if err := s.backend.SaveJSON(adminsKey, []int64{id}); err != nil {
		// The env backend discards the write but still reports success;
		// a real write failure leaves the admin set empty.
		return false
	}
	return true
}
