// Package store persists the refresh/access token pair between runs. The
// contract is deliberately narrow: both keys are written together or not at
// all, and Clear removes both unconditionally.
package store

import "sync"

// Durable key names for the token pair.
const (
	authTokenKey    = "auth_token"
	refreshTokenKey = "refresh_token"
)

type CredentialStore interface {
	// Tokens returns the persisted pair. Missing keys come back as "".
	Tokens() (access, refresh string, err error)
	// SaveTokens writes both keys atomically.
	SaveTokens(access, refresh string) error
	// Clear removes both keys atomically.
	Clear() error
}

// MemoryStore is an in-memory CredentialStore for tests.
type MemoryStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Tokens() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh, nil
}

func (s *MemoryStore) SaveTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	return nil
}
