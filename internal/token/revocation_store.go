package token

import (
	"context"
	"sync"
	"time"
)

// RevocationStore is an existence check keyed by token ID. Entries carry the
// revoked token's remaining lifetime as TTL, so the store never holds an entry
// for a token that has already expired on its own.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type InMemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{entries: make(map[string]time.Time)}
}

func (s *InMemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenID] = time.Now().UTC().Add(ttl)
	return nil
}

// Len reports the number of live entries, dropping any whose TTL has lapsed.
func (s *InMemoryRevocationStore) Len() int {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, expiresAt := range s.entries {
		if now.After(expiresAt) {
			delete(s.entries, id)
		}
	}
	return len(s.entries)
}

func (s *InMemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	now := time.Now().UTC()
	s.mu.RLock()
	expiresAt, ok := s.entries[tokenID]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if now.After(expiresAt) {
		s.mu.Lock()
		delete(s.entries, tokenID)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
