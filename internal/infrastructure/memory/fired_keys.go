package memory

import (
	"context"
	"sync"

	"github.com/LavaJover/shvark-escrow-service/internal/domain"
)

type FiredKeyStore struct {
	mu   sync.Mutex
	keys map[domain.FiredKey]struct{}
}

func NewFiredKeyStore() *FiredKeyStore {
	return &FiredKeyStore{keys: make(map[domain.FiredKey]struct{})}
}

func (s *FiredKeyStore) MarkFired(ctx context.Context, key domain.FiredKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = struct{}{}
	return true, nil
}

func (s *FiredKeyStore) IsFired(ctx context.Context, key domain.FiredKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *FiredKeyStore) Release(ctx context.Context, key domain.FiredKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *FiredKeyStore) Reset(ctx context.Context, ruleID, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.keys {
		if k.RuleID == ruleID && k.EntityID == entityID {
			delete(s.keys, k)
		}
	}
	return nil
}

func (s *FiredKeyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
