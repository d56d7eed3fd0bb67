package kvstore

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore is an in-memory key-value store. Contents are lost on exit.
type MemoryStore struct {
	scope   string
	entries map[string][]byte
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(scope string, logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		scope:   scope,
		entries: make(map[string][]byte),
		logger:  logger,
	}
}

// Get returns a copy of the value stored under key
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[scopedKey(s.scope, key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Put replaces the value stored under key
func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[scopedKey(s.scope, key)] = append([]byte(nil), value...)
	s.logger.Debug("Stored document", zap.String("scope", s.scope), zap.String("key", key), zap.Int("size", len(value)))
	return nil
}

// Stop is a no-op for the memory store
func (s *MemoryStore) Stop() {}

func scopedKey(scope, key string) string {
	return scope + "/" + key
}
