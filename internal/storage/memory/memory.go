package memory

import (
	"context"
	"sync"
)

// Storage keeps values in a map. Contents are lost when the process exits.
type Storage struct {
	mu    sync.RWMutex
	items map[string]string
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{items: make(map[string]string)}
}

func (s *Storage) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Storage) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *Storage) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *Storage) Ping(context.Context) error { return nil }

func (s *Storage) Close() error { return nil }
