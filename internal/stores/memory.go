package stores

import (
	"context"
	"sync"
)

// MemoryStore is a process-local map store. It is the default backend in
// tests and for callers that only need persistence for the lifetime of
// the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
	hub  *watchHub
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]string),
		hub:  newWatchHub(),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	old := s.data[key]
	s.data[key] = value
	s.mu.Unlock()

	s.hub.publish(ChangeEvent{Key: key, Op: ChangeSet, OldValue: old, NewValue: value})
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	old, ok := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if ok {
		s.hub.publish(ChangeEvent{Key: key, Op: ChangeRemove, OldValue: old})
	}
	return nil
}

func (s *MemoryStore) ListKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	return keys, nil
}

func (s *MemoryStore) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	return s.hub.subscribe(ctx), nil
}
