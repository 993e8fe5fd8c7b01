package store

import (
	"context"
	"sync"
)

type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Scope(browserID string) Store {
	return &memoryScope{parent: m, browserID: browserID}
}

type memoryScope struct {
	parent    *Memory
	browserID string
}

func (s *memoryScope) key(key string) string {
	return s.browserID + ":" + key
}

func (s *memoryScope) Get(_ context.Context, key string) (string, bool, error) {
	if s.browserID == "" {
		return "", false, ErrNoBrowser
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	value, ok := s.parent.values[s.key(key)]
	return value, ok, nil
}

func (s *memoryScope) Set(_ context.Context, key, value string) error {
	if s.browserID == "" {
		return ErrNoBrowser
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	s.parent.values[s.key(key)] = value
	return nil
}

func (s *memoryScope) Delete(_ context.Context, keys ...string) error {
	if s.browserID == "" {
		return ErrNoBrowser
	}
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	for _, key := range keys {
		delete(s.parent.values, s.key(key))
	}
	return nil
}
