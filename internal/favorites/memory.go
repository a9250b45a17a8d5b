// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package favorites

import (
	"context"
	"sync"
)

// MemoryStore keeps favorites in process memory only.
type MemoryStore struct {
	mu    sync.Mutex
	names []string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...), nil
}

func (s *MemoryStore) Save(_ context.Context, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append([]string(nil), names...)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
