// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package favorites keeps the ordered favorites list and its quick-access slots.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// QuickSlots is the number of favorites exposed as numbered quick slots.
const QuickSlots = 8

var (
	ErrEmptyName = errors.New("favorite name is empty")
	ErrNoSlot    = errors.New("quick slot is empty")
)

// List is the ordered favorites list. Order is preserved and duplicates are rejected.
type List struct {
	store Store

	mu    sync.RWMutex
	names []string
}

// Load reads the persisted list.
func Load(ctx context.Context, store Store) (*List, error) {
	names, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	l := &List{store: store}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" && !slices.Contains(l.names, n) {
			l.names = append(l.names, n)
		}
	}
	return l, nil
}

// All returns a copy of the list.
func (l *List) All() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.names)
}

// Slots returns up to QuickSlots leading favorites.
func (l *List) Slots() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.names[:min(len(l.names), QuickSlots)])
}

// Slot returns the favorite in 1-based quick slot n.
func (l *List) Slot(n int) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n < 1 || n > QuickSlots || n > len(l.names) {
		return "", fmt.Errorf("%w: %d", ErrNoSlot, n)
	}
	return l.names[n-1], nil
}

// Add appends name. It reports false without error when name is already present.
func (l *List) Add(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrEmptyName
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.Contains(l.names, name) {
		return false, nil
	}
	next := append(slices.Clone(l.names), name)
	if err := l.store.Save(ctx, next); err != nil {
		return false, fmt.Errorf("save favorites: %w", err)
	}
	l.names = next
	return true, nil
}

// Remove deletes name. It reports false without error when name is absent.
func (l *List) Remove(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)

	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.Index(l.names, name)
	if i < 0 {
		return false, nil
	}
	next := slices.Delete(slices.Clone(l.names), i, i+1)
	if err := l.store.Save(ctx, next); err != nil {
		return false, fmt.Errorf("save favorites: %w", err)
	}
	l.names = next
	return true, nil
}
