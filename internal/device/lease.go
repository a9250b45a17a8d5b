// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package device guards the live transport-stream device. At most one lease is held
// at a time, and the lease is also an advisory file lock so a second watcher
// process cannot drive the same adapter.
package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrBusy is returned when another process holds the device lock.
var ErrBusy = errors.New("device is busy")

// Manager hands out the single device lease.
type Manager struct {
	lockDir string

	mu      sync.Mutex
	current *lease
}

type lease struct {
	device string
	file   *os.File
}

// NewManager keeps lock files in lockDir.
func NewManager(lockDir string) *Manager {
	return &Manager{lockDir: lockDir}
}

// Acquire releases any current lease and takes one for devicePath.
func (m *Manager) Acquire(devicePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.releaseLocked(); err != nil {
		return err
	}

	if err := os.MkdirAll(m.lockDir, 0o750); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(m.lockDir, lockName(devicePath))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) // #nosec G304 -- derived from the configured data directory
	if err != nil {
		return fmt.Errorf("open device lock: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %s: %v", ErrBusy, devicePath, err)
	}

	m.current = &lease{device: devicePath, file: f}
	return nil
}

// Release drops the current lease. It is a no-op when none is held.
func (m *Manager) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked()
}

// Current returns the leased device path, or "".
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.device
}

func (m *Manager) releaseLocked() error {
	if m.current == nil {
		return nil
	}
	l := m.current
	m.current = nil
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	if err := errors.Join(unlockErr, closeErr); err != nil {
		return fmt.Errorf("release device lease %s: %w", l.device, err)
	}
	return nil
}

// lockName flattens a device path into a file name.
func lockName(devicePath string) string {
	name := strings.Trim(strings.ReplaceAll(filepath.Clean(devicePath), string(filepath.Separator), "_"), "_")
	if name == "" || name == "." {
		name = "device"
	}
	return name + ".lock"
}
