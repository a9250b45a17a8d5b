// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package favorites

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by NewStore.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown favorites backend")

// Store persists the ordered favorites list as a whole.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, names []string) error
	Close() error
}

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	Backend string
	// DataDir hosts the sqlite file and the badger directory.
	DataDir string
	Redis   RedisConfig
}

// NewStore opens the configured backend.
func NewStore(cfg StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		return OpenSQLiteStore(filepath.Join(cfg.DataDir, "favorites.db"))
	case BackendBadger:
		return OpenBadgerStore(filepath.Join(cfg.DataDir, "favorites.badger"))
	case BackendRedis:
		return NewRedisStore(cfg.Redis)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
