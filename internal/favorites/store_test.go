// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package favorites

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	names, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.Save(ctx, []string{"BBC One", "ITV", "Channel 4"}))
	names, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BBC One", "ITV", "Channel 4"}, names)

	require.NoError(t, s.Save(ctx, []string{"ITV"}))
	names, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ITV"}, names)

	require.NoError(t, s.Save(ctx, nil))
	names, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewStore(StoreConfig{Backend: BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(StoreConfig{Backend: BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, []string{"a", "b"}))
	require.NoError(t, s.Close())

	s, err = NewStore(StoreConfig{Backend: BackendSQLite, DataDir: dir})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	names, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestBadgerStore(t *testing.T) {
	s, err := NewStore(StoreConfig{Backend: BackendBadger, DataDir: t.TempDir()})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := NewStore(StoreConfig{Backend: BackendRedis, Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exerciseStore(t, s)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(RedisConfig{Addr: addr})
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s, err := NewStore(StoreConfig{Backend: BackendMemory})
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestNewStore_UnknownBackend(t *testing.T) {
	_, err := NewStore(StoreConfig{Backend: "etcd"})
	require.ErrorIs(t, err, ErrUnknownBackend)
}
