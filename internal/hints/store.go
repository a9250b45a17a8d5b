// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hints

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Store holds the current mapping for one playlist file and reloads it on change.
type Store struct {
	path   string
	logger zerolog.Logger

	mu sync.RWMutex
	m  Map
}

// NewStore returns an empty store for path. Call Load to read it.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: log.WithComponent("hints"),
		m:      Map{},
	}
}

// Path returns the playlist location.
func (s *Store) Path() string { return s.path }

// ProgramID returns the hinted program id for a channel.
func (s *Store) ProgramID(channel string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.m[channel]
	return id, ok
}

// Len returns the number of mappings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Load re-reads the playlist. The mapping is cleared first, so a missing or
// malformed file leaves no hints behind. A missing file is not an error.
func (s *Store) Load() error {
	s.set(Map{})

	if s.path == "" {
		return nil
	}

	f, err := os.Open(s.path) // #nosec G304 -- configured playlist path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info().Str(log.FieldPath, s.path).Msg("no playlist hint file found, using catalog metadata")
			return nil
		}
		s.logger.Warn().Err(err).Str(log.FieldPath, s.path).Msg("could not open playlist hint file")
		return fmt.Errorf("open playlist: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := Parse(f)
	if err != nil {
		s.logger.Warn().Err(err).Str(log.FieldEvent, "hints.parse_failed").Str(log.FieldPath, s.path).Msg("failed to parse playlist hint file")
		return err
	}

	s.set(m)
	s.logger.Info().Str(log.FieldEvent, "hints.loaded").Str(log.FieldPath, s.path).Int("mappings", len(m)).Msg("loaded program mappings")
	return nil
}

func (s *Store) set(m Map) {
	s.mu.Lock()
	s.m = m
	s.mu.Unlock()
	metrics.RecordHintMappings(len(m))
}

// Watch reloads the playlist whenever it changes until ctx is done.
// The parent directory is watched so the file may appear later or be replaced by rename.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		s.logger.Info().Err(err).Str(log.FieldPath, dir).Msg("playlist directory not watchable, hints will not reload")
		<-ctx.Done()
		return nil
	}

	s.logger.Debug().Str(log.FieldEvent, "hints.watcher_started").Str(log.FieldPath, s.path).Msg("watching playlist hint file")

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(reloadDebounce)
			} else {
				debounce.Reset(reloadDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			_ = s.Load()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Str(log.FieldEvent, "hints.watcher_error").Msg("playlist watcher error")
		}
	}
}
