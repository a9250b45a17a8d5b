// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/google/renameio/v2"
)

// FileName is the catalog file name inside the data directory.
const FileName = "channels.conf"

var (
	// ErrEmpty is returned when persisting a catalog without records.
	ErrEmpty = errors.New("catalog is empty")
	// ErrNoFile is returned by Load when no catalog file exists yet.
	ErrNoFile = errors.New("no saved catalog file")
)

// HintLookup resolves a program id from an external mapping.
type HintLookup interface {
	ProgramID(channel string) (string, bool)
}

// Catalog is the append-only, deduplicated list of channel records.
// It is safe for concurrent use.
type Catalog struct {
	dir string

	mu      sync.RWMutex
	records []Record
	seen    map[string]struct{}
}

// New returns an empty catalog persisted under dir.
func New(dir string) *Catalog {
	return &Catalog{dir: dir, seen: make(map[string]struct{})}
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return filepath.Join(c.dir, FileName)
}

// Add parses line and appends the record unless the normalized line is already present.
// It reports whether line was a valid record.
func (c *Catalog) Add(line string) (Record, bool) {
	rec, ok := ParseLine(line)
	if !ok {
		return Record{}, false
	}

	c.mu.Lock()
	if _, dup := c.seen[rec.RawLine]; !dup {
		c.seen[rec.RawLine] = struct{}{}
		c.records = append(c.records, rec)
	}
	n := len(c.records)
	c.mu.Unlock()

	metrics.RecordCatalogChannels(n)
	return rec, true
}

// Reset drops all records.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.records = nil
	c.seen = make(map[string]struct{})
	c.mu.Unlock()
	metrics.RecordCatalogChannels(0)
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Records returns a copy of all records in insertion order.
func (c *Catalog) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Record(nil), c.records...)
}

// Find returns the first record with the given name.
func (c *Catalog) Find(name string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Persist writes all normalized lines to the catalog file, one per line.
// The file is replaced atomically.
func (c *Catalog) Persist() error {
	logger := log.WithComponent("catalog")

	c.mu.RLock()
	lines := make([]string, 0, len(c.records))
	for _, r := range c.records {
		lines = append(lines, r.RawLine)
	}
	c.mu.RUnlock()

	if len(lines) == 0 {
		metrics.IncCatalogPersist("empty")
		return ErrEmpty
	}

	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		metrics.IncCatalogPersist("error")
		logger.Error().Err(err).Str(log.FieldPath, c.dir).Msg("could not create data directory")
		return fmt.Errorf("create data directory %s: %w", c.dir, err)
	}

	path := c.Path()
	if err := writeLines(path, lines); err != nil {
		metrics.IncCatalogPersist("error")
		logger.Error().Err(err).Str(log.FieldPath, path).Msg("could not write channels file")
		return err
	}

	metrics.IncCatalogPersist("success")
	logger.Debug().Str(log.FieldEvent, "catalog.persisted").Str(log.FieldPath, path).Int("channels", len(lines)).Msg("channels saved")
	return nil
}

func writeLines(path string, lines []string) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending catalog file: %w", err)
	}
	defer func() {
		// No-op once committed.
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("catalog")
			logger.Debug().Err(err).Msg("cleanup pending catalog file")
		}
	}()

	w := bufio.NewWriter(pending)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return fmt.Errorf("write catalog data: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write catalog data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit catalog file: %w", err)
	}
	return nil
}

// Load replaces the in-memory records with the contents of the catalog file.
// A missing file returns ErrNoFile and leaves the catalog untouched.
func (c *Catalog) Load() (int, error) {
	logger := log.WithComponent("catalog")
	path := c.Path()

	f, err := os.Open(path) // #nosec G304 -- path is derived from the configured data directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info().Str(log.FieldPath, path).Msg("no saved channels file found, run a scan once to create one")
			return 0, ErrNoFile
		}
		return 0, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	c.Reset()
	if err := c.readFrom(f); err != nil {
		return c.Len(), fmt.Errorf("read catalog %s: %w", path, err)
	}

	n := c.Len()
	logger.Info().Str(log.FieldEvent, "catalog.loaded").Str(log.FieldPath, path).Int("channels", n).Msg("loaded channel entries")
	return n, nil
}

func (c *Catalog) readFrom(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			c.Add(line)
		}
	}
	return sc.Err()
}

// ProgramID resolves the program id for a channel: hints first, then the in-memory
// records, then the catalog file on disk. An unknown channel yields "".
func (c *Catalog) ProgramID(name string, hints HintLookup) string {
	if name == "" {
		return ""
	}
	if hints != nil {
		if id, ok := hints.ProgramID(name); ok {
			return id
		}
	}

	c.mu.RLock()
	for _, r := range c.records {
		if id := programIDFromLine(r.RawLine, name); id != "" {
			c.mu.RUnlock()
			return id
		}
	}
	c.mu.RUnlock()

	f, err := os.Open(c.Path()) // #nosec G304 -- path is derived from the configured data directory
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if id := programIDFromLine(sc.Text(), name); id != "" {
			return id
		}
	}
	return ""
}
