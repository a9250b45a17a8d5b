// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticHints map[string]string

func (h staticHints) ProgramID(name string) (string, bool) {
	id, ok := h[name]
	return id, ok
}

func TestCatalog_AddDedupsAndKeepsOrder(t *testing.T) {
	c := New(t.TempDir())
	c.Add("B:DVB-T:QAM64:0:0:2")
	c.Add("A:DVB-T:QAM64:0:0:1")
	c.Add("B:DVB-T:QAM64:0:0:2")
	c.Add("B:DVB-T:VSB_8:0:0:2")
	c.Add("B:DVB-T:8VSB:0:0:2")
	_, ok := c.Add("# comment")
	assert.False(t, ok)

	got := c.Records()
	want := []Record{
		{Name: "B", Provider: UnknownProvider, RawLine: "B:DVB-T:QAM64:0:0:2"},
		{Name: "A", Provider: UnknownProvider, RawLine: "A:DVB-T:QAM64:0:0:1"},
		{Name: "B", Provider: UnknownProvider, RawLine: "B:DVB-T:8VSB:0:0:2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_PersistEmptyFails(t *testing.T) {
	c := New(t.TempDir())
	require.ErrorIs(t, c.Persist(), ErrEmpty)
}

func TestCatalog_PersistLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	c := New(dir)
	c.Add("BBC One:DVB-T:VSB_8:0:0:501:0:0:0:0:BBC")
	c.Add("ITV:DVB-T:QAM64:0:0:601")
	require.NoError(t, c.Persist())

	raw, err := os.ReadFile(c.Path())
	require.NoError(t, err)
	assert.Equal(t, "BBC One:DVB-T:8VSB:0:0:501:0:0:0:0:BBC\nITV:DVB-T:QAM64:0:0:601\n", string(raw))

	loaded := New(dir)
	n, err := loaded.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	if diff := cmp.Diff(c.Records(), loaded.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalog_PersistUnwritableDir(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	c := New(filepath.Join(blocker, "data"))
	c.Add("A:DVB-T:QAM64")
	err := c.Persist()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmpty)
}

func TestCatalog_LoadMissingFile(t *testing.T) {
	c := New(t.TempDir())
	c.Add("A:DVB-T:QAM64")
	_, err := c.Load()
	require.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, 1, c.Len(), "missing file leaves records untouched")
}

func TestCatalog_ProgramIDLookupOrder(t *testing.T) {
	dir := t.TempDir()
	onDisk := New(dir)
	onDisk.Add("Disk Only:DVB-T:QAM64:0:0:900")
	onDisk.Add("Both:DVB-T:QAM64:0:0:800")
	require.NoError(t, onDisk.Persist())

	c := New(dir)
	c.Add("Both:DVB-T:QAM64:0:0:700")
	c.Add("Short:DVB-T:QAM64")

	hints := staticHints{"Hinted": "42", "Both": "1"}

	assert.Equal(t, "42", c.ProgramID("Hinted", hints))
	assert.Equal(t, "1", c.ProgramID("Both", hints), "hints win over records")
	assert.Equal(t, "700", c.ProgramID("Both", nil), "memory wins over disk")
	assert.Equal(t, "900", c.ProgramID("Disk Only", nil))
	assert.Empty(t, c.ProgramID("Short", nil))
	assert.Empty(t, c.ProgramID("Missing", hints))
	assert.Empty(t, c.ProgramID("", hints))
}

func TestCatalog_FindAndReset(t *testing.T) {
	c := New(t.TempDir())
	c.Add("A:DVB-T:QAM64:0:0:1:0:0:0:0:Prov")
	rec, ok := c.Find("A")
	require.True(t, ok)
	assert.Equal(t, "Prov", rec.Provider)

	c.Reset()
	assert.Zero(t, c.Len())
	_, ok = c.Find("A")
	assert.False(t, ok)
}
