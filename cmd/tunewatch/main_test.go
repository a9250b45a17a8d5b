// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/config"
	"github.com/ManuGH/tunewatch/internal/engine"
	"github.com/ManuGH/tunewatch/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineConfigFromAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tuner.Adapter = 1
	cfg.Tuner.Frontend = 2
	cfg.Tuner.BasePort = 24000
	cfg.Binaries.Bridge = "/opt/ffmpeg/bin/ffmpeg"
	cfg.Recovery.MaxReconnectAttempts = 3
	cfg.Recovery.ResetBudgetOnEscalation = false
	cfg.Recovery.ReadyTimeout = 5 * time.Second

	ec := engineConfig(cfg)
	assert.Equal(t, 1, ec.Adapter)
	assert.Equal(t, 2, ec.Frontend)
	assert.Equal(t, 24000, ec.BasePort)
	assert.Equal(t, "dvbv5-zap", ec.TunerBinary)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", ec.BridgeBinary)
	assert.Equal(t, 3, ec.MaxReconnectAttempts)
	assert.False(t, ec.ResetBudgetOnEscalation)
	assert.Equal(t, 5*time.Second, ec.ReadyTimeout)
	assert.Equal(t, 800*time.Millisecond, ec.ReconnectBase)
	assert.Equal(t, 900*time.Millisecond, ec.ReconnectStep)
	assert.Equal(t, engine.DefaultConfig().BridgeLogRate, ec.BridgeLogRate)
}

func TestScanOptionsFromAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tuner.Adapter = 1
	cfg.Scan.Country = "DE"

	opts := scanOptions(cfg)
	require.NoError(t, opts.Validate())
	assert.Equal(t, "t", opts.FrontendType)
	assert.Equal(t, "DE", opts.Country)
	assert.Equal(t, 1, opts.Adapter)
	assert.Equal(t, "X", opts.OutputFormat)
}

func TestFavoritesAndTelemetryConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = "/var/lib/tunewatch"
	cfg.Favorites.Backend = "redis"
	cfg.Favorites.Redis.Addr = "127.0.0.1:6379"

	fc := favoritesConfig(cfg)
	assert.Equal(t, "redis", fc.Backend)
	assert.Equal(t, "/var/lib/tunewatch", fc.DataDir)
	assert.Equal(t, "127.0.0.1:6379", fc.Redis.Addr)

	tc := telemetryConfig(cfg)
	assert.False(t, tc.Enabled)
	assert.Equal(t, "grpc", tc.ExporterType)
	assert.Equal(t, "tunewatch", tc.ServiceName)
	assert.Empty(t, tracingService(cfg))

	cfg.Telemetry.Enabled = true
	assert.Equal(t, "tunewatch-api", tracingService(cfg))
	assert.Equal(t, filepath.Join("/var/lib/tunewatch", "locks"), lockDir(cfg))
}

func TestPrintChannels(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, printChannels(&out, catalog.New(dir), nil))
	assert.Contains(t, out.String(), "No saved channels yet")

	cat := catalog.New(dir)
	cat.Add("BBC One:474000000:VSB_8:0:0:4164:4228:4171:0:1:BBC")
	cat.Add("ITV:490000000:QAM_64:0:0:8261:2314:2315:0:1:ITV")
	require.NoError(t, cat.Persist())

	out.Reset()
	require.NoError(t, printChannels(&out, catalog.New(dir), nil))
	got := out.String()
	assert.Contains(t, got, "NAME")
	assert.Regexp(t, `1\s+BBC One\s+BBC\s+4164`, got)
	assert.Regexp(t, `2\s+ITV\s+ITV\s+8261`, got)
}

func TestRunScanMissingScanner(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.ScannerBinary = "tunewatch-test-no-such-scanner"

	var out bytes.Buffer
	err := runScan(context.Background(), &out, cfg, catalog.New(t.TempDir()), scanOptions(config.Default()))
	require.ErrorIs(t, err, engine.ErrExecutableNotFound)
	assert.Empty(t, out.String())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, version.String()+"\n", out.String())
}

func TestConfigInitShowValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs(append([]string{"--config", path}, args...))
		err := root.Execute()
		return out.String(), err
	}

	got, err := run("config", "init")
	require.NoError(t, err)
	assert.Contains(t, got, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = run("config", "init")
	require.Error(t, err)
	_, err = run("config", "init", "--force")
	require.NoError(t, err)

	// Point the data directory at the test sandbox.
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.HintsFile = ""
	require.NoError(t, config.NewManager(path).Save(cfg))

	got, err = run("config", "validate")
	require.NoError(t, err)
	assert.Contains(t, got, "is valid")

	got, err = run("config", "show")
	require.NoError(t, err)
	assert.Contains(t, got, "dataDir: "+cfg.DataDir)
	assert.Contains(t, got, "maxReconnectAttempts: 6")
}
