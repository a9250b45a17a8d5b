// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/tunewatch/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvPrefix+"DATA_DIR", t.TempDir())

	cfg, err := NewLoader("", "test-version").Load()
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, 23000, cfg.Tuner.BasePort)
	assert.Equal(t, "dvbv5-zap", cfg.Binaries.Tuner)
	assert.Equal(t, "ffmpeg", cfg.Binaries.Bridge)
	assert.Equal(t, "w_scan2", cfg.Binaries.Scanner)
	assert.Equal(t, 6, cfg.Recovery.MaxReconnectAttempts)
	assert.Equal(t, 3500*time.Millisecond, cfg.Recovery.ReadyTimeout)
	assert.Equal(t, 450*time.Millisecond, cfg.Recovery.AttachDelay)
	assert.True(t, cfg.Recovery.ResetBudgetOnEscalation)
	assert.Equal(t, "sqlite", cfg.Favorites.Backend)
	assert.Equal(t, "127.0.0.1:8089", cfg.API.Listen)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	dataDir := filepath.Join(tmpDir, "data")

	content := `
dataDir: ` + dataDir + `
tuner:
  adapter: 1
  frontend: 0
recovery:
  maxReconnectAttempts: 3
  readyTimeout: 5s
  resetBudgetOnEscalation: false
favorites:
  backend: badger
api:
  listen: 0.0.0.0:9000
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, err := NewLoader(configPath, "").Load()
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 1, cfg.Tuner.Adapter)
	assert.Equal(t, 23000, cfg.Tuner.BasePort, "unset keys keep defaults")
	assert.Equal(t, 3, cfg.Recovery.MaxReconnectAttempts)
	assert.Equal(t, 5*time.Second, cfg.Recovery.ReadyTimeout)
	assert.False(t, cfg.Recovery.ResetBudgetOnEscalation)
	assert.Equal(t, 800*time.Millisecond, cfg.Recovery.ReconnectBase)
	assert.Equal(t, "badger", cfg.Favorites.Backend)
	assert.Equal(t, "0.0.0.0:9000", cfg.API.Listen)

	info, err := os.Stat(dataDir)
	require.NoError(t, err, "validation creates the data directory")
	assert.True(t, info.IsDir())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("dataDir: "+tmpDir+"\ntuner:\n  adapter: 1\n"), 0o600))

	t.Setenv(EnvPrefix+"ADAPTER", "2")
	t.Setenv(EnvPrefix+"MAX_RECONNECT_ATTEMPTS", "9")
	t.Setenv(EnvPrefix+"READY_TIMEOUT", "2s")
	t.Setenv(EnvPrefix+"RESET_BUDGET_ON_ESCALATION", "no")
	t.Setenv(EnvPrefix+"REDIS_PASSWORD", "secret")

	l := NewLoader(configPath, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Tuner.Adapter)
	assert.Equal(t, 9, cfg.Recovery.MaxReconnectAttempts)
	assert.Equal(t, 2*time.Second, cfg.Recovery.ReadyTimeout)
	assert.False(t, cfg.Recovery.ResetBudgetOnEscalation)
	assert.Equal(t, "secret", cfg.Favorites.Redis.Password)
	assert.Contains(t, l.ConsumedEnvKeys, EnvPrefix+"ADAPTER")
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	t.Setenv(EnvPrefix+"DATA_DIR", t.TempDir())
	t.Setenv(EnvPrefix+"ADAPTER", "one")
	t.Setenv(EnvPrefix+"READY_TIMEOUT", "soon")

	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Tuner.Adapter)
	assert.Equal(t, 3500*time.Millisecond, cfg.Recovery.ReadyTimeout)
}

func TestLoadStrictUnknownField(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tuner:\n  adaptor: 1\n"), 0o600))

	_, err := NewLoader(configPath, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField))
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("tuner:\n  adapter: 1\n---\ntuner:\n  adapter: 2\n"), 0o600))

	_, err := NewLoader(configPath, "").Load()
	require.Error(t, err)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "config.json"), "").Load()
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvPrefix+"DATA_DIR", t.TempDir())
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), "").Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Recovery.MaxReconnectAttempts)
}

func TestValidate(t *testing.T) {
	base := Default()
	base.DataDir = t.TempDir()
	require.NoError(t, Validate(base))

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad log level", func(c *AppConfig) { c.Log.Level = "loud" }, "log.level"},
		{"adapter out of range", func(c *AppConfig) { c.Tuner.Adapter = 300 }, "tuner.adapter"},
		{"port overflow", func(c *AppConfig) { c.Tuner.BasePort = 65535; c.Tuner.Adapter = 1 }, "tuner.basePort"},
		{"no bridge binary", func(c *AppConfig) { c.Binaries.Bridge = " " }, "binaries.bridge"},
		{"zero attempts", func(c *AppConfig) { c.Recovery.MaxReconnectAttempts = 0 }, "recovery.maxReconnectAttempts"},
		{"tiny ready timeout", func(c *AppConfig) { c.Recovery.ReadyTimeout = time.Millisecond }, "recovery.readyTimeout"},
		{"unknown frontend type", func(c *AppConfig) { c.Scan.FrontendType = "s" }, "scan.frontendType"},
		{"long country", func(c *AppConfig) { c.Scan.Country = "GBR" }, "scan.country"},
		{"unknown backend", func(c *AppConfig) { c.Favorites.Backend = "mysql" }, "favorites.backend"},
		{"redis without addr", func(c *AppConfig) { c.Favorites.Backend = "redis" }, "favorites.redis.addr"},
		{"bad listen", func(c *AppConfig) { c.API.Listen = "localhost" }, "api.listen"},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "telemetry.exporter"},
		{"sampling above one", func(c *AppConfig) { c.Telemetry.SamplingRate = 2 }, "telemetry.samplingRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make([]string, 0, len(verr.Errors()))
			for _, e := range verr.Errors() {
				fields = append(fields, e.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestManagerSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")
	m := NewManager(path)

	cfg := Default()
	cfg.DataDir = filepath.Join(tmpDir, "data")
	cfg.Tuner.Adapter = 3
	cfg.Recovery.ReadyTimeout = 4 * time.Second
	cfg.Favorites.Backend = "memory"
	cfg.Version = "ignored"
	require.NoError(t, m.Save(cfg))

	loaded, err := NewLoader(path, "v1").Load()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Tuner.Adapter)
	assert.Equal(t, 4*time.Second, loaded.Recovery.ReadyTimeout)
	assert.Equal(t, "memory", loaded.Favorites.Backend)
	assert.Equal(t, "v1", loaded.Version)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestManagerInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := NewManager(path)

	require.NoError(t, m.Init(false))
	require.Error(t, m.Init(false), "existing file is not overwritten")
	require.NoError(t, m.Init(true))
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "YES": true, "1": true, "false": false, "No": false, "0": false} {
		t.Setenv("TUNEWATCH_TEST_BOOL", in)
		assert.Equal(t, want, ParseBool("TUNEWATCH_TEST_BOOL", !want), in)
	}
	t.Setenv("TUNEWATCH_TEST_BOOL", "maybe")
	assert.True(t, ParseBool("TUNEWATCH_TEST_BOOL", true))
}
