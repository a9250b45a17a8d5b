// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/tunewatch/internal/log"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tunewatch", "config.yaml")
	}
	return "config.yaml"
}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // keys consulted during the last Load
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// A missing file leaves the defaults in place; a malformed one is an error.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields cause an error to prevent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger := log.WithComponent("config")
			logger.Info().Str(log.FieldPath, path).Msg("config file not found, using defaults")
			return nil
		}
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnvConfig applies TUNEWATCH_* overrides.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvPrefix+"DATA_DIR", cfg.DataDir)
	cfg.HintsFile = l.envString(EnvPrefix+"HINTS_FILE", cfg.HintsFile)
	cfg.Log.Level = l.envString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = l.envString(EnvPrefix+"LOG_FILE", cfg.Log.File)

	cfg.Tuner.Adapter = l.envInt(EnvPrefix+"ADAPTER", cfg.Tuner.Adapter)
	cfg.Tuner.Frontend = l.envInt(EnvPrefix+"FRONTEND", cfg.Tuner.Frontend)
	cfg.Tuner.BasePort = l.envInt(EnvPrefix+"BASE_PORT", cfg.Tuner.BasePort)

	cfg.Binaries.Tuner = l.envString(EnvPrefix+"TUNER_BIN", cfg.Binaries.Tuner)
	cfg.Binaries.Bridge = l.envString(EnvPrefix+"BRIDGE_BIN", cfg.Binaries.Bridge)
	cfg.Binaries.Scanner = l.envString(EnvPrefix+"SCANNER_BIN", cfg.Binaries.Scanner)

	cfg.Recovery.MaxReconnectAttempts = l.envInt(EnvPrefix+"MAX_RECONNECT_ATTEMPTS", cfg.Recovery.MaxReconnectAttempts)
	cfg.Recovery.ResetBudgetOnEscalation = l.envBool(EnvPrefix+"RESET_BUDGET_ON_ESCALATION", cfg.Recovery.ResetBudgetOnEscalation)
	cfg.Recovery.ReadyTimeout = l.envDuration(EnvPrefix+"READY_TIMEOUT", cfg.Recovery.ReadyTimeout)

	cfg.Scan.FrontendType = l.envString(EnvPrefix+"SCAN_FRONTEND_TYPE", cfg.Scan.FrontendType)
	cfg.Scan.Country = l.envString(EnvPrefix+"SCAN_COUNTRY", cfg.Scan.Country)

	cfg.Favorites.Backend = l.envString(EnvPrefix+"FAVORITES_BACKEND", cfg.Favorites.Backend)
	cfg.Favorites.Redis.Addr = l.envString(EnvPrefix+"REDIS_ADDR", cfg.Favorites.Redis.Addr)
	cfg.Favorites.Redis.Password = l.envString(EnvPrefix+"REDIS_PASSWORD", cfg.Favorites.Redis.Password)
	cfg.Favorites.Redis.DB = l.envInt(EnvPrefix+"REDIS_DB", cfg.Favorites.Redis.DB)

	cfg.API.Listen = l.envString(EnvPrefix+"LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt(EnvPrefix+"RATE_LIMIT", cfg.API.RateLimit)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"OTLP_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TRACE_SAMPLING", cfg.Telemetry.SamplingRate)
}
