// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"time"
)

// AppConfig is the complete runtime configuration. The same shape is used for
// the YAML file, so a saved config round-trips through Load.
type AppConfig struct {
	DataDir   string          `yaml:"dataDir"`
	HintsFile string          `yaml:"hintsFile,omitempty"`
	Log       LogConfig       `yaml:"log"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Binaries  BinariesConfig  `yaml:"binaries"`
	Recovery  RecoveryConfig  `yaml:"recovery"`
	Scan      ScanConfig      `yaml:"scan"`
	Player    PlayerConfig    `yaml:"player"`
	Favorites FavoritesConfig `yaml:"favorites"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Version is the binary version and is never read from the file.
	Version string `yaml:"-"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"`
	// File mirrors log output into an append-only file when set.
	File string `yaml:"file,omitempty"`
}

// TunerConfig selects the DVB device pair and the loopback stream port base.
type TunerConfig struct {
	Adapter  int `yaml:"adapter"`
	Frontend int `yaml:"frontend"`
	BasePort int `yaml:"basePort"`
}

// BinariesConfig names the external tools; bare names are looked up on PATH.
type BinariesConfig struct {
	Tuner   string `yaml:"tuner"`
	Bridge  string `yaml:"bridge"`
	Scanner string `yaml:"scanner"`
}

// RecoveryConfig tunes the session recovery policy.
type RecoveryConfig struct {
	MaxReconnectAttempts    int           `yaml:"maxReconnectAttempts"`
	ReconnectBase           time.Duration `yaml:"reconnectBase"`
	ReconnectStep           time.Duration `yaml:"reconnectStep"`
	ResetBudgetOnEscalation bool          `yaml:"resetBudgetOnEscalation"`
	ReadyTimeout            time.Duration `yaml:"readyTimeout"`
	AttachDelay             time.Duration `yaml:"attachDelay"`
	StartTimeout            time.Duration `yaml:"startTimeout"`
	TeardownTimeout         time.Duration `yaml:"teardownTimeout"`
	StopTimeout             time.Duration `yaml:"stopTimeout"`
}

// ScanConfig holds the scanner defaults used when a request leaves them out.
type ScanConfig struct {
	FrontendType string `yaml:"frontendType"`
	Country      string `yaml:"country,omitempty"`
	OutputFormat string `yaml:"outputFormat"`
}

// PlayerConfig tunes the stream monitor.
type PlayerConfig struct {
	StartupTimeout   time.Duration `yaml:"startupTimeout"`
	StallTimeout     time.Duration `yaml:"stallTimeout"`
	InvalidThreshold int           `yaml:"invalidThreshold"`
}

// FavoritesConfig selects the favorites store backend.
type FavoritesConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis favorites backend.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Key      string `yaml:"key,omitempty"`
}

// APIConfig configures the control API.
type APIConfig struct {
	Listen string `yaml:"listen"`
	// RateLimit is the number of requests per minute per client, 0 disables limiting.
	RateLimit int `yaml:"rateLimit"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		DataDir:   defaultDataDir(),
		HintsFile: defaultHintsFile(),
		Log:       LogConfig{Level: "info"},
		Tuner:     TunerConfig{BasePort: 23000},
		Binaries: BinariesConfig{
			Tuner:   "dvbv5-zap",
			Bridge:  "ffmpeg",
			Scanner: "w_scan2",
		},
		Recovery: RecoveryConfig{
			MaxReconnectAttempts:    6,
			ReconnectBase:           800 * time.Millisecond,
			ReconnectStep:           900 * time.Millisecond,
			ResetBudgetOnEscalation: true,
			ReadyTimeout:            3500 * time.Millisecond,
			AttachDelay:             450 * time.Millisecond,
			StartTimeout:            2 * time.Second,
			TeardownTimeout:         1000 * time.Millisecond,
			StopTimeout:             1200 * time.Millisecond,
		},
		Scan: ScanConfig{FrontendType: "t", OutputFormat: "X"},
		Player: PlayerConfig{
			StartupTimeout:   10 * time.Second,
			StallTimeout:     5 * time.Second,
			InvalidThreshold: 64,
		},
		Favorites: FavoritesConfig{Backend: "sqlite"},
		API:       APIConfig{Listen: "127.0.0.1:8089", RateLimit: 300},
		Telemetry: TelemetryConfig{Exporter: "grpc", SamplingRate: 1.0},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tunewatch")
	}
	return "data"
}

func defaultHintsFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Desktop", "tv.xspf")
	}
	return ""
}

// LogFields returns the non-secret settings worth logging at startup.
func (c AppConfig) LogFields() map[string]any {
	return map[string]any{
		"data_dir":          c.DataDir,
		"hints_file":        c.HintsFile,
		"adapter":           c.Tuner.Adapter,
		"frontend":          c.Tuner.Frontend,
		"base_port":         c.Tuner.BasePort,
		"favorites_backend": c.Favorites.Backend,
		"listen":            c.API.Listen,
		"telemetry":         c.Telemetry.Enabled,
	}
}
