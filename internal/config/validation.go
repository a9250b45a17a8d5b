// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/ManuGH/tunewatch/internal/validate"
)

var (
	favoritesBackends = []string{"sqlite", "badger", "redis", "memory"}
	exporters         = []string{"grpc", "http"}
)

// Validate validates an AppConfig using the centralized validation package.
// It creates DataDir when missing.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("dataDir", cfg.DataDir, false)

	v.LogLevel("log.level", cfg.Log.Level)

	v.Range("tuner.adapter", cfg.Tuner.Adapter, 0, 255)
	v.Range("tuner.frontend", cfg.Tuner.Frontend, 0, 255)
	v.PortSpan("tuner.basePort", cfg.Tuner.BasePort, cfg.Tuner.Adapter)

	v.Executable("binaries.tuner", cfg.Binaries.Tuner)
	v.Executable("binaries.bridge", cfg.Binaries.Bridge)
	v.Executable("binaries.scanner", cfg.Binaries.Scanner)

	r := cfg.Recovery
	v.Range("recovery.maxReconnectAttempts", r.MaxReconnectAttempts, 1, 100)
	v.Duration("recovery.reconnectBase", r.ReconnectBase, 0, time.Minute)
	v.Duration("recovery.reconnectStep", r.ReconnectStep, 0, time.Minute)
	v.Duration("recovery.readyTimeout", r.ReadyTimeout, 100*time.Millisecond, time.Minute)
	v.Duration("recovery.attachDelay", r.AttachDelay, 0, 10*time.Second)
	v.Duration("recovery.startTimeout", r.StartTimeout, 100*time.Millisecond, time.Minute)
	v.Duration("recovery.teardownTimeout", r.TeardownTimeout, 100*time.Millisecond, time.Minute)
	v.Duration("recovery.stopTimeout", r.StopTimeout, 100*time.Millisecond, time.Minute)

	v.OneOf("scan.frontendType", cfg.Scan.FrontendType, scan.FrontendTypes)
	if cfg.Scan.OutputFormat != "" {
		v.OneOf("scan.outputFormat", cfg.Scan.OutputFormat, scan.OutputFormats)
	}
	v.CountryCode("scan.country", cfg.Scan.Country)

	v.Duration("player.startupTimeout", cfg.Player.StartupTimeout, time.Second, 5*time.Minute)
	v.Duration("player.stallTimeout", cfg.Player.StallTimeout, 100*time.Millisecond, 5*time.Minute)
	v.Positive("player.invalidThreshold", cfg.Player.InvalidThreshold)

	v.OneOf("favorites.backend", strings.ToLower(cfg.Favorites.Backend), favoritesBackends)
	if strings.EqualFold(cfg.Favorites.Backend, "redis") {
		v.NotEmpty("favorites.redis.addr", cfg.Favorites.Redis.Addr)
	}

	v.ListenAddr("api.listen", cfg.API.Listen)
	if cfg.API.RateLimit < 0 {
		v.AddError("api.rateLimit", "cannot be negative", cfg.API.RateLimit)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, exporters)
	}
	v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)

	return v.Err()
}
