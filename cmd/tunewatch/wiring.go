// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"path/filepath"

	"github.com/ManuGH/tunewatch/internal/config"
	"github.com/ManuGH/tunewatch/internal/engine"
	"github.com/ManuGH/tunewatch/internal/favorites"
	"github.com/ManuGH/tunewatch/internal/player"
	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/ManuGH/tunewatch/internal/telemetry"
	"github.com/ManuGH/tunewatch/internal/version"
)

func engineConfig(cfg config.AppConfig) engine.Config {
	ec := engine.DefaultConfig()
	ec.Adapter = cfg.Tuner.Adapter
	ec.Frontend = cfg.Tuner.Frontend
	ec.BasePort = cfg.Tuner.BasePort
	ec.TunerBinary = cfg.Binaries.Tuner
	ec.BridgeBinary = cfg.Binaries.Bridge
	ec.ScannerBinary = cfg.Binaries.Scanner

	r := cfg.Recovery
	ec.MaxReconnectAttempts = r.MaxReconnectAttempts
	ec.ReconnectBase = r.ReconnectBase
	ec.ReconnectStep = r.ReconnectStep
	ec.ResetBudgetOnEscalation = r.ResetBudgetOnEscalation
	ec.ReadyTimeout = r.ReadyTimeout
	ec.AttachDelay = r.AttachDelay
	ec.StartTimeout = r.StartTimeout
	ec.TeardownTimeout = r.TeardownTimeout
	ec.StopTimeout = r.StopTimeout
	return ec
}

func scanOptions(cfg config.AppConfig) scan.Options {
	return scan.Options{
		FrontendType: cfg.Scan.FrontendType,
		Country:      cfg.Scan.Country,
		Adapter:      cfg.Tuner.Adapter,
		Frontend:     cfg.Tuner.Frontend,
		OutputFormat: cfg.Scan.OutputFormat,
	}
}

func playerConfig(cfg config.AppConfig) player.Config {
	return player.Config{
		StartupTimeout:   cfg.Player.StartupTimeout,
		StallTimeout:     cfg.Player.StallTimeout,
		InvalidThreshold: cfg.Player.InvalidThreshold,
	}
}

func favoritesConfig(cfg config.AppConfig) favorites.StoreConfig {
	return favorites.StoreConfig{
		Backend: cfg.Favorites.Backend,
		DataDir: cfg.DataDir,
		Redis: favorites.RedisConfig{
			Addr:     cfg.Favorites.Redis.Addr,
			Password: cfg.Favorites.Redis.Password,
			DB:       cfg.Favorites.Redis.DB,
			Key:      cfg.Favorites.Redis.Key,
		},
	}
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "tunewatch",
		ServiceVersion: version.Version,
		Environment:    "production",
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

func lockDir(cfg config.AppConfig) string {
	return filepath.Join(cfg.DataDir, "locks")
}
