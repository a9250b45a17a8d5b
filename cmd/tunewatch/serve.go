// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/tunewatch/internal/api"
	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/config"
	"github.com/ManuGH/tunewatch/internal/daemon"
	"github.com/ManuGH/tunewatch/internal/device"
	"github.com/ManuGH/tunewatch/internal/engine"
	"github.com/ManuGH/tunewatch/internal/favorites"
	"github.com/ManuGH/tunewatch/internal/hints"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/player"
	"github.com/ManuGH/tunewatch/internal/telemetry"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tuner engine and the control API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.load(); err != nil {
				return err
			}
			defer func() { _ = log.Close() }()
			return runServe(cmd.Context(), c.cfg, channel)
		},
	}
	cmd.Flags().StringVar(&channel, "watch", "", "channel to tune immediately after start")
	return cmd
}

func runServe(ctx context.Context, cfg config.AppConfig, initial string) error {
	logger := log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "startup").
		Str("version", cfg.Version).
		Str("listen", cfg.API.Listen).
		Fields(cfg.LogFields()).
		Msg("starting tunewatch")

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown error")
		}
	}()

	cat := catalog.New(cfg.DataDir)
	if n, err := cat.Load(); err != nil && !errors.Is(err, catalog.ErrNoFile) {
		logger.Warn().Err(err).Str(log.FieldPath, cat.Path()).Msg("could not read saved channels")
	} else {
		logger.Info().Str(log.FieldEvent, "catalog.loaded").Int("channels", n).Msg("channel catalog ready")
	}

	hintStore := hints.NewStore(cfg.HintsFile)
	_ = hintStore.Load()

	store, err := favorites.NewStore(favoritesConfig(cfg))
	if err != nil {
		return fmt.Errorf("favorites store: %w", err)
	}
	favs, err := favorites.Load(ctx, store)
	if err != nil {
		_ = store.Close()
		return err
	}

	monitor := player.NewMonitor(playerConfig(cfg))
	eng := engine.New(engineConfig(cfg), engine.Deps{
		Catalog: cat,
		Hints:   hintStore,
		Player:  monitor,
		Lease:   device.NewManager(lockDir(cfg)),
	})

	srv := api.New(api.Config{
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracingService(cfg),
		ScanDefaults:   scanOptions(cfg),
		Version:        cfg.Version,
	}, eng, cat, favs, monitor)

	mgr, err := daemon.NewManager(daemon.DefaultServerConfig(cfg.API.Listen), daemon.Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	})
	if err != nil {
		_ = store.Close()
		return err
	}
	mgr.RegisterShutdownHook("favorites", func(context.Context) error { return store.Close() })

	if initial != "" {
		go func() {
			if err := eng.Watch(ctx, initial); err != nil {
				logger.Warn().Err(err).Str(log.FieldChannel, initial).Msg("initial watch failed")
			}
		}()
	}

	return daemon.NewApp(logger, mgr, eng, hintStore).Run(ctx)
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return "tunewatch-api"
}
