// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the long-running serve lifecycle: the engine control loop,
// the hint file watcher and the control API server.
package daemon

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/rs/zerolog"
)

// Runner is a blocking component that stops when ctx is done.
type Runner interface {
	Run(ctx context.Context) error
}

// Watcher reloads a watched resource until ctx is done.
type Watcher interface {
	Watch(ctx context.Context) error
}

// App owns the long-lived runtime lifecycle and delegates server management to Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	engine  Runner
	hints   Watcher
}

// NewApp creates a new App orchestrator. hints may be nil.
func NewApp(logger zerolog.Logger, manager Manager, engine Runner, hints Watcher) *App {
	return &App{
		logger:  logger,
		manager: manager,
		engine:  engine,
		hints:   hints,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or a fatal error occurs.
// The engine stops last so the API cannot enqueue commands into a stopped loop.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}
	if a.engine == nil {
		return ErrMissingEngine
	}

	g, gctx := errgroup.WithContext(ctx)

	engineCtx, stopEngine := context.WithCancel(context.WithoutCancel(ctx))
	defer stopEngine()
	engineDone := make(chan error, 1)
	go func() { engineDone <- a.engine.Run(engineCtx) }()

	// Hint watcher is best-effort: a failing watcher leaves the last mapping in place.
	if a.hints != nil {
		g.Go(func() error {
			if err := a.hints.Watch(gctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "hints.watcher_failed").Msg("hint file watcher stopped")
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	err := g.Wait()
	stopEngine()
	if engineErr := <-engineDone; engineErr != nil && err == nil {
		err = engineErr
	}
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return err
}
