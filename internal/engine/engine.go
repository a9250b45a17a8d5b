// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine is the live-channel acquisition and resilience engine. It locks the
// tuner, waits for the DVR device, bridges it to a loopback stream, attaches the
// player and recovers from failures, all on a single control goroutine.
package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/ManuGH/tunewatch/internal/supervisor"
	"github.com/ManuGH/tunewatch/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Config holds the engine's timing and tool settings.
type Config struct {
	Adapter  int
	Frontend int

	TunerBinary   string
	BridgeBinary  string
	ScannerBinary string
	BasePort      int

	MaxReconnectAttempts int
	ReconnectBase        time.Duration
	ReconnectStep        time.Duration
	// ResetBudgetOnEscalation gives the resilient profile a fresh reconnect budget.
	ResetBudgetOnEscalation bool

	ReadyTimeout    time.Duration
	AttachDelay     time.Duration
	StartTimeout    time.Duration
	TeardownTimeout time.Duration
	StopTimeout     time.Duration

	// BridgeLogRate limits bridge diagnostic lines per second.
	BridgeLogRate  float64
	BridgeLogBurst int
}

// DefaultConfig returns the tuned defaults for dvbv5-zap, ffmpeg and w_scan2.
func DefaultConfig() Config {
	return Config{
		TunerBinary:             "dvbv5-zap",
		BridgeBinary:            "ffmpeg",
		ScannerBinary:           scan.DefaultBinary,
		BasePort:                23000,
		MaxReconnectAttempts:    6,
		ReconnectBase:           800 * time.Millisecond,
		ReconnectStep:           900 * time.Millisecond,
		ResetBudgetOnEscalation: true,
		ReadyTimeout:            3500 * time.Millisecond,
		AttachDelay:             450 * time.Millisecond,
		StartTimeout:            supervisor.DefaultStartTimeout,
		TeardownTimeout:         1000 * time.Millisecond,
		StopTimeout:             1200 * time.Millisecond,
		BridgeLogRate:           5,
		BridgeLogBurst:          20,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TunerBinary == "" {
		c.TunerBinary = d.TunerBinary
	}
	if c.BridgeBinary == "" {
		c.BridgeBinary = d.BridgeBinary
	}
	if c.ScannerBinary == "" {
		c.ScannerBinary = d.ScannerBinary
	}
	if c.BasePort <= 0 {
		c.BasePort = d.BasePort
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = d.MaxReconnectAttempts
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = d.ReconnectBase
	}
	if c.ReconnectStep <= 0 {
		c.ReconnectStep = d.ReconnectStep
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = d.ReadyTimeout
	}
	if c.AttachDelay <= 0 {
		c.AttachDelay = d.AttachDelay
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = d.StartTimeout
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = d.TeardownTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.BridgeLogRate <= 0 {
		c.BridgeLogRate = d.BridgeLogRate
	}
	if c.BridgeLogBurst <= 0 {
		c.BridgeLogBurst = d.BridgeLogBurst
	}
	return c
}

// Deps are the engine's collaborators. Catalog is required.
type Deps struct {
	Catalog  *catalog.Catalog
	Hints    catalog.HintLookup
	Player   Player
	Launcher Launcher
	Clock    Clock
	Lease    DeviceLease
}

// Engine owns the session. All state below mb is touched only by the control goroutine.
type Engine struct {
	cfg      Config
	catalog  *catalog.Catalog
	hints    catalog.HintLookup
	player   Player
	launcher Launcher
	clock    Clock
	lease    DeviceLease
	logger   zerolog.Logger
	tracer   trace.Tracer

	mb      *mailbox
	stopped chan struct{}
	running atomic.Bool
	status  atomic.Pointer[Status]

	runCtx context.Context

	sess   Session
	failed bool

	tuner   Process
	bridge  Process
	scanner Process

	attachID     uint64
	playerStatus string
	devicePath   string
	streamURL    string

	ready     timerSlot
	reconnect timerSlot
	attach    timerSlot

	bridgeLog     *rate.Limiter
	bridgeDropped int

	scanStarted time.Time
	lastScan    *ScanResult
	scanWaiters []chan ScanResult
}

// New builds an engine. Run must be called to process commands.
func New(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		catalog:   deps.Catalog,
		hints:     deps.Hints,
		player:    deps.Player,
		launcher:  deps.Launcher,
		clock:     deps.Clock,
		lease:     deps.Lease,
		logger:    log.WithComponent("engine"),
		tracer:    telemetry.Tracer("github.com/ManuGH/tunewatch/internal/engine"),
		mb:        newMailbox(),
		stopped:   make(chan struct{}),
		runCtx:    context.Background(),
		ready:     timerSlot{name: "device_ready"},
		reconnect: timerSlot{name: "reconnect"},
		attach:    timerSlot{name: "attach"},
		bridgeLog: rate.NewLimiter(rate.Limit(cfg.BridgeLogRate), cfg.BridgeLogBurst),
	}
	if e.player == nil {
		e.player = nopPlayer{}
	}
	if e.launcher == nil {
		e.launcher = supervisorLauncher{}
	}
	if e.clock == nil {
		e.clock = realClock{}
	}
	if e.lease == nil {
		e.lease = nopLease{}
	}
	e.sess.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	e.publish()
	return e
}

// Run processes events and commands until ctx is done, then stops watching and scanning.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}
	defer close(e.stopped)

	e.runCtx = ctx
	e.logger.Info().Str(log.FieldEvent, "engine.started").Int(log.FieldAdapter, e.cfg.Adapter).Int(log.FieldFrontend, e.cfg.Frontend).Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			e.drain()
			e.shutdown()
			return nil
		case <-e.mb.signal:
			e.drain()
		}
	}
}

func (e *Engine) drain() {
	for _, fn := range e.mb.take() {
		fn()
		e.publish()
	}
}

func (e *Engine) shutdown() {
	// Process teardown must not be bounded by the cancelled run context.
	e.runCtx = context.Background()
	e.stopWatching()
	if p := e.scanner; p != nil {
		e.scanner = nil
		if err := p.Stop(e.cfg.StopTimeout); err != nil {
			e.logger.Warn().Err(err).Msg("scanner stop failed")
		}
		res := ScanResult{ExitCode: -1, Channels: e.catalog.Len(), Interrupted: true}
		res.Persisted = e.catalog.Persist() == nil
		e.finishScan(res)
	}
	e.publish()
	e.logger.Info().Str(log.FieldEvent, "engine.stopped").Msg("engine stopped")
}

// call runs fn on the control goroutine and waits for its result.
func (e *Engine) call(ctx context.Context, fn func() error) error {
	select {
	case <-e.stopped:
		return ErrStopped
	default:
	}

	done := make(chan error, 1)
	e.mb.post(func() {
		err := fn()
		e.publish()
		done <- err
	})

	select {
	case err := <-done:
		return err
	case <-e.stopped:
		// The closure may still have run during the final drain.
		select {
		case err := <-done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch starts watching channel as a fresh selection.
func (e *Engine) Watch(ctx context.Context, channel string) error {
	return e.call(ctx, func() error { return e.watch(channel, false) })
}

// StopWatching stops the current session. It is idempotent.
func (e *Engine) StopWatching(ctx context.Context) error {
	return e.call(ctx, func() error {
		e.stopWatching()
		return nil
	})
}

// Status returns the latest published snapshot.
func (e *Engine) Status() Status {
	return *e.status.Load()
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }
