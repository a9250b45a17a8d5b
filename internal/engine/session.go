// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/tunewatch/internal/bridge"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/supervisor"
	"github.com/ManuGH/tunewatch/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	roleTuner   = "tuner"
	roleBridge  = "bridge"
	roleScanner = "scanner"
)

// Session is the state of the channel currently being watched.
type Session struct {
	ID                   string
	Channel              string
	ProgramID            string
	PendingDevicePath    string
	AwaitingDeviceReady  bool
	ReconnectAttempts    int
	MaxReconnectAttempts int
	UserStopped          bool
	Resilient            bool
	ResilientTried       bool
	LastFailure          *Failure
}

// Active reports whether recovery may act on the session.
func (s Session) Active() bool {
	return s.Channel != "" && !s.UserStopped
}

// tunerArgs builds the dvbv5-zap invocation for channel.
func (e *Engine) tunerArgs(channel string) []string {
	return []string{
		"-I", "ZAP",
		"-c", e.catalog.Path(),
		"-a", strconv.Itoa(e.cfg.Adapter),
		"-f", strconv.Itoa(e.cfg.Frontend),
		"-r",
		"-P",
		"-p", channel,
	}
}

// watch locks the tuner to channel. A fresh selection resets the recovery budget
// and the bridge profile; a reconnect keeps both.
func (e *Engine) watch(channel string, reconnect bool) error {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return ErrEmptySelection
	}
	if e.scanner != nil {
		return ErrScanInProgress
	}
	if e.catalog.Len() == 0 {
		return ErrNoCatalog
	}
	if err := e.catalog.Persist(); err != nil {
		return fmt.Errorf("save channel list: %w", err)
	}

	_, span := e.tracer.Start(e.runCtx, "tuner.watch", trace.WithAttributes(
		attribute.String(telemetry.TunerChannelKey, channel),
		attribute.Bool(telemetry.SessionReconnectKey, reconnect),
	))
	defer span.End()

	binary, err := e.launcher.Resolve(e.cfg.TunerBinary)
	if err != nil {
		metrics.RecordWatchAttempt(reconnect, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tuner not found")
		e.logger.Error().Err(err).
			Str(log.FieldEvent, "tuner.not_found").
			Str(log.FieldBinary, e.cfg.TunerBinary).
			Msg("tuner executable not found")
		if reconnect && e.sess.Active() {
			e.scheduleReconnect(e.failure(SourceTunerStart, err.Error()))
		}
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, e.cfg.TunerBinary)
	}

	if !reconnect {
		e.reconnect.cancel()
		e.sess = Session{
			ID:                   uuid.NewString(),
			MaxReconnectAttempts: e.cfg.MaxReconnectAttempts,
		}
		e.failed = false
	}
	e.sess.UserStopped = false

	e.ready.cancel()
	e.teardownBridge(e.cfg.TeardownTimeout)
	e.teardown(&e.tuner, e.cfg.TeardownTimeout)
	e.stopPlayer()

	e.sess.Channel = channel
	e.sess.ProgramID = e.catalog.ProgramID(channel, e.hints)
	e.sess.PendingDevicePath = ""
	e.sess.AwaitingDeviceReady = false

	span.SetAttributes(telemetry.TunerAttributes(channel, e.sess.ProgramID, e.cfg.Adapter, e.cfg.Frontend)...)
	span.SetAttributes(telemetry.SessionAttributes(e.sess.ID, reconnect, e.sess.ReconnectAttempts)...)

	logger := e.sessionLogger()
	p, err := e.launcher.Start(e.runCtx, supervisor.Spec{
		Role:         roleTuner,
		Binary:       binary,
		Args:         e.tunerArgs(channel),
		StartTimeout: e.cfg.StartTimeout,
	}, e.processSink)
	if err != nil {
		metrics.RecordWatchAttempt(reconnect, false)
		span.RecordError(err)
		span.SetStatus(codes.Error, "tuner start failed")
		logger.Error().Err(err).
			Str(log.FieldEvent, "tuner.start_failed").
			Bool("reconnect", reconnect).
			Msg("tuner failed to start")
		e.scheduleReconnect(e.failure(SourceTunerStart, err.Error()))
		return fmt.Errorf("start tuner: %w", err)
	}
	metrics.RecordWatchAttempt(reconnect, true)

	e.tuner = p
	expected := bridge.DevicePath(e.cfg.Adapter)
	e.sess.PendingDevicePath = expected
	e.sess.AwaitingDeviceReady = true
	e.arm(&e.ready, e.cfg.ReadyTimeout, func() { e.onReadyTimeout(expected) })

	logger.Info().
		Str(log.FieldEvent, "tuner.started").
		Int(log.FieldPID, p.PID()).
		Str(log.FieldProgramID, e.sess.ProgramID).
		Bool("reconnect", reconnect).
		Int(log.FieldAttempt, e.sess.ReconnectAttempts).
		Str(log.FieldMode, string(e.mode())).
		Msg("tuner locking channel")
	return nil
}

// stopWatching ends the session on user request. Calling it without a session is harmless.
func (e *Engine) stopWatching() {
	hadSession := e.sess.Channel != "" || e.tuner != nil || e.bridge != nil

	e.sess.UserStopped = true
	e.reconnect.cancel()
	e.ready.cancel()
	e.sess.ReconnectAttempts = 0
	e.sess.Resilient = false
	e.sess.ResilientTried = false

	e.stopPlayer()
	e.teardownBridge(e.cfg.StopTimeout)
	e.teardown(&e.tuner, e.cfg.StopTimeout)

	if hadSession {
		logger := e.sessionLogger()
		logger.Info().Str(log.FieldEvent, "session.stopped").Msg("stopped watching")
	}

	e.sess.Channel = ""
	e.sess.ProgramID = ""
	e.sess.PendingDevicePath = ""
	e.sess.AwaitingDeviceReady = false
	e.failed = false
}

// teardown detaches *ref and stops it. Events from the detached process no
// longer match a current handle and are ignored.
func (e *Engine) teardown(ref *Process, timeout time.Duration) {
	p := *ref
	if p == nil {
		return
	}
	*ref = nil
	if err := p.Stop(timeout); err != nil {
		e.logger.Warn().Err(err).
			Str(log.FieldEvent, "process.stop_failed").
			Int(log.FieldPID, p.PID()).
			Msg("process did not stop cleanly")
	}
}

func (e *Engine) stopPlayer() {
	if e.attachID != 0 {
		e.attachID = 0
		e.player.Stop()
	}
	e.playerStatus = ""
}

// processSink is handed to every launched process. It only queues.
func (e *Engine) processSink(ev supervisor.Event) {
	e.mb.post(func() { e.onProcessEvent(ev) })
}

func (e *Engine) onProcessEvent(ev supervisor.Event) {
	switch {
	case e.tuner != nil && ev.ProcessID == e.tuner.ID():
		e.onTunerEvent(ev)
	case e.bridge != nil && ev.ProcessID == e.bridge.ID():
		e.onBridgeEvent(ev)
	case e.scanner != nil && ev.ProcessID == e.scanner.ID():
		e.onScannerEvent(ev)
	default:
		if ev.Kind == supervisor.EventExit {
			e.logger.Debug().
				Str(log.FieldEvent, "process.exit_ignored").
				Str(log.FieldRole, ev.Role).
				Uint64("process_id", ev.ProcessID).
				Msg("exit of detached process ignored")
		}
	}
}

func (e *Engine) onTunerEvent(ev supervisor.Event) {
	logger := e.sessionLogger()
	switch ev.Kind {
	case supervisor.EventLine:
		logger.Debug().Str(log.FieldRole, roleTuner).Str("stream", string(ev.Stream)).Msg(ev.Line)
		if ev.Stream != supervisor.Stderr || !e.sess.AwaitingDeviceReady || !isReadyLine(ev.Line) {
			return
		}
		path := readyPath(ev.Line, e.sess.PendingDevicePath)
		logger.Info().
			Str(log.FieldEvent, "tuner.device_ready").
			Str(log.FieldDevice, path).
			Msg("device ready")
		e.startBridgeFrom(path)

	case supervisor.EventExit:
		e.tuner = nil
		if ev.Exit.Clean() {
			logger.Info().Str(log.FieldEvent, "tuner.exited").Int(log.FieldExitCode, 0).Msg("tuner exited")
			return
		}
		logger.Warn().
			Str(log.FieldEvent, "tuner.failed").
			Int(log.FieldExitCode, ev.Exit.Code).
			Str(log.FieldReason, ev.Exit.String()).
			Msg("tuner exited unexpectedly")
		if !e.sess.Active() {
			return
		}
		e.ready.cancel()
		e.sess.AwaitingDeviceReady = false
		e.scheduleReconnect(e.failure(SourceTunerExit, exitReason(roleTuner, ev)))
	}
}

// onReadyTimeout treats a silent tuner as ready. expected guards against a
// firing that belongs to a superseded attempt.
func (e *Engine) onReadyTimeout(expected string) {
	if !e.sess.AwaitingDeviceReady || e.sess.PendingDevicePath != expected {
		return
	}
	logger := e.sessionLogger()
	logger.Warn().
		Str(log.FieldEvent, "tuner.ready_timeout").
		Str(log.FieldDevice, expected).
		Dur("timeout", e.cfg.ReadyTimeout).
		Msg("no ready signal from tuner, starting bridge anyway")
	e.startBridgeFrom(expected)
}

func (e *Engine) mode() bridge.Mode {
	return bridge.ModeFor(e.sess.Resilient)
}

func (e *Engine) sessionLogger() zerolog.Logger {
	return e.logger.With().
		Str(log.FieldSessionID, e.sess.ID).
		Str(log.FieldChannel, e.sess.Channel).
		Logger()
}
