// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"time"

	"github.com/ManuGH/tunewatch/internal/bridge"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/player"
	"github.com/ManuGH/tunewatch/internal/supervisor"
	"github.com/ManuGH/tunewatch/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startBridgeFrom remuxes devicePath onto the loopback stream and schedules
// the player attach.
func (e *Engine) startBridgeFrom(devicePath string) {
	if devicePath == "" {
		return
	}
	e.sess.AwaitingDeviceReady = false
	e.sess.PendingDevicePath = ""
	e.ready.cancel()

	e.teardownBridge(e.cfg.TeardownTimeout)

	logger := e.sessionLogger()
	binary, err := e.launcher.Resolve(e.cfg.BridgeBinary)
	if err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "bridge.not_found").
			Str(log.FieldBinary, e.cfg.BridgeBinary).
			Msg("bridge executable not found")
		e.scheduleReconnect(e.failure(SourceBridgeMissing, err.Error()))
		return
	}

	if err := e.lease.Acquire(devicePath); err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "bridge.device_busy").
			Str(log.FieldDevice, devicePath).
			Msg("device unavailable")
		e.scheduleReconnect(e.failure(SourceDeviceBusy, err.Error()))
		return
	}

	profile := bridge.Profile{
		Mode:      e.mode(),
		Device:    devicePath,
		ProgramID: e.sess.ProgramID,
		Port:      bridge.Port(e.cfg.BasePort, e.cfg.Adapter),
	}

	_, span := e.tracer.Start(e.runCtx, "bridge.start", trace.WithAttributes(
		telemetry.BridgeAttributes(string(profile.Mode), devicePath, profile.Port)...,
	))
	defer span.End()

	p, err := e.launcher.Start(e.runCtx, supervisor.Spec{
		Role:         roleBridge,
		Binary:       binary,
		Args:         profile.Args(),
		StartTimeout: e.cfg.StartTimeout,
	}, e.processSink)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bridge start failed")
		e.releaseLease()
		logger.Error().Err(err).
			Str(log.FieldEvent, "bridge.start_failed").
			Str(log.FieldMode, string(profile.Mode)).
			Msg("bridge failed to start")
		e.scheduleReconnect(e.failure(SourceBridgeStart, err.Error()))
		return
	}

	e.bridge = p
	e.devicePath = devicePath
	e.streamURL = bridge.SourceURL(profile.Port)
	e.bridgeDropped = 0

	logger.Info().
		Str(log.FieldEvent, "bridge.started").
		Int(log.FieldPID, p.PID()).
		Str(log.FieldMode, string(profile.Mode)).
		Str(log.FieldDevice, devicePath).
		Str(log.FieldStreamURL, e.streamURL).
		Msg("bridge started")

	id, source := p.ID(), e.streamURL
	e.arm(&e.attach, e.cfg.AttachDelay, func() { e.onAttach(id, source) })
}

// teardownBridge stops the current bridge and releases its device.
func (e *Engine) teardownBridge(timeout time.Duration) {
	e.attach.cancel()
	e.teardown(&e.bridge, timeout)
	e.releaseLease()
	e.devicePath = ""
	e.streamURL = ""
}

func (e *Engine) releaseLease() {
	if err := e.lease.Release(); err != nil {
		e.logger.Warn().Err(err).Str(log.FieldEvent, "device.release_failed").Msg("device release failed")
	}
}

// onAttach hands the stream to the player if the bridge that scheduled it is still alive.
func (e *Engine) onAttach(bridgeID uint64, source string) {
	logger := e.sessionLogger()
	if e.bridge == nil || e.bridge.ID() != bridgeID || !e.bridge.Running() {
		logger.Warn().
			Str(log.FieldEvent, "player.attach_skipped").
			Msg("bridge is not running, skipping player attach")
		return
	}
	e.stopPlayer()
	id, err := e.player.Attach(source, e.playerSink)
	if err != nil {
		logger.Error().Err(err).
			Str(log.FieldEvent, "player.attach_failed").
			Str(log.FieldStreamURL, source).
			Msg("player attach failed")
		e.onFailure(e.failure(SourcePlayerError, err.Error()))
		return
	}
	e.attachID = id
	e.playerStatus = string(player.StatusLoading)
	logger.Info().
		Str(log.FieldEvent, "player.attached").
		Str(log.FieldStreamURL, source).
		Msg("player attached")
}

func (e *Engine) onBridgeEvent(ev supervisor.Event) {
	logger := e.sessionLogger()
	switch ev.Kind {
	case supervisor.EventLine:
		if e.bridgeLog.Allow() {
			logger.Warn().Str(log.FieldRole, roleBridge).Str("stream", string(ev.Stream)).Msg(ev.Line)
			return
		}
		e.bridgeDropped++
		metrics.LogLinesDroppedTotal.WithLabelValues(roleBridge).Inc()

	case supervisor.EventExit:
		e.bridge = nil
		e.attach.cancel()
		e.releaseLease()
		e.devicePath = ""
		e.streamURL = ""

		evt := logger.Warn().
			Str(log.FieldEvent, "bridge.exited").
			Int(log.FieldExitCode, ev.Exit.Code).
			Str(log.FieldReason, ev.Exit.String())
		if e.bridgeDropped > 0 {
			evt = evt.Int("dropped_lines", e.bridgeDropped)
			e.bridgeDropped = 0
		}
		evt.Msg("bridge exited")

		if !e.sess.Active() {
			return
		}
		e.onFailure(e.failure(SourceBridgeExit, exitReason(roleBridge, ev)))
	}
}

// playerSink is handed to the player. It only queues.
func (e *Engine) playerSink(ev player.Event) {
	e.mb.post(func() { e.onPlayerEvent(ev) })
}

func (e *Engine) onPlayerEvent(ev player.Event) {
	if e.attachID == 0 || ev.AttachID != e.attachID {
		return
	}
	logger := e.sessionLogger()
	switch ev.Kind {
	case player.EventStatus:
		e.playerStatus = string(ev.Status)
		logger.Debug().Str(log.FieldEvent, "player.status").Str("status", string(ev.Status)).Msg("player status changed")
		switch ev.Status {
		case player.StatusInvalidMedia:
			e.playerFailed(SourcePlayerInvalid, "invalid media")
		case player.StatusEndOfMedia:
			e.playerFailed(SourcePlayerEOS, "end of media")
		}
	case player.EventError:
		e.playerFailed(SourcePlayerError, ev.Error)
	}
}

func (e *Engine) playerFailed(source FailureSource, reason string) {
	logger := e.sessionLogger()
	logger.Warn().
		Str(log.FieldEvent, "player.failed").
		Str(log.FieldSource, string(source)).
		Str(log.FieldReason, reason).
		Msg("player reported a stream failure")
	e.stopPlayer()
	if !e.sess.Active() {
		return
	}
	e.onFailure(e.failure(source, reason))
}
