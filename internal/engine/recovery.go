// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"time"

	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/supervisor"
	"github.com/ManuGH/tunewatch/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// FailureSource classifies what went wrong with a session.
type FailureSource string

const (
	SourceTunerStart    FailureSource = "tuner_start"
	SourceTunerExit     FailureSource = "tuner_exit"
	SourceBridgeMissing FailureSource = "bridge_missing"
	SourceBridgeStart   FailureSource = "bridge_start"
	SourceBridgeExit    FailureSource = "bridge_exit"
	SourceDeviceBusy    FailureSource = "device_busy"
	SourcePlayerInvalid FailureSource = "player_invalid"
	SourcePlayerEOS     FailureSource = "player_eos"
	SourcePlayerError   FailureSource = "player_error"
)

// Escalates reports whether the source is a stream-quality failure that the
// resilient bridge profile may cure.
func (s FailureSource) Escalates() bool {
	switch s {
	case SourceBridgeExit, SourcePlayerInvalid, SourcePlayerEOS, SourcePlayerError:
		return true
	default:
		return false
	}
}

// Failure is one classified session failure.
type Failure struct {
	Source FailureSource `json:"source"`
	Reason string        `json:"reason"`
	At     time.Time     `json:"at"`
}

func (e *Engine) failure(source FailureSource, reason string) Failure {
	return Failure{Source: source, Reason: reason, At: e.clock.Now()}
}

// exitReason describes a process exit, ending with its last stderr line.
func exitReason(role string, ev supervisor.Event) string {
	reason := role + " " + ev.Exit.String()
	if n := len(ev.Tail); n > 0 && ev.Tail[n-1] != "" {
		reason += ": " + ev.Tail[n-1]
	}
	return reason
}

// reconnectDelay is the backoff before attempt n (1-based).
func (e *Engine) reconnectDelay(n int) time.Duration {
	return e.cfg.ReconnectBase + time.Duration(n)*e.cfg.ReconnectStep
}

// onFailure routes a failure: escalation first when the source allows it,
// otherwise backoff. Never both for one failure.
func (e *Engine) onFailure(f Failure) {
	if f.Source.Escalates() && e.tryEscalate(f) {
		return
	}
	e.scheduleReconnect(f)
}

// tryEscalate switches the session to the resilient bridge profile once per
// channel selection and retunes immediately.
func (e *Engine) tryEscalate(f Failure) bool {
	if !e.sess.Active() || e.sess.Resilient || e.sess.ResilientTried {
		return false
	}

	_, span := e.tracer.Start(e.runCtx, "recovery.escalate", trace.WithAttributes(
		telemetry.RecoveryAttributes(string(f.Source), "escalate", 0)...,
	))
	defer span.End()

	e.sess.ResilientTried = true
	e.sess.Resilient = true
	e.sess.LastFailure = &f
	e.reconnect.cancel()
	if e.cfg.ResetBudgetOnEscalation {
		e.sess.ReconnectAttempts = 0
	}
	metrics.EscalationsTotal.WithLabelValues(string(f.Source)).Inc()

	logger := e.sessionLogger()
	logger.Warn().
		Str(log.FieldEvent, "recovery.escalated").
		Str(log.FieldSource, string(f.Source)).
		Str(log.FieldReason, f.Reason).
		Msg("switching bridge to resilient mode")

	if err := e.watch(e.sess.Channel, true); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "recovery.escalate_failed").Msg("resilient retune failed")
	}
	return true
}

// scheduleReconnect arms the backoff timer, or gives up once the budget is spent.
func (e *Engine) scheduleReconnect(f Failure) {
	if !e.sess.Active() {
		return
	}
	e.sess.LastFailure = &f

	logger := e.sessionLogger()
	if e.sess.ReconnectAttempts >= e.sess.MaxReconnectAttempts {
		e.failSession(f)
		return
	}

	e.sess.ReconnectAttempts++
	delay := e.reconnectDelay(e.sess.ReconnectAttempts)

	_, span := e.tracer.Start(e.runCtx, "recovery.reconnect", trace.WithAttributes(
		telemetry.RecoveryAttributes(string(f.Source), "reconnect", delay.Milliseconds())...,
	))
	span.End()
	metrics.ReconnectsScheduledTotal.WithLabelValues(string(f.Source)).Inc()

	logger.Warn().
		Str(log.FieldEvent, "recovery.reconnect_scheduled").
		Str(log.FieldSource, string(f.Source)).
		Str(log.FieldReason, f.Reason).
		Int(log.FieldAttempt, e.sess.ReconnectAttempts).
		Int(log.FieldMaxTries, e.sess.MaxReconnectAttempts).
		Int64(log.FieldDelayMS, delay.Milliseconds()).
		Msg("reconnect scheduled")

	channel := e.sess.Channel
	e.arm(&e.reconnect, delay, func() { e.onReconnect(channel) })
}

func (e *Engine) onReconnect(channel string) {
	if !e.sess.Active() || e.sess.Channel != channel {
		return
	}
	if err := e.watch(channel, true); err != nil {
		logger := e.sessionLogger()
		logger.Error().Err(err).Str(log.FieldEvent, "recovery.reconnect_failed").Msg("reconnect failed")
	}
}

// failSession reports terminal failure and returns to idle without arming anything.
func (e *Engine) failSession(f Failure) {
	logger := e.sessionLogger()
	logger.Error().
		Str(log.FieldEvent, "recovery.exhausted").
		Str(log.FieldSource, string(f.Source)).
		Str(log.FieldReason, f.Reason).
		Int(log.FieldMaxTries, e.sess.MaxReconnectAttempts).
		Msg("giving up after maximum reconnect attempts")
	metrics.ReconnectsExhaustedTotal.Inc()

	e.reconnect.cancel()
	e.ready.cancel()
	e.stopPlayer()
	e.teardownBridge(e.cfg.TeardownTimeout)
	e.teardown(&e.tuner, e.cfg.TeardownTimeout)

	last := f
	e.sess = Session{
		ID:                   e.sess.ID,
		MaxReconnectAttempts: e.cfg.MaxReconnectAttempts,
		LastFailure:          &last,
	}
	e.failed = true
}
