// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Tuner attributes
	TunerChannelKey   = "tuner.channel"
	TunerProgramIDKey = "tuner.program_id"
	TunerAdapterKey   = "tuner.adapter"
	TunerFrontendKey  = "tuner.frontend"
	TunerDeviceKey    = "tuner.device"

	// Session attributes
	SessionIDKey        = "session.id"
	SessionReconnectKey = "session.reconnect"
	SessionAttemptKey   = "session.attempt"

	// Bridge attributes
	BridgeModeKey = "bridge.mode"
	BridgePortKey = "bridge.port"

	// Recovery attributes
	RecoverySourceKey  = "recovery.source"
	RecoveryDelayMSKey = "recovery.delay_ms"
	RecoveryActionKey  = "recovery.action"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// TunerAttributes describes the tuned channel.
func TunerAttributes(channel, programID string, adapter, frontend int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(TunerAdapterKey, adapter),
		attribute.Int(TunerFrontendKey, frontend),
	}
	if channel != "" {
		attrs = append(attrs, attribute.String(TunerChannelKey, channel))
	}
	if programID != "" {
		attrs = append(attrs, attribute.String(TunerProgramIDKey, programID))
	}
	return attrs
}

// SessionAttributes describes one watch attempt.
func SessionAttributes(sessionID string, reconnect bool, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, sessionID),
		attribute.Bool(SessionReconnectKey, reconnect),
		attribute.Int(SessionAttemptKey, attempt),
	}
}

// BridgeAttributes describes a bridge start.
func BridgeAttributes(mode, device string, port int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(BridgeModeKey, mode),
		attribute.String(TunerDeviceKey, device),
		attribute.Int(BridgePortKey, port),
	}
}

// RecoveryAttributes describes a recovery decision.
func RecoveryAttributes(source, action string, delayMS int64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(RecoverySourceKey, source),
		attribute.String(RecoveryActionKey, action),
	}
	if delayMS > 0 {
		attrs = append(attrs, attribute.Int64(RecoveryDelayMSKey, delayMS))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
