// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldRole      = "role"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldBinary    = "binary"

	// Tuning fields
	FieldChannel   = "channel"
	FieldProgramID = "program_id"
	FieldAdapter   = "adapter"
	FieldFrontend  = "frontend"
	FieldDevice    = "device"

	// Recovery fields
	FieldReason   = "reason"
	FieldSource   = "source"
	FieldAttempt  = "attempt"
	FieldMaxTries = "max_attempts"
	FieldDelayMS  = "delay_ms"
	FieldMode     = "mode"

	// Path / URL fields
	FieldPath      = "path"
	FieldStreamURL = "stream_url"
)
