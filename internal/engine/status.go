// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"time"

	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/player"
)

// State is the coarse engine state shown to clients.
type State string

const (
	StateIdle         State = "idle"
	StateTuning       State = "tuning"
	StateBridging     State = "bridging"
	StatePlaying      State = "playing"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
	StateScanning     State = "scanning"
)

// Status is an immutable snapshot of the engine, published after every event.
type Status struct {
	State                State       `json:"state"`
	SessionID            string      `json:"session_id,omitempty"`
	Channel              string      `json:"channel,omitempty"`
	ProgramID            string      `json:"program_id,omitempty"`
	Adapter              int         `json:"adapter"`
	Frontend             int         `json:"frontend"`
	BridgeMode           string      `json:"bridge_mode,omitempty"`
	ResilientTried       bool        `json:"resilient_tried"`
	ReconnectAttempts    int         `json:"reconnect_attempts"`
	MaxReconnectAttempts int         `json:"max_reconnect_attempts"`
	ReconnectPending     bool        `json:"reconnect_pending"`
	AwaitingDeviceReady  bool        `json:"awaiting_device_ready"`
	DevicePath           string      `json:"device_path,omitempty"`
	StreamURL            string      `json:"stream_url,omitempty"`
	PlayerStatus         string      `json:"player_status,omitempty"`
	TunerPID             int         `json:"tuner_pid,omitempty"`
	BridgePID            int         `json:"bridge_pid,omitempty"`
	ScanChannels         int         `json:"scan_channels,omitempty"`
	LastFailure          *Failure    `json:"last_failure,omitempty"`
	LastScan             *ScanResult `json:"last_scan,omitempty"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

func (e *Engine) state() State {
	switch {
	case e.scanner != nil:
		return StateScanning
	case e.sess.Channel == "":
		if e.failed {
			return StateFailed
		}
		return StateIdle
	case e.reconnect.pending():
		return StateReconnecting
	case e.attachID != 0 && e.playerStatus == string(player.StatusBuffered):
		return StatePlaying
	case e.bridge != nil:
		return StateBridging
	default:
		return StateTuning
	}
}

// publish stores a fresh snapshot. Only the control goroutine calls it.
func (e *Engine) publish() {
	s := Status{
		State:                e.state(),
		SessionID:            e.sess.ID,
		Channel:              e.sess.Channel,
		ProgramID:            e.sess.ProgramID,
		Adapter:              e.cfg.Adapter,
		Frontend:             e.cfg.Frontend,
		ResilientTried:       e.sess.ResilientTried,
		ReconnectAttempts:    e.sess.ReconnectAttempts,
		MaxReconnectAttempts: e.sess.MaxReconnectAttempts,
		ReconnectPending:     e.reconnect.pending(),
		AwaitingDeviceReady:  e.sess.AwaitingDeviceReady,
		DevicePath:           e.devicePath,
		StreamURL:            e.streamURL,
		PlayerStatus:         e.playerStatus,
		LastFailure:          e.sess.LastFailure,
		LastScan:             e.lastScan,
		UpdatedAt:            e.clock.Now(),
	}
	if e.sess.AwaitingDeviceReady {
		s.DevicePath = e.sess.PendingDevicePath
	}
	if e.sess.Channel != "" {
		s.BridgeMode = string(e.mode())
	}
	if e.tuner != nil {
		s.TunerPID = e.tuner.PID()
	}
	if e.bridge != nil {
		s.BridgePID = e.bridge.PID()
	}
	if e.scanner != nil {
		s.ScanChannels = e.catalog.Len()
	}
	e.status.Store(&s)
	metrics.RecordSessionState(e.sess.Channel != "", e.sess.Resilient, e.sess.ReconnectAttempts)
}
