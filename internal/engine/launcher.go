// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"time"

	"github.com/ManuGH/tunewatch/internal/player"
	"github.com/ManuGH/tunewatch/internal/supervisor"
)

// Process is a running external tool owned by the engine.
type Process interface {
	ID() uint64
	PID() int
	Running() bool
	Stop(timeout time.Duration) error
}

// Launcher resolves and starts external tools.
type Launcher interface {
	Resolve(name string) (string, error)
	Start(ctx context.Context, spec supervisor.Spec, sink supervisor.Sink) (Process, error)
}

// Player consumes the bridge stream and reports media failures.
type Player interface {
	Attach(source string, sink player.Sink) (uint64, error)
	Stop()
}

// DeviceLease guards the transport-stream device.
type DeviceLease interface {
	Acquire(devicePath string) error
	Release() error
}

type supervisorLauncher struct{}

func (supervisorLauncher) Resolve(name string) (string, error) {
	return supervisor.Resolve(name)
}

func (supervisorLauncher) Start(ctx context.Context, spec supervisor.Spec, sink supervisor.Sink) (Process, error) {
	p, err := supervisor.Start(ctx, spec, sink)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type nopPlayer struct{}

func (nopPlayer) Attach(string, player.Sink) (uint64, error) { return 0, nil }
func (nopPlayer) Stop()                                      {}

type nopLease struct{}

func (nopLease) Acquire(string) error { return nil }
func (nopLease) Release() error       { return nil }
