// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import "errors"

var (
	// ErrEmptySelection is returned when no channel name was given.
	ErrEmptySelection = errors.New("no channel selected")
	// ErrScanInProgress is returned when watching is requested during a scan.
	ErrScanInProgress = errors.New("stop scanning before starting live viewing")
	// ErrNoCatalog is returned when no channel list is available to tune from.
	ErrNoCatalog = errors.New("no saved channels are available yet, run a scan first")
	// ErrScanRunning is returned when a scan is requested while one is running.
	ErrScanRunning = errors.New("scan already running")
	// ErrExecutableNotFound is returned when an external tool is missing.
	ErrExecutableNotFound = errors.New("executable not found")
	// ErrNoScan is returned when waiting for a scan while none has run.
	ErrNoScan = errors.New("no scan has run")
	// ErrStopped is returned for commands sent after the engine stopped.
	ErrStopped = errors.New("engine stopped")
)
