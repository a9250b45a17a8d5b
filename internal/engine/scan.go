// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/scan"
	"github.com/ManuGH/tunewatch/internal/supervisor"
)

// ScanResult summarizes one finished scan.
type ScanResult struct {
	ExitCode    int       `json:"exit_code"`
	Channels    int       `json:"channels"`
	Persisted   bool      `json:"persisted"`
	Interrupted bool      `json:"interrupted,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// StartScan stops watching, clears the catalog and runs the scanner.
func (e *Engine) StartScan(ctx context.Context, opts scan.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return e.call(ctx, func() error { return e.startScan(opts) })
}

// StopScan asks the running scanner to terminate. Its exit still completes the scan.
func (e *Engine) StopScan(ctx context.Context) error {
	return e.call(ctx, func() error {
		p := e.scanner
		if p == nil {
			return nil
		}
		e.logger.Info().Str(log.FieldEvent, "scan.stop_requested").Msg("stopping scan")
		timeout := e.cfg.StopTimeout
		go func() {
			if err := p.Stop(timeout); err != nil {
				e.logger.Warn().Err(err).Str(log.FieldEvent, "scan.stop_failed").Msg("scanner did not stop cleanly")
			}
		}()
		return nil
	})
}

// AwaitScan blocks until the running scan finishes. Without a running scan it
// returns the last result.
func (e *Engine) AwaitScan(ctx context.Context) (ScanResult, error) {
	ch := make(chan ScanResult, 1)
	err := e.call(ctx, func() error {
		if e.scanner == nil {
			if e.lastScan == nil {
				return ErrNoScan
			}
			ch <- *e.lastScan
			return nil
		}
		e.scanWaiters = append(e.scanWaiters, ch)
		return nil
	})
	if err != nil {
		return ScanResult{}, err
	}
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return ScanResult{}, ctx.Err()
	case <-e.stopped:
		select {
		case res := <-ch:
			return res, nil
		default:
			return ScanResult{}, ErrStopped
		}
	}
}

func (e *Engine) startScan(opts scan.Options) error {
	if e.scanner != nil {
		return ErrScanRunning
	}
	binary, err := e.launcher.Resolve(e.cfg.ScannerBinary)
	if err != nil {
		metrics.IncScan("not_found")
		return fmt.Errorf("%w: %s", ErrExecutableNotFound, e.cfg.ScannerBinary)
	}

	e.stopWatching()
	e.catalog.Reset()

	p, err := e.launcher.Start(e.runCtx, supervisor.Spec{
		Role:         roleScanner,
		Binary:       binary,
		Args:         opts.Args(),
		StartTimeout: e.cfg.StartTimeout,
	}, e.processSink)
	if err != nil {
		metrics.IncScan("start_failed")
		e.logger.Error().Err(err).Str(log.FieldEvent, "scan.start_failed").Msg("scanner failed to start")
		return fmt.Errorf("start scanner: %w", err)
	}
	e.scanner = p
	e.scanStarted = e.clock.Now()

	e.logger.Info().
		Str(log.FieldEvent, "scan.started").
		Int(log.FieldPID, p.PID()).
		Str(log.FieldDevice, opts.FrontendPath()).
		Strs("args", opts.Args()).
		Msg("scan started")
	return nil
}

func (e *Engine) onScannerEvent(ev supervisor.Event) {
	switch ev.Kind {
	case supervisor.EventLine:
		if ev.Stream == supervisor.Stderr {
			e.logger.Debug().Str(log.FieldRole, roleScanner).Msg(ev.Line)
			return
		}
		if rec, added := e.catalog.Add(ev.Line); added {
			e.logger.Info().
				Str(log.FieldEvent, "scan.channel_found").
				Str(log.FieldChannel, rec.Name).
				Str("provider", rec.Provider).
				Msg("channel found")
		}

	case supervisor.EventExit:
		e.scanner = nil
		res := ScanResult{
			ExitCode:  ev.Exit.Code,
			Channels:  e.catalog.Len(),
			StartedAt: e.scanStarted,
		}
		if ev.Exit.Signaled {
			res.Interrupted = true
		}
		if err := e.catalog.Persist(); err != nil {
			res.Error = err.Error()
			level := e.logger.Error()
			if errors.Is(err, catalog.ErrEmpty) {
				level = e.logger.Warn()
			}
			level.Err(err).Str(log.FieldEvent, "scan.persist_failed").Msg("channel list not saved")
		} else {
			res.Persisted = true
		}
		e.logger.Info().
			Str(log.FieldEvent, "scan.finished").
			Int(log.FieldExitCode, ev.Exit.Code).
			Int("channels", res.Channels).
			Msg("scan finished")
		e.finishScan(res)
	}
}

func (e *Engine) finishScan(res ScanResult) {
	res.FinishedAt = e.clock.Now()
	if res.StartedAt.IsZero() {
		res.StartedAt = e.scanStarted
	}
	e.lastScan = &res

	outcome := "ok"
	switch {
	case res.Interrupted:
		outcome = "interrupted"
	case !res.Persisted:
		outcome = "empty"
	}
	metrics.IncScan(outcome)
	metrics.RecordCatalogChannels(res.Channels)

	for _, ch := range e.scanWaiters {
		ch <- res
	}
	e.scanWaiters = nil
}
