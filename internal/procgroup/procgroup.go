// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup starts external tools in their own process group and
// stops the whole group with an escalating signal sequence.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/tunewatch/internal/metrics"
)

// ErrKillFailed is returned when a process group survives SIGKILL for the full kill window.
var ErrKillFailed = errors.New("process group did not exit after SIGKILL")

// Outcome describes how Terminate ended.
type Outcome string

const (
	OutcomeAlreadyExited Outcome = "already_exited"
	OutcomeExited        Outcome = "exited"
	OutcomeForcedExited  Outcome = "forced_exited"
	OutcomeStuck         Outcome = "stuck"
)

// Terminate stops the process group of cmd.
// It sends SIGTERM, waits up to grace for exited to close, then sends SIGKILL
// and waits up to kill. exited must be closed by whoever owns cmd.Wait.
// It is safe to call on nil or never-started commands.
func Terminate(cmd *exec.Cmd, exited <-chan struct{}, grace, kill time.Duration) (Outcome, error) {
	if cmd == nil || cmd.Process == nil {
		return OutcomeAlreadyExited, nil
	}

	select {
	case <-exited:
		return OutcomeAlreadyExited, nil
	default:
	}

	signal(cmd, syscall.SIGTERM)

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()
	select {
	case <-exited:
		metrics.IncProcWait(string(OutcomeExited))
		return OutcomeExited, nil
	case <-graceTimer.C:
	}

	signal(cmd, syscall.SIGKILL)

	killTimer := time.NewTimer(kill)
	defer killTimer.Stop()
	select {
	case <-exited:
		metrics.IncProcWait(string(OutcomeForcedExited))
		return OutcomeForcedExited, nil
	case <-killTimer.C:
		metrics.IncProcWait(string(OutcomeStuck))
		return OutcomeStuck, ErrKillFailed
	}
}

func signal(cmd *exec.Cmd, sig syscall.Signal) {
	name := "SIGTERM"
	if sig == syscall.SIGKILL {
		name = "SIGKILL"
	}
	switch err := Kill(cmd, sig); {
	case err == nil:
		metrics.IncProcTerminate(name, "sent")
	case errors.Is(err, syscall.ESRCH):
		metrics.IncProcTerminate(name, "esrch")
	default:
		metrics.IncProcTerminate(name, "error")
	}
}
