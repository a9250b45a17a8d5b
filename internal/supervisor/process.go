// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package supervisor

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/procgroup"
	"golang.org/x/sync/errgroup"
)

const killSignal = syscall.SIGKILL

// Process is an owned handle to one running external process.
type Process struct {
	id     uint64
	role   string
	binary string
	cmd    *exec.Cmd

	exited chan struct{} // closed after cmd.Wait returned
	done   chan struct{} // closed after the exit event was delivered
	status ExitStatus

	stopMu sync.Mutex
	diag   *RingBuffer
}

// ID is unique per started process and carried by every event it emits.
func (p *Process) ID() uint64 { return p.id }

// PID returns the OS process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// Running reports whether the OS process has not exited yet.
func (p *Process) Running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// Done is closed once the exit event has been delivered.
func (p *Process) Done() <-chan struct{} { return p.done }

// Stop terminates the process group: SIGTERM, wait up to timeout, SIGKILL, wait up to
// timeout. It is a no-op for a process that already exited. Pipes are released on return.
func (p *Process) Stop(timeout time.Duration) error {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	logger := log.WithComponent("supervisor")
	if !p.Running() {
		<-p.done
		return nil
	}

	outcome, err := procgroup.Terminate(p.cmd, p.exited, timeout, timeout)
	logger.Debug().
		Str(log.FieldEvent, "process.stopped").
		Str(log.FieldRole, p.role).
		Int(log.FieldPID, p.cmd.Process.Pid).
		Str("outcome", string(outcome)).
		Msg("process stop finished")
	if err != nil {
		logger.Error().Err(err).Str(log.FieldRole, p.role).Int(log.FieldPID, p.cmd.Process.Pid).Msg("process survived SIGKILL")
		return err
	}

	<-p.done
	return nil
}

func (p *Process) pump(r io.Reader, stream Stream, sink Sink) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, _, err := readLine(br, maxLineBytes)
		if err == nil || line != "" {
			if stream == Stderr {
				p.diag.Add(line)
			}
			sink(Event{ProcessID: p.id, Role: p.role, Kind: EventLine, Stream: stream, Line: line})
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// readLine reads up to the next newline. Bytes past limit are consumed and
// discarded so the child never blocks on a full pipe.
func readLine(br *bufio.Reader, limit int) (string, bool, error) {
	var buf []byte
	truncated := false
	for {
		chunk, err := br.ReadSlice('\n')
		if room := limit - len(buf); len(chunk) > room {
			chunk = chunk[:max(room, 0)]
			truncated = true
		}
		buf = append(buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return strings.TrimRight(string(buf), "\r\n"), truncated, err
	}
}

func (p *Process) wait(g *errgroup.Group, sink Sink, pipes ...*os.File) {
	waitErr := p.cmd.Wait()
	p.status = exitStatus(p.cmd.ProcessState, waitErr)
	close(p.exited)

	drained := make(chan error, 1)
	go func() { drained <- g.Wait() }()

	timer := time.NewTimer(drainGrace)
	var drainErr error
	select {
	case drainErr = <-drained:
		timer.Stop()
	case <-timer.C:
		// Force EOF on pipes still held open by orphaned children.
		closeAll(pipes...)
		drainErr = <-drained
	}
	closeAll(pipes...)

	logger := log.WithComponent("supervisor")
	ev := logger.Info()
	outcome := "clean"
	switch {
	case p.status.Signaled:
		outcome = "signaled"
	case !p.status.Clean():
		outcome = "error"
		ev = logger.Warn().Strs("stderr_tail", p.diag.Tail(tailLines))
	}
	if drainErr != nil {
		ev = ev.AnErr("drain_error", drainErr)
	}
	metrics.IncProcessExit(p.role, outcome)
	ev.Str(log.FieldEvent, "process.exited").
		Str(log.FieldRole, p.role).
		Int(log.FieldPID, p.cmd.Process.Pid).
		Int(log.FieldExitCode, p.status.Code).
		Bool("signaled", p.status.Signaled).
		Msg("process exited")

	sink(Event{ProcessID: p.id, Role: p.role, Kind: EventExit, Exit: p.status, Tail: p.diag.Tail(tailLines)})
	close(p.done)
}

func exitStatus(state *os.ProcessState, err error) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1, Err: err}
	}
	st := ExitStatus{Code: state.ExitCode()}
	if !state.Exited() {
		st.Signaled = true
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		st.Err = err
	}
	return st
}
