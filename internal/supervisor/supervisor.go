// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package supervisor wraps external tools (scanner, lock process, bridge) as owned
// handles. Output lines and the final exit are delivered asynchronously to a Sink;
// the supervisor holds no retry policy.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/ManuGH/tunewatch/internal/procgroup"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStartTimeout bounds how long Start waits for the process to be running.
	DefaultStartTimeout = 2 * time.Second

	// drainGrace bounds how long output is drained after the process exited.
	// Grandchildren holding the pipes open must not delay the exit event forever.
	drainGrace = 500 * time.Millisecond

	maxLineBytes = 1 << 20
	diagLines    = 64
	tailLines    = 8
)

var (
	// ErrNotFound is returned when the executable cannot be resolved.
	ErrNotFound = errors.New("executable not found")
	// ErrStartTimeout is returned when the process did not start within the startup bound.
	ErrStartTimeout = errors.New("process did not start in time")
)

// Stream identifies the output stream a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// EventKind distinguishes output lines from the final exit notification.
type EventKind int

const (
	EventLine EventKind = iota + 1
	EventExit
)

func (k EventKind) String() string {
	switch k {
	case EventLine:
		return "line"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// ExitStatus describes how a process ended.
type ExitStatus struct {
	Code     int
	Signaled bool
	Err      error
}

// Clean reports a normal exit with code zero.
func (s ExitStatus) Clean() bool {
	return s.Err == nil && !s.Signaled && s.Code == 0
}

func (s ExitStatus) String() string {
	switch {
	case s.Signaled:
		return "signaled"
	case s.Err != nil && s.Code == 0:
		return "error: " + s.Err.Error()
	default:
		return fmt.Sprintf("exit code %d", s.Code)
	}
}

// Event is one asynchronous notification from a supervised process.
// ProcessID identifies the process instance that produced it.
type Event struct {
	ProcessID uint64
	Role      string
	Kind      EventKind
	Stream    Stream
	Line      string
	Exit      ExitStatus
	// Tail holds the last stderr lines. Set on EventExit only.
	Tail []string
}

// Sink receives events. It is called from supervisor goroutines and must not block.
type Sink func(Event)

// Spec describes one process to launch.
type Spec struct {
	// Role names the process in logs and metrics (scanner, tuner, bridge).
	Role   string
	Binary string
	Args   []string
	// Env is appended to the current environment.
	Env          []string
	StartTimeout time.Duration
}

var nextID atomic.Uint64

// Resolve looks up an executable by name or path.
func Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return path, nil
}

// Start launches the process described by spec. Events are delivered to sink until
// exactly one EventExit has been sent. ctx only bounds the start itself.
func Start(ctx context.Context, spec Spec, sink Sink) (*Process, error) {
	logger := log.WithComponent("supervisor")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := Resolve(spec.Binary)
	if err != nil {
		metrics.IncProcessStart(spec.Role, "not_found")
		logger.Warn().Str(log.FieldEvent, "process.not_found").Str(log.FieldRole, spec.Role).Str(log.FieldBinary, spec.Binary).Msg("executable not found")
		return nil, err
	}

	timeout := spec.StartTimeout
	if timeout <= 0 {
		timeout = DefaultStartTimeout
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	cmd := exec.Command(path, spec.Args...) // #nosec G204 -- binary and args come from configuration
	cmd.Stdout = outW
	cmd.Stderr = errW
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	procgroup.Set(cmd)

	started := make(chan error, 1)
	go func() { started <- cmd.Start() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err = <-started:
	case <-timer.C:
		go reapLate(cmd, started, outR, outW, errR, errW)
		metrics.IncProcessStart(spec.Role, "timeout")
		logger.Error().Str(log.FieldEvent, "process.start_timeout").Str(log.FieldRole, spec.Role).Dur("timeout", timeout).Msg("process did not start in time")
		return nil, fmt.Errorf("%s: %w", spec.Role, ErrStartTimeout)
	case <-ctx.Done():
		go reapLate(cmd, started, outR, outW, errR, errW)
		return nil, ctx.Err()
	}

	// The child holds its own copies of the write ends.
	closeAll(outW, errW)

	if err != nil {
		closeAll(outR, errR)
		metrics.IncProcessStart(spec.Role, "error")
		logger.Error().Err(err).Str(log.FieldEvent, "process.start_failed").Str(log.FieldRole, spec.Role).Str(log.FieldBinary, path).Msg("process start failed")
		return nil, fmt.Errorf("start %s: %w", spec.Role, err)
	}

	p := &Process{
		id:     nextID.Add(1),
		role:   spec.Role,
		binary: path,
		cmd:    cmd,
		exited: make(chan struct{}),
		done:   make(chan struct{}),
		diag:   NewRingBuffer(diagLines),
	}

	metrics.IncProcessStart(spec.Role, "started")
	logger.Info().
		Str(log.FieldEvent, "process.started").
		Str(log.FieldRole, spec.Role).
		Str(log.FieldBinary, path).
		Int(log.FieldPID, cmd.Process.Pid).
		Uint64("process_id", p.id).
		Strs("args", spec.Args).
		Msg("process started")

	var g errgroup.Group
	g.Go(func() error { return p.pump(outR, Stdout, sink) })
	g.Go(func() error { return p.pump(errR, Stderr, sink) })
	go p.wait(&g, sink, outR, errR)

	return p, nil
}

// reapLate cleans up a start that was abandoned by the caller.
func reapLate(cmd *exec.Cmd, started <-chan error, files ...*os.File) {
	if err := <-started; err == nil {
		_ = procgroup.Kill(cmd, killSignal)
		_ = cmd.Wait()
	}
	closeAll(files...)
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
