// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build linux

package supervisor

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/ManuGH/tunewatch/internal/procgroup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	exit   chan Event
}

func newRecorder() *recorder {
	return &recorder{exit: make(chan Event, 1)}
}

func (r *recorder) sink(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if ev.Kind == EventExit {
		r.exit <- ev
	}
}

func (r *recorder) lines(stream Stream) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Kind == EventLine && ev.Stream == stream {
			out = append(out, ev.Line)
		}
	}
	return out
}

func (r *recorder) waitExit(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.exit:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no exit event")
		return Event{}
	}
}

func TestStart_DeliversLinesThenExit(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{
		Role:   "tuner",
		Binary: "sh",
		Args:   []string{"-c", "echo one; echo warn >&2; printf tail; exit 3"},
	}, rec.sink)
	require.NoError(t, err)

	ev := rec.waitExit(t)
	<-p.Done()

	assert.Equal(t, p.ID(), ev.ProcessID)
	assert.Equal(t, 3, ev.Exit.Code)
	assert.False(t, ev.Exit.Signaled)
	assert.False(t, ev.Exit.Clean())
	assert.Equal(t, []string{"one", "tail"}, rec.lines(Stdout))
	assert.Equal(t, []string{"warn"}, rec.lines(Stderr))
	assert.Equal(t, []string{"warn"}, ev.Tail)

	rec.mu.Lock()
	last := rec.events[len(rec.events)-1]
	rec.mu.Unlock()
	assert.Equal(t, EventExit, last.Kind, "exit must be the final event")
}

func TestStart_OverlongLineDoesNotStallExit(t *testing.T) {
	rec := newRecorder()
	script := "head -c 2097152 /dev/zero | tr '\\0' x >&2; " +
		"head -c 1048576 /dev/zero | tr '\\0' y >&2; echo >&2; echo after >&2; exit 3"
	p, err := Start(context.Background(), Spec{Role: "bridge", Binary: "sh", Args: []string{"-c", script}}, rec.sink)
	require.NoError(t, err)

	ev := rec.waitExit(t)
	<-p.Done()

	assert.Equal(t, 3, ev.Exit.Code)
	lines := rec.lines(Stderr)
	require.Len(t, lines, 2)
	assert.Len(t, lines[0], maxLineBytes)
	assert.Equal(t, "after", lines[1])
	assert.Equal(t, "after", ev.Tail[len(ev.Tail)-1])
}

func TestStart_CleanExit(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{Role: "scanner", Binary: "true"}, rec.sink)
	require.NoError(t, err)

	ev := rec.waitExit(t)
	<-p.Done()
	assert.True(t, ev.Exit.Clean())
	assert.False(t, p.Running())
}

func TestStart_NotFound(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{Role: "bridge", Binary: "tunewatch-no-such-tool"}, rec.sink)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, p)
}

func TestStart_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Start(ctx, Spec{Role: "tuner", Binary: "sh"}, func(Event) {})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStop_TerminatesRunningProcess(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{Role: "bridge", Binary: "sleep", Args: []string{"30"}}, rec.sink)
	require.NoError(t, err)
	require.True(t, p.Running())

	start := time.Now()
	require.NoError(t, p.Stop(time.Second))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, p.Running())

	ev := rec.waitExit(t)
	assert.True(t, ev.Exit.Signaled)
	assert.Equal(t, p.ID(), ev.ProcessID)
}

func TestStop_ForceKillsWhenTermIgnored(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{
		Role:   "tuner",
		Binary: "sh",
		Args:   []string{"-c", "trap '' TERM; echo armed; while true; do sleep 0.05; done"},
	}, rec.sink)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(rec.lines(Stdout)) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(200*time.Millisecond))
	ev := rec.waitExit(t)
	assert.True(t, ev.Exit.Signaled)
}

func TestStop_IdempotentAfterExit(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{Role: "tuner", Binary: "true"}, rec.sink)
	require.NoError(t, err)
	rec.waitExit(t)

	require.NoError(t, p.Stop(time.Second))
	require.NoError(t, p.Stop(time.Second))
}

func TestExitEventNotDelayedByOrphanHoldingPipe(t *testing.T) {
	rec := newRecorder()
	p, err := Start(context.Background(), Spec{
		Role:   "tuner",
		Binary: "sh",
		Args:   []string{"-c", "sleep 3 & exit 0"},
	}, rec.sink)
	require.NoError(t, err)

	start := time.Now()
	rec.waitExit(t)
	assert.Less(t, time.Since(start), 2*time.Second)

	// The orphan still belongs to the process group.
	require.NoError(t, procgroup.Kill(p.cmd, syscall.SIGKILL))
}

func TestProcessIDsAreUnique(t *testing.T) {
	a, err := Start(context.Background(), Spec{Role: "tuner", Binary: "true"}, func(Event) {})
	require.NoError(t, err)
	b, err := Start(context.Background(), Spec{Role: "tuner", Binary: "true"}, func(Event) {})
	require.NoError(t, err)
	<-a.Done()
	<-b.Done()
	assert.NotEqual(t, a.ID(), b.ID())
}
