// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/tunewatch/internal/catalog"
	"github.com/ManuGH/tunewatch/internal/player"
	"github.com/ManuGH/tunewatch/internal/supervisor"
	"github.com/stretchr/testify/require"
)

const (
	testChannel = "BBC One"
	testLine    = "BBC One:474000000:VSB_8:0:0:4164:4228:4171:0:1:BBC"
	otherLine   = "ITV:490000000:QAM_64:0:0:8261:2314:2315:0:1:ITV"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	d     time.Duration
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

// Advance moves time forward and fires every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.done && !t.at.After(c.now) {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Active returns the durations of all armed timers.
func (c *fakeClock) Active() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, t := range c.timers {
		if !t.done {
			out = append(out, t.d)
		}
	}
	return out
}

type fakeProcess struct {
	mu      sync.Mutex
	id      uint64
	spec    supervisor.Spec
	sink    supervisor.Sink
	running bool
	stops   int
}

func (p *fakeProcess) ID() uint64 { return p.id }
func (p *fakeProcess) PID() int   { return 4000 + int(p.id) }

func (p *fakeProcess) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *fakeProcess) Stop(time.Duration) error {
	p.mu.Lock()
	p.stops++
	was := p.running
	p.running = false
	p.mu.Unlock()
	if was {
		p.sink(supervisor.Event{ProcessID: p.id, Role: p.spec.Role, Kind: supervisor.EventExit, Exit: supervisor.ExitStatus{Code: -1, Signaled: true}})
	}
	return nil
}

func (p *fakeProcess) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *fakeProcess) line(stream supervisor.Stream, text string) {
	p.sink(supervisor.Event{ProcessID: p.id, Role: p.spec.Role, Kind: supervisor.EventLine, Stream: stream, Line: text})
}

func (p *fakeProcess) exit(code int) {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.sink(supervisor.Event{ProcessID: p.id, Role: p.spec.Role, Kind: supervisor.EventExit, Exit: supervisor.ExitStatus{Code: code}})
}

// exitWithTail delivers a failed exit carrying the given stderr tail.
func (p *fakeProcess) exitWithTail(code int, tail ...string) {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	p.sink(supervisor.Event{ProcessID: p.id, Role: p.spec.Role, Kind: supervisor.EventExit, Exit: supervisor.ExitStatus{Code: code}, Tail: tail})
}

// die marks the process dead without delivering its exit yet.
func (p *fakeProcess) die() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

type fakeLauncher struct {
	mu       sync.Mutex
	missing  map[string]bool
	startErr map[string]error
	procs    []*fakeProcess
	nextID   uint64
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{missing: map[string]bool{}, startErr: map[string]error{}}
}

func (l *fakeLauncher) Resolve(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.missing[name] {
		return "", fmt.Errorf("%w: %s", supervisor.ErrNotFound, name)
	}
	return "/usr/bin/" + name, nil
}

func (l *fakeLauncher) Start(_ context.Context, spec supervisor.Spec, sink supervisor.Sink) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.startErr[spec.Role]; err != nil {
		return nil, err
	}
	l.nextID++
	p := &fakeProcess{id: l.nextID, spec: spec, sink: sink, running: true}
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) setMissing(name string, missing bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.missing[name] = missing
}

func (l *fakeLauncher) byRole(role string) []*fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*fakeProcess
	for _, p := range l.procs {
		if p.spec.Role == role {
			out = append(out, p)
		}
	}
	return out
}

func (l *fakeLauncher) last(t *testing.T, role string) *fakeProcess {
	t.Helper()
	ps := l.byRole(role)
	require.NotEmpty(t, ps, "no %s started", role)
	return ps[len(ps)-1]
}

type fakePlayer struct {
	mu      sync.Mutex
	sources []string
	stops   int
	id      uint64
	sink    player.Sink
	err     error
}

func (p *fakePlayer) Attach(source string, sink player.Sink) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	p.id++
	p.sources = append(p.sources, source)
	p.sink = sink
	return p.id, nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) Sources() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sources)
}

func (p *fakePlayer) status(s player.Status) {
	p.mu.Lock()
	id, sink := p.id, p.sink
	p.mu.Unlock()
	sink(player.Event{AttachID: id, Kind: player.EventStatus, Status: s})
}

func (p *fakePlayer) statusFor(id uint64, s player.Status) {
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	sink(player.Event{AttachID: id, Kind: player.EventStatus, Status: s})
}

type fakeLease struct {
	mu       sync.Mutex
	current  string
	acquired []string
	busy     error
}

func (l *fakeLease) Acquire(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy != nil {
		return l.busy
	}
	l.current = path
	l.acquired = append(l.acquired, path)
	return nil
}

func (l *fakeLease) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = ""
	return nil
}

func (l *fakeLease) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

var errBoom = errors.New("boom")

type harness struct {
	e      *Engine
	clock  *fakeClock
	launch *fakeLauncher
	player *fakePlayer
	lease  *fakeLease
	cat    *catalog.Catalog
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	cat := catalog.New(t.TempDir())
	_, ok := cat.Add(testLine)
	require.True(t, ok)
	_, ok = cat.Add(otherLine)
	require.True(t, ok)

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	h := &harness{
		clock:  newFakeClock(),
		launch: newFakeLauncher(),
		player: &fakePlayer{},
		lease:  &fakeLease{},
		cat:    cat,
	}
	h.e = New(cfg, Deps{
		Catalog:  cat,
		Player:   h.player,
		Launcher: h.launch,
		Clock:    h.clock,
		Lease:    h.lease,
	})
	return h
}

// pump runs queued events until the mailbox is empty, then publishes the
// snapshot so direct engine calls are visible through Status.
func (h *harness) pump() {
	defer h.e.publish()
	for {
		fns := h.e.mb.take()
		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			fn()
			h.e.publish()
		}
	}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.pump()
}

func (h *harness) watch(t *testing.T, channel string) {
	t.Helper()
	require.NoError(t, h.e.watch(channel, false))
	h.pump()
}

// ready makes the current tuner announce its DVR device.
func (h *harness) ready(t *testing.T) *fakeProcess {
	t.Helper()
	tuner := h.launch.last(t, roleTuner)
	tuner.line(supervisor.Stderr, "DVR interface '/dev/dvb/adapter0/dvr0' can now be opened")
	h.pump()
	return h.launch.last(t, roleBridge)
}
