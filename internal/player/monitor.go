// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package player consumes the bridge's loopback stream without decoding it. It checks
// that datagrams carry MPEG transport-stream packets, reports invalid and stalled
// streams, and relays the raw stream to subscribers.
package player

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Comcast/gots/packet"
	"github.com/ManuGH/tunewatch/internal/log"
	"github.com/ManuGH/tunewatch/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	syncByte         = 0x47
	readBufferBytes  = 4 << 20
	subscriberBuffer = 256
)

// Config tunes failure detection.
type Config struct {
	// StartupTimeout is how long to wait for the first valid packet.
	StartupTimeout time.Duration
	// StallTimeout is how long data may pause once the stream is buffered.
	StallTimeout time.Duration
	// InvalidThreshold is the number of consecutive malformed datagrams that mark the stream invalid.
	InvalidThreshold int
}

// DefaultConfig returns conservative detection settings.
func DefaultConfig() Config {
	return Config{
		StartupTimeout:   10 * time.Second,
		StallTimeout:     5 * time.Second,
		InvalidThreshold: 64,
	}
}

// Monitor is a headless media consumer for a udp:// source.
type Monitor struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	active *attachment
	nextID uint64
	status atomic.Value // Status

	subMu  sync.Mutex
	subs   map[uint64]chan []byte
	nextSb uint64
}

type attachment struct {
	id      uint64
	source  string
	conn    *net.UDPConn
	stopped atomic.Bool
	done    chan struct{}
}

// NewMonitor returns an idle monitor.
func NewMonitor(cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = def.StartupTimeout
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = def.StallTimeout
	}
	if cfg.InvalidThreshold <= 0 {
		cfg.InvalidThreshold = def.InvalidThreshold
	}
	m := &Monitor{
		cfg:    cfg,
		logger: log.WithComponent("player"),
		subs:   make(map[uint64]chan []byte),
	}
	m.status.Store(StatusNoMedia)
	return m
}

// Status returns the last reported status.
func (m *Monitor) Status() Status {
	return m.status.Load().(Status)
}

// Source returns the attached URL, or "".
func (m *Monitor) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.source
}

// LocalAddr returns the bound address of the current attachment, or "".
func (m *Monitor) LocalAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.conn.LocalAddr().String()
}

// Attach replaces the current source with source and starts consuming it.
// Events for this attachment carry the returned id.
func (m *Monitor) Attach(source string, sink Sink) (uint64, error) {
	addr, err := udpAddr(source)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen %s: %w", source, err)
	}
	if err := conn.SetReadBuffer(readBufferBytes); err != nil {
		m.logger.Debug().Err(err).Msg("could not raise udp read buffer")
	}

	m.nextID++
	a := &attachment{id: m.nextID, source: source, conn: conn, done: make(chan struct{})}
	m.active = a

	m.logger.Info().Str(log.FieldEvent, "player.attached").Str(log.FieldStreamURL, source).Uint64("attach_id", a.id).Msg("attached live stream")
	m.setStatus(a, sink, StatusLoading)
	go m.consume(a, sink)
	return a.id, nil
}

// Stop detaches the current source. No event is delivered once Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	a := m.active
	if a == nil {
		return
	}
	m.active = nil
	a.stopped.Store(true)
	_ = a.conn.Close()
	<-a.done
	m.status.Store(StatusNoMedia)
	m.logger.Debug().Str(log.FieldEvent, "player.detached").Uint64("attach_id", a.id).Msg("detached live stream")
}

func (m *Monitor) consume(a *attachment, sink Sink) {
	defer close(a.done)

	buf := make([]byte, 64*1024)
	var (
		buffered bool
		invalid  int
	)

	for {
		wait := m.cfg.StartupTimeout
		if buffered {
			wait = m.cfg.StallTimeout
		}
		_ = a.conn.SetReadDeadline(time.Now().Add(wait))

		n, _, err := a.conn.ReadFromUDP(buf)
		if err != nil {
			if a.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				if buffered {
					m.setStatus(a, sink, StatusEndOfMedia)
				} else {
					m.emitError(a, sink, "no transport stream received within "+wait.String())
				}
				return
			}
			m.emitError(a, sink, err.Error())
			return
		}

		metrics.MonitorBytesTotal.Add(float64(n))
		valid, starts := inspect(buf[:n])
		if !valid {
			metrics.MonitorPacketsTotal.WithLabelValues("invalid").Inc()
			invalid++
			if invalid >= m.cfg.InvalidThreshold {
				m.setStatus(a, sink, StatusInvalidMedia)
				return
			}
			continue
		}
		invalid = 0
		metrics.MonitorPacketsTotal.WithLabelValues("valid").Add(float64(n / packet.PacketSize))

		if !buffered && starts > 0 {
			buffered = true
			m.setStatus(a, sink, StatusBuffered)
		}
		m.broadcast(buf[:n])
	}
}

// inspect reports whether data is a whole number of TS packets with valid sync bytes,
// and how many of them start a payload unit.
func inspect(data []byte) (bool, int) {
	if len(data) == 0 || len(data)%packet.PacketSize != 0 {
		return false, 0
	}
	starts := 0
	for off := 0; off < len(data); off += packet.PacketSize {
		var pkt packet.Packet
		copy(pkt[:], data[off:off+packet.PacketSize])
		if pkt[0] != syncByte {
			return false, 0
		}
		if packet.PayloadUnitStartIndicator(&pkt) {
			starts++
		}
	}
	return true, starts
}

func (m *Monitor) setStatus(a *attachment, sink Sink, s Status) {
	if a.stopped.Load() {
		return
	}
	m.status.Store(s)
	metrics.MonitorStatusTotal.WithLabelValues(string(s)).Inc()
	m.logger.Debug().Str(log.FieldEvent, "player.status").Str("status", string(s)).Uint64("attach_id", a.id).Msg("media status changed")
	sink(Event{AttachID: a.id, Kind: EventStatus, Status: s})
}

func (m *Monitor) emitError(a *attachment, sink Sink, text string) {
	if a.stopped.Load() {
		return
	}
	m.logger.Warn().Str(log.FieldEvent, "player.error").Str(log.FieldReason, text).Uint64("attach_id", a.id).Msg("player error")
	sink(Event{AttachID: a.id, Kind: EventError, Error: text})
}

// Subscribe returns a channel of raw stream datagrams and a cancel func.
// Slow subscribers lose datagrams rather than stall the monitor.
func (m *Monitor) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)
	m.subMu.Lock()
	m.nextSb++
	id := m.nextSb
	m.subs[id] = ch
	m.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			close(ch)
			m.subMu.Unlock()
		})
	}
}

func (m *Monitor) broadcast(data []byte) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if len(m.subs) == 0 {
		return
	}
	cp := append([]byte(nil), data...)
	for _, ch := range m.subs {
		select {
		case ch <- cp:
		default:
		}
	}
}

func udpAddr(source string) (*net.UDPAddr, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse source %q: %w", source, err)
	}
	if u.Scheme != "udp" {
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
	addr, err := net.ResolveUDPAddr("udp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", u.Host, err)
	}
	return addr, nil
}
