// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bridge builds ffmpeg argument lists that remux (or re-encode) the tuner's
// transport-stream device onto a loopback UDP stream.
package bridge

import (
	"fmt"
	"strconv"
)

const (
	// BasePort is the UDP port for adapter 0; adapter N streams on BasePort+N.
	BasePort = 23000
	// PacketSize is seven 188-byte TS packets per datagram.
	PacketSize = 1316
	// LoopbackHost is the stream destination.
	LoopbackHost = "127.0.0.1"
)

// Mode selects the bridge operating profile.
type Mode string

const (
	// ModeNormal copies the selected program without re-encoding.
	ModeNormal Mode = "normal"
	// ModeResilient tolerates corrupt input and re-encodes to broadly compatible codecs.
	ModeResilient Mode = "resilient"
)

// ModeFor maps the resilient flag to a Mode.
func ModeFor(resilient bool) Mode {
	if resilient {
		return ModeResilient
	}
	return ModeNormal
}

// Port returns the UDP port for an adapter.
func Port(basePort, adapter int) int {
	if basePort <= 0 {
		basePort = BasePort
	}
	return basePort + adapter
}

// OutputURL is the ffmpeg sink URL for port.
func OutputURL(port int) string {
	return fmt.Sprintf("udp://%s:%d?pkt_size=%d", LoopbackHost, port, PacketSize)
}

// SourceURL is the URL consumers attach to for port.
func SourceURL(port int) string {
	return fmt.Sprintf("udp://%s:%d", LoopbackHost, port)
}

// Profile describes one bridge invocation.
type Profile struct {
	Mode      Mode
	Device    string
	ProgramID string
	Port      int
}

// Args returns the ffmpeg argument list for the profile.
func (p Profile) Args() []string {
	var args []string
	switch p.Mode {
	case ModeResilient:
		args = []string{
			"-hide_banner",
			"-nostdin",
			"-loglevel", "warning",
			"-fflags", "+genpts+discardcorrupt",
			"-err_detect", "ignore_err",
			"-analyzeduration", "4M",
			"-probesize", "4M",
			"-f", "mpegts",
			"-i", p.Device,
		}
		if p.ProgramID != "" {
			args = append(args, "-map", programMap(p.ProgramID))
		} else {
			args = append(args, "-map", "0:v:0?", "-map", "0:a:0?")
		}
		args = append(args,
			"-c:v", "mpeg2video",
			"-q:v", "3",
			"-c:a", "mp2",
			"-b:a", "192k",
		)
	default:
		args = []string{
			"-hide_banner",
			"-nostdin",
			"-loglevel", "warning",
			"-fflags", "+genpts",
			"-analyzeduration", "2M",
			"-probesize", "2M",
			"-f", "mpegts",
			"-i", p.Device,
		}
		if p.ProgramID != "" {
			args = append(args, "-map", programMap(p.ProgramID))
		} else {
			args = append(args, "-map", "0")
		}
		args = append(args, "-c", "copy")
	}

	return append(args,
		"-mpegts_flags", "+resend_headers+pat_pmt_at_frames",
		"-flush_packets", "1",
		"-f", "mpegts",
		OutputURL(p.Port),
	)
}

// programMap selects a program; the trailing ? keeps ffmpeg running when it is absent.
func programMap(id string) string {
	return "0:p:" + id + "?"
}

// DevicePath is the DVR device the lock process exposes for an adapter.
func DevicePath(adapter int) string {
	return "/dev/dvb/adapter" + strconv.Itoa(adapter) + "/dvr0"
}
