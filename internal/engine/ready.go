// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"regexp"
	"strings"
)

// dvbv5-zap announces the DVR device with a line like
// "DVR interface '/dev/dvb/adapter0/dvr0' can now be opened".
const (
	readyMarker = "DVR interface"
	readySuffix = "can now be opened"
)

var readyPathPattern = regexp.MustCompile(`'([^']+/dvr0)'`)

func isReadyLine(line string) bool {
	return strings.Contains(line, readyMarker) && strings.Contains(line, readySuffix)
}

// readyPath returns the device named in line, or expected when none is quoted.
func readyPath(line, expected string) string {
	if m := readyPathPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return expected
}
