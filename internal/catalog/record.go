// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog turns scanner output into channel records and keeps the
// channels.conf file that the lock process tunes from.
package catalog

import "strings"

const (
	// UnknownProvider is used when a record carries no provider field.
	UnknownProvider = "Unknown"

	fieldName       = 0
	fieldModulation = 2
	fieldProgram    = 5
	fieldProvider   = 10

	minFields        = 3
	minProgramFields = 6
)

// modulationAliases maps scanner modulation names to the names the lock process expects.
var modulationAliases = map[string]string{
	"VSB_8":  "8VSB",
	"VSB_16": "16VSB",
}

// Record is one channel parsed from a colon-delimited catalog line.
type Record struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	RawLine  string `json:"raw_line"`
}

// NormalizeLine rewrites the modulation field of a catalog line. Lines with fewer than
// three fields are returned unchanged. Normalizing twice yields the same line.
func NormalizeLine(line string) string {
	parts := strings.Split(line, ":")
	if len(parts) < minFields {
		return line
	}
	if alias, ok := modulationAliases[strings.ToUpper(strings.TrimSpace(parts[fieldModulation]))]; ok {
		parts[fieldModulation] = alias
		return strings.Join(parts, ":")
	}
	return line
}

// ParseLine normalizes line and derives a Record from it.
// Comment lines, tagged diagnostic lines, lines with fewer than three fields and
// lines with an empty name are rejected.
func ParseLine(line string) (Record, bool) {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "stderr:") {
		return Record{}, false
	}

	normalized := NormalizeLine(line)
	parts := strings.Split(normalized, ":")
	if len(parts) < minFields {
		return Record{}, false
	}

	name := strings.TrimSpace(parts[fieldName])
	if name == "" {
		return Record{}, false
	}

	provider := UnknownProvider
	if len(parts) > fieldProvider {
		if p := strings.TrimSpace(parts[fieldProvider]); p != "" {
			provider = p
		}
	}

	return Record{Name: name, Provider: provider, RawLine: normalized}, true
}

// programIDFromLine returns field 5 of line when field 0 equals name.
func programIDFromLine(line, name string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return ""
	}
	parts := strings.Split(trimmed, ":")
	if len(parts) < minProgramFields {
		return ""
	}
	if strings.TrimSpace(parts[fieldName]) != name {
		return ""
	}
	return strings.TrimSpace(parts[fieldProgram])
}
