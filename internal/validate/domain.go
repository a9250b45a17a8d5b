// SPDX-License-Identifier: MIT
package validate

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// LogLevels lists the accepted log level names.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ErrInvalidLogLevel is returned by ParseLogLevel for unknown names.
var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: " + strings.Join(LogLevels, ", ") + ")",
}

// ParseLogLevel normalizes a log level name.
func ParseLogLevel(s string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(LogLevels, level) {
		return "", ErrInvalidLogLevel
	}
	return level, nil
}

// LogLevel validates a log level name.
func (v *Validator) LogLevel(field, level string) {
	if _, err := ParseLogLevel(level); err != nil {
		v.AddError(field, "must be one of "+strings.Join(LogLevels, ", "), level)
	}
}

// Executable validates a tool reference: a bare name resolved from PATH or an
// absolute path. Relative paths with separators depend on the working directory.
func (v *Validator) Executable(field, name string) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		v.AddError(field, "executable cannot be empty", name)
	case strings.ContainsRune(name, filepath.Separator) && !filepath.IsAbs(name):
		v.AddError(field, "executable must be a bare name or an absolute path", name)
	}
}

// PortSpan validates that base+offset is a usable port, as used for per-adapter stream ports.
func (v *Validator) PortSpan(field string, base, offset int) {
	v.Port(field, base)
	if p := base + offset; base > 0 && (p <= 0 || p > 65535) {
		v.AddError(field, fmt.Sprintf("port %d+%d is out of range", base, offset), p)
	}
}

// CountryCode validates an optional ISO 3166 alpha-2 code.
func (v *Validator) CountryCode(field, code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	if len(code) != 2 || strings.ToUpper(code) != code && strings.ToLower(code) != code {
		v.AddError(field, "must be a two-letter country code", code)
		return
	}
	for _, r := range strings.ToUpper(code) {
		if r < 'A' || r > 'Z' {
			v.AddError(field, "must be a two-letter country code", code)
			return
		}
	}
}
