// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func check(t *testing.T, v *Validator, wantErr bool) {
	t.Helper()
	if wantErr && v.IsValid() {
		t.Errorf("expected error, got none")
	}
	if !wantErr && !v.IsValid() {
		t.Errorf("unexpected error: %v", v.Err())
	}
}

func TestValidator_Port(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"valid port 1", 1, false},
		{"valid port 23000", 23000, false},
		{"valid port 65535", 65535, false},
		{"invalid port 0", 0, true},
		{"invalid port -1", -1, true},
		{"invalid port 65536", 65536, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Port("testPort", tt.port)
			check(t, v, tt.wantErr)
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"loopback", "127.0.0.1:8089", false},
		{"all interfaces", ":8089", false},
		{"ipv6", "[::1]:8089", false},
		{"missing port", "127.0.0.1", true},
		{"bad port", "127.0.0.1:http", true},
		{"port zero", "127.0.0.1:0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.ListenAddr("listen", tt.addr)
			check(t, v, tt.wantErr)
		})
	}
}

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		min     int
		max     int
		wantErr bool
	}{
		{"in range", 5, 1, 10, false},
		{"at min", 1, 1, 10, false},
		{"at max", 10, 1, 10, false},
		{"below min", 0, 1, 10, true},
		{"above max", 11, 1, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("testValue", tt.value, tt.min, tt.max)
			check(t, v, tt.wantErr)
		})
	}
}

func TestValidator_FloatAndDuration(t *testing.T) {
	v := New()
	v.FloatRange("rate", 0.5, 0, 1)
	v.Duration("timeout", 2*time.Second, time.Millisecond, time.Minute)
	check(t, v, false)

	v = New()
	v.FloatRange("rate", 1.5, 0, 1)
	v.Duration("timeout", 0, time.Millisecond, time.Minute)
	check(t, v, true)
	if got := len(v.Errors()); got != 2 {
		t.Errorf("expected 2 errors, got %d", got)
	}
}

func TestValidator_Directory(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		path      string
		mustExist bool
		wantErr   bool
	}{
		{"existing dir", tmpDir, true, false},
		{"nonexistent mustExist", filepath.Join(tmpDir, "nonexistent"), true, true},
		{"nonexistent create", filepath.Join(tmpDir, "autocreate"), false, false},
		{"file", file, false, true},
		{"empty path", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Directory("testDir", tt.path, tt.mustExist)
			check(t, v, tt.wantErr)
		})
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "autocreate")); err != nil {
		t.Errorf("directory was not created: %v", err)
	}
}

func TestValidator_NotEmptyOneOfPositive(t *testing.T) {
	v := New()
	v.NotEmpty("name", "ffmpeg")
	v.OneOf("backend", "sqlite", []string{"sqlite", "badger"})
	v.Positive("attempts", 6)
	check(t, v, false)

	v = New()
	v.NotEmpty("name", " \t")
	v.OneOf("backend", "mysql", []string{"sqlite", "badger"})
	v.Positive("attempts", 0)
	check(t, v, true)
	if got := len(v.Errors()); got != 3 {
		t.Errorf("expected 3 errors, got %d", got)
	}
}

func TestValidationError_JoinsMessages(t *testing.T) {
	v := New()
	if v.Err() != nil {
		t.Fatal("empty validator must not produce an error")
	}
	v.AddError("a", "first", nil)
	v.AddError("b", "second", nil)

	err := v.Err()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %d", len(verr.Errors()))
	}
	if !strings.Contains(err.Error(), "a: first; validation failed for b: second") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"trace", "debug", "info", "warn", "error", " INFO "} {
		if _, err := ParseLogLevel(s); err != nil {
			t.Errorf("ParseLogLevel(%q) = %v", s, err)
		}
	}
	if got, _ := ParseLogLevel("Warn"); got != "warn" {
		t.Errorf("ParseLogLevel(Warn) = %q, want warn", got)
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestValidator_Executable(t *testing.T) {
	v := New()
	v.Executable("binaries.tuner", "dvbv5-zap")
	v.Executable("binaries.bridge", "/usr/bin/ffmpeg")
	check(t, v, false)

	for _, bad := range []string{"", "  ", "bin/ffmpeg", "./w_scan2"} {
		v = New()
		v.Executable("binaries.scanner", bad)
		check(t, v, true)
	}
}

func TestValidator_PortSpan(t *testing.T) {
	v := New()
	v.PortSpan("tuner.basePort", 23000, 3)
	check(t, v, false)

	v = New()
	v.PortSpan("tuner.basePort", 65535, 1)
	check(t, v, true)

	v = New()
	v.PortSpan("tuner.basePort", 0, 0)
	check(t, v, true)
	if got := len(v.Errors()); got != 1 {
		t.Errorf("expected 1 error for an invalid base, got %d", got)
	}
}

func TestValidator_CountryCodeAndLogLevel(t *testing.T) {
	v := New()
	v.CountryCode("scan.country", "")
	v.CountryCode("scan.country", "DE")
	v.CountryCode("scan.country", "gb")
	v.LogLevel("log.level", "debug")
	check(t, v, false)

	for _, bad := range []string{"DEU", "D1", "dE"} {
		v = New()
		v.CountryCode("scan.country", bad)
		check(t, v, true)
	}

	v = New()
	v.LogLevel("log.level", "verbose")
	check(t, v, true)
}
