// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scan models the channel scanner invocation.
package scan

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// DefaultBinary is the scanner executable.
const DefaultBinary = "w_scan2"

// Frontend types understood by the scanner.
var FrontendTypes = []string{"t", "t1", "t2", "a", "c"}

// Output format switches understood by the scanner.
var OutputFormats = []string{"X", "L", "M", "5", "Z"}

var (
	ErrFrontendType = errors.New("unsupported frontend type")
	ErrOutputFormat = errors.New("unsupported output format")
	ErrDeviceIndex  = errors.New("adapter and frontend must be non-negative")
)

// Options selects what and how to scan.
type Options struct {
	FrontendType string `yaml:"frontendType" json:"frontend_type"`
	Country      string `yaml:"country,omitempty" json:"country,omitempty"`
	Adapter      int    `yaml:"adapter" json:"adapter"`
	Frontend     int    `yaml:"frontend" json:"frontend"`
	OutputFormat string `yaml:"outputFormat" json:"output_format"`
}

// Defaults returns terrestrial scanning on adapter 0 with zap-compatible output.
func Defaults() Options {
	return Options{FrontendType: "t", OutputFormat: "X"}
}

// Validate checks the options against the known switches.
func (o Options) Validate() error {
	if !slices.Contains(FrontendTypes, o.FrontendType) {
		return fmt.Errorf("%w: %q", ErrFrontendType, o.FrontendType)
	}
	if o.OutputFormat != "" && !slices.Contains(OutputFormats, o.OutputFormat) {
		return fmt.Errorf("%w: %q", ErrOutputFormat, o.OutputFormat)
	}
	if o.Adapter < 0 || o.Frontend < 0 {
		return ErrDeviceIndex
	}
	return nil
}

// FrontendPath is the frontend device node for the options.
func (o Options) FrontendPath() string {
	return "/dev/dvb/adapter" + strconv.Itoa(o.Adapter) + "/frontend" + strconv.Itoa(o.Frontend)
}

// Args returns the scanner argument list.
func (o Options) Args() []string {
	args := []string{"-f", o.FrontendType}
	if country := strings.ToUpper(strings.TrimSpace(o.Country)); country != "" {
		args = append(args, "-c", country)
	}
	args = append(args, "-a", o.FrontendPath())
	if o.OutputFormat != "" {
		args = append(args, "-"+o.OutputFormat)
	}
	return args
}
